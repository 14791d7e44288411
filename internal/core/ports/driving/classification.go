package driving

import (
	"context"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

// ClassificationService classifies raw items.
type ClassificationService interface {
	// Classify runs pattern extraction and inference for one item.
	// Inference failures degrade the result; only a caller deadline or
	// cancellation returns a *domain.PipelineError.
	Classify(ctx context.Context, item domain.RawItem) (*domain.ClassificationResult, error)
}
