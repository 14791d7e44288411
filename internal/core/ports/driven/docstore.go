package driven

import (
	"context"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

// DocumentStore persists rendered notes. The store, not the pipeline,
// decides where a note lives; the pipeline only supplies its category.
type DocumentStore interface {
	// Save stores a rendered note and returns its stored-location identifier.
	// Saving a note whose id already exists replaces it.
	Save(ctx context.Context, category domain.Category, rendered string, meta *domain.DocumentMetadata) (string, error)

	// Get retrieves a note by id. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List returns notes, newest first. An empty category lists all.
	List(ctx context.Context, category domain.Category, limit int) ([]domain.Document, error)

	// Delete removes a note. Returns domain.ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}
