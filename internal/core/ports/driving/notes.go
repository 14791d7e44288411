package driving

import (
	"context"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

// NoteService turns raw items into stored notes.
type NoteService interface {
	// Process classifies, renders, stores and indexes one item.
	Process(ctx context.Context, item domain.RawItem) (*NoteResult, error)

	// Render serialises metadata and body into note text.
	Render(meta *domain.DocumentMetadata, body string) (string, error)

	// RelatedDocuments returns up to k notes similar to text.
	// Failures are logged and yield an empty result.
	RelatedDocuments(ctx context.Context, text string, k int) []domain.RelatedDocument

	// Get returns a stored note with parsed metadata.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List returns stored notes, newest first. An empty category lists all.
	List(ctx context.Context, category domain.Category, limit int) ([]domain.Document, error)

	// Rerender renders a stored note again with a fresh modified timestamp.
	Rerender(ctx context.Context, id string) (*domain.Document, error)

	// Remove deletes a note and its index entry.
	Remove(ctx context.Context, id string) error

	// RebuildIndex recomputes all similarity weights.
	RebuildIndex(ctx context.Context) error
}

// NoteResult is the outcome of processing one item.
type NoteResult struct {
	Document       domain.Document
	Classification *domain.ClassificationResult
	Related        []domain.RelatedDocument
}
