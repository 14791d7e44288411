package driven

import (
	"context"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

// SimilarityIndex answers related-document queries over indexed notes.
// The index is advisory: callers treat its failures as warnings.
//
// Writes are serialised relative to each other; Query may run concurrently
// with writes against a slightly stale view.
type SimilarityIndex interface {
	// Index adds or replaces the vector of a document.
	Index(ctx context.Context, documentID, text string) error

	// Query returns up to k documents by decreasing similarity.
	Query(ctx context.Context, text string, k int) ([]domain.RelatedDocument, error)

	// Remove deletes the vector of a document.
	Remove(ctx context.Context, documentID string) error

	// Rebuild recomputes every weight from the current corpus statistics.
	Rebuild(ctx context.Context) error

	// Len returns the number of indexed documents.
	Len() int
}

// VectorEntryStore persists index vectors so the index survives restarts.
type VectorEntryStore interface {
	// SaveEntries stores or replaces entries.
	SaveEntries(ctx context.Context, entries []domain.VectorEntry) error

	// DeleteEntry removes the entry of a document.
	DeleteEntry(ctx context.Context, documentID string) error

	// LoadEntries returns all stored entries.
	LoadEntries(ctx context.Context) ([]domain.VectorEntry, error)
}
