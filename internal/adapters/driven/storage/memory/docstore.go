package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	now       func() time.Time
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		now:       time.Now,
	}
}

// Save stores or replaces a note under its metadata id.
func (s *DocumentStore) Save(
	_ context.Context,
	category domain.Category,
	rendered string,
	meta *domain.DocumentMetadata,
) (string, error) {
	if meta == nil || meta.ID() == "" {
		return "", fmt.Errorf("%w: note has no id", domain.ErrInvalidInput)
	}
	id := meta.ID()
	location := "memory://" + category.String() + "/" + id

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	created := now
	if existing, ok := s.documents[id]; ok {
		created = existing.CreatedAt
	}
	s.documents[id] = domain.Document{
		ID:        id,
		Category:  category,
		Location:  location,
		Title:     meta.Title(),
		Rendered:  rendered,
		Metadata:  meta,
		CreatedAt: created,
		UpdatedAt: now,
	}
	return location, nil
}

// Get retrieves a note by id.
func (s *DocumentStore) Get(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// List returns notes newest first. An empty category lists all; a
// non-positive limit means no limit.
func (s *DocumentStore) List(_ context.Context, category domain.Category, limit int) ([]domain.Document, error) {
	s.mu.RLock()
	result := make([]domain.Document, 0, len(s.documents))
	for id := range s.documents {
		doc := s.documents[id]
		if category == "" || doc.Category == category {
			result = append(result, doc)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Delete removes a note.
func (s *DocumentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	return nil
}
