package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
)

// Ensure VectorEntryStore implements the interface.
var _ driven.VectorEntryStore = (*VectorEntryStore)(nil)

// VectorEntryStore is an in-memory implementation of driven.VectorEntryStore.
type VectorEntryStore struct {
	mu      sync.RWMutex
	entries map[string]domain.VectorEntry
}

// NewVectorEntryStore creates a new in-memory vector entry store.
func NewVectorEntryStore() *VectorEntryStore {
	return &VectorEntryStore{
		entries: make(map[string]domain.VectorEntry),
	}
}

// SaveEntries stores or replaces entries.
func (s *VectorEntryStore) SaveEntries(_ context.Context, entries []domain.VectorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range entries {
		s.entries[entries[i].DocumentID] = copyEntry(entries[i])
	}
	return nil
}

// DeleteEntry removes the entry of a document. Missing entries are ignored.
func (s *VectorEntryStore) DeleteEntry(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, documentID)
	return nil
}

// LoadEntries returns all entries ordered by document id.
func (s *VectorEntryStore) LoadEntries(_ context.Context) ([]domain.VectorEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.VectorEntry, 0, len(s.entries))
	for id := range s.entries {
		out = append(out, copyEntry(s.entries[id]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out, nil
}

func copyEntry(e domain.VectorEntry) domain.VectorEntry {
	out := domain.VectorEntry{
		DocumentID:  e.DocumentID,
		TermCounts:  make(map[string]int, len(e.TermCounts)),
		TermWeights: make(map[string]float64, len(e.TermWeights)),
		Norm:        e.Norm,
	}
	for t, c := range e.TermCounts {
		out.TermCounts[t] = c
	}
	for t, w := range e.TermWeights {
		out.TermWeights[t] = w
	}
	return out
}
