package tfidf

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
	"github.com/custodia-labs/kbnote/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.SimilarityIndex = (*Index)(nil)

// Index is an in-memory TF-IDF index. Writes take the write lock and are
// persisted through the optional VectorEntryStore before it is released;
// queries share the read lock.
type Index struct {
	mu    sync.RWMutex
	docs  map[string]*domain.VectorEntry
	df    map[string]int
	store driven.VectorEntryStore
}

// New creates an empty index. store may be nil for a purely in-memory index.
func New(store driven.VectorEntryStore) *Index {
	return &Index{
		docs:  make(map[string]*domain.VectorEntry),
		df:    make(map[string]int),
		store: store,
	}
}

// Load replaces the index contents with the persisted entries.
func (ix *Index) Load(ctx context.Context) error {
	if ix.store == nil {
		return nil
	}
	entries, err := ix.store.LoadEntries(ctx)
	if err != nil {
		return fmt.Errorf("load vector entries: %w", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs = make(map[string]*domain.VectorEntry, len(entries))
	ix.df = make(map[string]int)
	for i := range entries {
		e := entries[i]
		ix.docs[e.DocumentID] = &e
		for term := range e.TermCounts {
			ix.df[term]++
		}
	}
	logger.Debug("tfidf: loaded %d vectors", len(entries))
	return nil
}

// Index adds or replaces the vector of a document.
func (ix *Index) Index(ctx context.Context, documentID, text string) error {
	if documentID == "" {
		return fmt.Errorf("%w: empty document id", domain.ErrInvalidInput)
	}
	counts := termCounts(Tokenize(text))

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if old, ok := ix.docs[documentID]; ok {
		ix.forget(old)
	}
	entry := &domain.VectorEntry{DocumentID: documentID, TermCounts: counts}
	for term := range counts {
		ix.df[term]++
	}
	ix.docs[documentID] = entry
	ix.weigh(entry)

	if ix.store != nil {
		if err := ix.store.SaveEntries(ctx, []domain.VectorEntry{*entry}); err != nil {
			return fmt.Errorf("save vector entry: %w", err)
		}
	}
	return nil
}

// Query returns up to k documents by decreasing cosine similarity, ties
// broken by id. Documents sharing no term with text are not returned.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]domain.RelatedDocument, error) {
	if k <= 0 {
		return []domain.RelatedDocument{}, nil
	}
	counts := termCounts(Tokenize(text))

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	query := make(map[string]float64, len(counts))
	var norm float64
	for term, c := range counts {
		if ix.df[term] == 0 {
			continue
		}
		w := tf(c) * ix.idf(term)
		query[term] = w
		norm += w * w
	}
	results := []domain.RelatedDocument{}
	if norm == 0 {
		return results, nil
	}
	norm = math.Sqrt(norm)

	for id, doc := range ix.docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if doc.Norm == 0 {
			continue
		}
		var dot float64
		for term, qw := range query {
			dot += qw * doc.TermWeights[term]
		}
		if dot <= 0 {
			continue
		}
		results = append(results, domain.RelatedDocument{DocumentID: id, Score: dot / (norm * doc.Norm)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocumentID < results[j].DocumentID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Remove deletes the vector of a document.
func (ix *Index) Remove(ctx context.Context, documentID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	doc, ok := ix.docs[documentID]
	if !ok {
		return domain.ErrNotFound
	}
	ix.forget(doc)
	delete(ix.docs, documentID)

	if ix.store != nil {
		if err := ix.store.DeleteEntry(ctx, documentID); err != nil {
			return fmt.Errorf("delete vector entry: %w", err)
		}
	}
	return nil
}

// Rebuild recomputes every weight from the current document frequencies.
func (ix *Index) Rebuild(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	entries := make([]domain.VectorEntry, 0, len(ix.docs))
	for _, doc := range ix.docs {
		ix.weigh(doc)
		entries = append(entries, *doc)
	}
	if ix.store != nil && len(entries) > 0 {
		if err := ix.store.SaveEntries(ctx, entries); err != nil {
			return fmt.Errorf("save vector entries: %w", err)
		}
	}
	logger.Debug("tfidf: rebuilt %d vectors over %d terms", len(entries), len(ix.df))
	return nil
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// forget removes the document-frequency contribution of doc.
// The caller holds the write lock.
func (ix *Index) forget(doc *domain.VectorEntry) {
	for term := range doc.TermCounts {
		if ix.df[term] <= 1 {
			delete(ix.df, term)
		} else {
			ix.df[term]--
		}
	}
}

// weigh recomputes the weights and norm of doc. The caller holds the
// write lock.
func (ix *Index) weigh(doc *domain.VectorEntry) {
	doc.TermWeights = make(map[string]float64, len(doc.TermCounts))
	var norm float64
	for term, c := range doc.TermCounts {
		w := tf(c) * ix.idf(term)
		doc.TermWeights[term] = w
		norm += w * w
	}
	doc.Norm = math.Sqrt(norm)
}

// idf is the smoothed inverse document frequency of term.
func (ix *Index) idf(term string) float64 {
	n := float64(len(ix.docs))
	return math.Log((1+n)/(1+float64(ix.df[term]))) + 1
}

// tf is the sublinear term frequency.
func tf(count int) float64 {
	return 1 + math.Log(float64(count))
}

func termCounts(terms []string) map[string]int {
	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	return counts
}
