package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
	"github.com/custodia-labs/kbnote/internal/core/ports/driving"
	"github.com/custodia-labs/kbnote/internal/logger"
)

// Ensure NoteService implements the interface.
var _ driving.NoteService = (*NoteService)(nil)

// NoteService turns raw items into stored, indexed notes.
type NoteService struct {
	pipeline *ClassificationPipeline
	coercer  *MetadataCoercer
	renderer driven.NoteRenderer
	store    driven.DocumentStore
	index    driven.SimilarityIndex
	cfg      domain.IndexConfig
	now      func() time.Time
}

// NewNoteService creates a note service. index may be nil, in which case
// notes carry no related documents.
func NewNoteService(
	pipeline *ClassificationPipeline,
	coercer *MetadataCoercer,
	renderer driven.NoteRenderer,
	store driven.DocumentStore,
	index driven.SimilarityIndex,
	cfg domain.IndexConfig,
) *NoteService {
	return &NoteService{
		pipeline: pipeline,
		coercer:  coercer,
		renderer: renderer,
		store:    store,
		index:    index,
		cfg:      cfg,
		now:      time.Now,
	}
}

// SetClock replaces the clock used for modified timestamps.
func (s *NoteService) SetClock(now func() time.Time) {
	s.now = now
}

// Process classifies, renders, stores and indexes one item.
func (s *NoteService) Process(ctx context.Context, item domain.RawItem) (*driving.NoteResult, error) {
	body, err := s.pipeline.Normalise(item)
	if err != nil {
		return nil, err
	}
	result, err := s.pipeline.ClassifyBody(ctx, item, body)
	if err != nil {
		return nil, err
	}

	meta := s.coercer.Coerce(result, item, body)
	id := meta.ID()

	related := s.related(ctx, id, body)
	if len(related) > 0 {
		values := meta.Values()
		ids := make([]string, len(related))
		for i, r := range related {
			ids[i] = r.DocumentID
		}
		values[domain.FieldRelatedDocuments] = ids
		meta = domain.NewDocumentMetadata(meta.Schema(), values)
	}

	rendered, err := s.renderer.Render(meta, body)
	if err != nil {
		return nil, fmt.Errorf("render note: %w", err)
	}

	category := meta.Category()
	location, err := s.store.Save(ctx, category, rendered, meta)
	if err != nil {
		return nil, fmt.Errorf("save note: %w", err)
	}
	logger.Info("saved %s note %s to %s", category, id, location)

	if s.index != nil {
		if err := s.index.Index(ctx, id, body); err != nil {
			logger.Warn("index note %s: %v", id, err)
		}
	}

	now := s.now()
	return &driving.NoteResult{
		Document: domain.Document{
			ID:        id,
			Category:  category,
			Location:  location,
			Title:     meta.Title(),
			Rendered:  rendered,
			Metadata:  meta,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Classification: result,
		Related:        related,
	}, nil
}

// related returns the related documents recorded on a new note.
func (s *NoteService) related(ctx context.Context, id, body string) []domain.RelatedDocument {
	if s.cfg.RelatedK <= 0 {
		return nil
	}
	// One extra hit in case the note itself is already indexed.
	hits := s.RelatedDocuments(ctx, body, s.cfg.RelatedK+1)
	out := make([]domain.RelatedDocument, 0, len(hits))
	for _, h := range hits {
		if h.DocumentID == id || h.Score < s.cfg.MinScore {
			continue
		}
		out = append(out, h)
		if len(out) == s.cfg.RelatedK {
			break
		}
	}
	return out
}

// Render serialises metadata and body into note text.
func (s *NoteService) Render(meta *domain.DocumentMetadata, body string) (string, error) {
	return s.renderer.Render(meta, body)
}

// RelatedDocuments returns up to k notes similar to text. Index failures
// are logged and yield an empty result.
func (s *NoteService) RelatedDocuments(ctx context.Context, text string, k int) []domain.RelatedDocument {
	if s.index == nil || k <= 0 {
		return []domain.RelatedDocument{}
	}
	hits, err := s.index.Query(ctx, text, k)
	if err != nil {
		logger.Warn("related documents: %v", err)
		return []domain.RelatedDocument{}
	}
	return hits
}

// Get returns a stored note with parsed metadata.
func (s *NoteService) Get(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Metadata == nil {
		meta, _, err := s.renderer.Parse(doc.Rendered)
		if err != nil {
			return nil, fmt.Errorf("parse note %s: %w", id, err)
		}
		doc.Metadata = meta
	}
	return doc, nil
}

// List returns stored notes, newest first.
func (s *NoteService) List(ctx context.Context, category domain.Category, limit int) ([]domain.Document, error) {
	if category != "" && !category.IsValid() {
		return nil, fmt.Errorf("%w: category %q", domain.ErrInvalidInput, category)
	}
	return s.store.List(ctx, category, limit)
}

// Rerender renders a stored note again with a fresh modified timestamp.
// Every other field is preserved.
func (s *NoteService) Rerender(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	meta, body, err := s.renderer.Parse(doc.Rendered)
	if err != nil {
		return nil, fmt.Errorf("parse note %s: %w", id, err)
	}

	meta = meta.WithModified(s.now().UTC().Truncate(time.Second))
	rendered, err := s.renderer.Render(meta, body)
	if err != nil {
		return nil, fmt.Errorf("render note: %w", err)
	}
	location, err := s.store.Save(ctx, meta.Category(), rendered, meta)
	if err != nil {
		return nil, fmt.Errorf("save note: %w", err)
	}

	doc.Location = location
	doc.Rendered = rendered
	doc.Metadata = meta
	doc.UpdatedAt = s.now()
	return doc, nil
}

// Remove deletes a note and its index entry.
func (s *NoteService) Remove(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.Remove(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("remove note %s from index: %v", id, err)
		}
	}
	return nil
}

// RebuildIndex re-indexes every stored note and recomputes all weights.
func (s *NoteService) RebuildIndex(ctx context.Context) error {
	if s.index == nil {
		return fmt.Errorf("%w: no similarity index configured", domain.ErrInvalidConfig)
	}
	docs, err := s.store.List(ctx, "", 0)
	if err != nil {
		return fmt.Errorf("list notes: %w", err)
	}

	logger.Section("Rebuild index")
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, body, err := s.renderer.Parse(docs[i].Rendered)
		if err != nil {
			logger.Warn("skip note %s: %v", docs[i].ID, err)
			continue
		}
		if err := s.index.Index(ctx, docs[i].ID, body); err != nil {
			return fmt.Errorf("index note %s: %w", docs[i].ID, err)
		}
	}
	if err := s.index.Rebuild(ctx); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	logger.Info("indexed %d notes", len(docs))
	return nil
}
