package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driving"
)

// mockClassificationService is a mock implementation of driving.ClassificationService.
type mockClassificationService struct {
	result *domain.ClassificationResult
	err    error
	item   domain.RawItem
}

func (m *mockClassificationService) Classify(_ context.Context, item domain.RawItem) (*domain.ClassificationResult, error) {
	m.item = item
	return m.result, m.err
}

// mockNoteService is a mock implementation of driving.NoteService.
type mockNoteService struct {
	processed *driving.NoteResult
	related   []domain.RelatedDocument
	documents map[string]*domain.Document
	list      []domain.Document
	err       error
	relatedK  int
}

func (m *mockNoteService) Process(_ context.Context, _ domain.RawItem) (*driving.NoteResult, error) {
	return m.processed, m.err
}

func (m *mockNoteService) Render(_ *domain.DocumentMetadata, body string) (string, error) {
	return body, m.err
}

func (m *mockNoteService) RelatedDocuments(_ context.Context, _ string, k int) []domain.RelatedDocument {
	m.relatedK = k
	return m.related
}

func (m *mockNoteService) Get(_ context.Context, id string) (*domain.Document, error) {
	if doc, ok := m.documents[id]; ok {
		return doc, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockNoteService) List(_ context.Context, _ domain.Category, _ int) ([]domain.Document, error) {
	return m.list, m.err
}

func (m *mockNoteService) Rerender(_ context.Context, _ string) (*domain.Document, error) {
	return nil, m.err
}

func (m *mockNoteService) Remove(_ context.Context, _ string) error {
	return m.err
}

func (m *mockNoteService) RebuildIndex(_ context.Context) error {
	return m.err
}

func newTestServer(t *testing.T, classify *mockClassificationService, notes *mockNoteService) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Classification: classify, Notes: notes})
	require.NoError(t, err)
	return server
}
