package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
	"github.com/custodia-labs/kbnote/internal/core/ports/driving"
	"github.com/custodia-labs/kbnote/internal/core/services"
	"github.com/custodia-labs/kbnote/internal/logger"
)

// mockClassificationService implements driving.ClassificationService for testing.
type mockClassificationService struct {
	result *domain.ClassificationResult
	err    error
	items  []domain.RawItem
}

func (m *mockClassificationService) Classify(_ context.Context, item domain.RawItem) (*domain.ClassificationResult, error) {
	m.items = append(m.items, item)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// mockNoteService implements driving.NoteService for testing.
type mockNoteService struct {
	mu        sync.Mutex
	documents map[string]*domain.Document
	related   []domain.RelatedDocument
	processed []domain.RawItem
	removed   []string
	rebuilt   bool
	err       error
}

func newMockNoteService() *mockNoteService {
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	return &mockNoteService{
		documents: map[string]*domain.Document{
			"doc-1": {
				ID:        "doc-1",
				Title:     "Dentist appointment",
				Category:  domain.CategoryHealth,
				Location:  "health/doc-1.md",
				Rendered:  "---\nid: doc-1\ntitle: Dentist appointment\n---\n\nCleaning on Friday.\n",
				CreatedAt: created,
				UpdatedAt: created,
			},
		},
		related: []domain.RelatedDocument{{DocumentID: "doc-1", Score: 0.42}},
	}
}

func (m *mockNoteService) Process(_ context.Context, item domain.RawItem) (*driving.NoteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed = append(m.processed, item)
	if m.err != nil {
		return nil, m.err
	}
	if item.Content == "fail" {
		return nil, domain.ErrInvalidInput
	}
	class := &domain.ClassificationResult{Category: domain.CategoryTask, Confidence: 0.8}
	if item.Content == "degrade" {
		class.Degraded = true
		class.DegradedReason = "inference unavailable"
	}
	result := &driving.NoteResult{
		Document: domain.Document{
			ID:       "doc-" + item.SourceRef,
			Title:    "Note " + item.SourceRef,
			Category: domain.CategoryTask,
			Location: "task/" + item.SourceRef + ".md",
			Rendered: "---\n---\n\n" + item.Content,
		},
		Classification: class,
		Related:        m.related,
	}
	return result, nil
}

func (m *mockNoteService) Render(_ *domain.DocumentMetadata, body string) (string, error) {
	return body, nil
}

func (m *mockNoteService) RelatedDocuments(_ context.Context, _ string, k int) []domain.RelatedDocument {
	if k < len(m.related) {
		return m.related[:k]
	}
	return m.related
}

func (m *mockNoteService) Get(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *mockNoteService) List(_ context.Context, category domain.Category, limit int) ([]domain.Document, error) {
	if category != "" && !category.IsValid() {
		return nil, domain.ErrInvalidInput
	}
	ids := make([]string, 0, len(m.documents))
	for id := range m.documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := []domain.Document{}
	for _, id := range ids {
		doc := m.documents[id]
		if category != "" && doc.Category != category {
			continue
		}
		out = append(out, *doc)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockNoteService) Rerender(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *doc
	out.Rendered += "modified: 2024-03-02\n"
	return &out, nil
}

func (m *mockNoteService) Remove(_ context.Context, id string) error {
	if _, ok := m.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.documents, id)
	m.removed = append(m.removed, id)
	return nil
}

func (m *mockNoteService) RebuildIndex(_ context.Context) error {
	if m.err != nil {
		return m.err
	}
	m.rebuilt = true
	return nil
}

// mockItemSource delivers a fixed list of items and records replies.
type mockItemSource struct {
	items []domain.RawItem

	mu      sync.Mutex
	replies []driven.ItemOutcome
}

func (m *mockItemSource) Items(ctx context.Context) (<-chan domain.RawItem, <-chan error) {
	items := make(chan domain.RawItem)
	errs := make(chan error)
	go func() {
		defer close(items)
		defer close(errs)
		for _, item := range m.items {
			select {
			case items <- item:
			case <-ctx.Done():
				return
			}
		}
	}()
	return items, errs
}

func (m *mockItemSource) Reply(_ context.Context, outcome driven.ItemOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, outcome)
	return nil
}

// mockConfigStore implements driven.ConfigStore for testing.
type mockConfigStore struct {
	cfg     domain.Config
	exists  bool
	saved   *domain.Config
	loadErr error
}

func (m *mockConfigStore) Load() (domain.Config, error) {
	return m.cfg, m.loadErr
}

func (m *mockConfigStore) Save(cfg domain.Config) error {
	m.saved = &cfg
	m.exists = true
	return nil
}

func (m *mockConfigStore) Exists() bool { return m.exists }

func (m *mockConfigStore) Path() string { return "/tmp/kbnote/config.toml" }

// mockValidator implements driven.AIConfigValidator for testing.
type mockValidator struct {
	err error
}

func (m *mockValidator) ValidateLLM(_ domain.LLMSettings) error {
	return m.err
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	classification *mockClassificationService
	notes          *mockNoteService
	config         *mockConfigStore
	validator      *mockValidator
	source         *mockItemSource
}

// current is the set installed by the latest setupTestServices call.
var current *testServices

// setupTestServices installs mock services and returns a cleanup function.
func setupTestServices() func() {
	current = &testServices{
		classification: &mockClassificationService{
			result: &domain.ClassificationResult{
				Category:   domain.CategoryFinance,
				Confidence: 0.91,
				Summary:    "Lunch with the team",
				Tags:       []string{"lunch", "team"},
				Extracted:  map[string]any{"amount": 42.5, "currency": "EUR"},
				Model:      "test-model",
			},
		},
		notes:     newMockNoteService(),
		config:    &mockConfigStore{cfg: domain.DefaultConfig()},
		validator: &mockValidator{},
		source:    &mockItemSource{},
	}

	SetServices(&Services{
		Classification: current.classification,
		Notes:          current.notes,
		ConfigStore:    current.config,
		Validator:      current.validator,
		Sources: func(_ string, _ bool) (driven.ItemSource, error) {
			return current.source, nil
		},
		LimiterStats: func() services.LimiterStats { return services.LimiterStats{} },
		Pipeline:     domain.DefaultConfig().Pipeline,
		HomeDir:      os.TempDir(),
	})
	logger.SetOutput(io.Discard)

	return func() {
		SetServices(&Services{Pipeline: domain.DefaultConfig().Pipeline})
		SetSetupError(nil)
		logger.SetOutput(os.Stderr)
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "kbnote", rootCmd.Use)
	assert.Equal(t, rootCmd, Root())
}

func TestRootCmd_HasCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{
		"classify", "process", "watch", "related", "rebuild-index",
		"remove", "show", "list", "config", "mcp", "version",
	} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRootCmd_VerboseFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("verbose")

	assert.NotNil(t, flag)
	assert.Equal(t, "v", flag.Shorthand)
}

func TestNotConfigured(t *testing.T) {
	t.Run("without setup error", func(t *testing.T) {
		assert.EqualError(t, notConfigured("note service"), "note service not configured")
	})

	t.Run("wraps setup error", func(t *testing.T) {
		cause := errors.New("database locked")
		SetSetupError(cause)
		defer SetSetupError(nil)

		err := notConfigured("note service")

		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "note service not configured")
	})
}

func TestSetVersion(t *testing.T) {
	original := version
	defer func() { version = original }()

	SetVersion("1.2.3")

	assert.Equal(t, "1.2.3", version)
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "sk-a...wxyz", maskAPIKey("sk-abcdefghwxyz"))
}
