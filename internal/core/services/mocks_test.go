package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
	"github.com/custodia-labs/kbnote/internal/extractors/pattern"
	"github.com/custodia-labs/kbnote/internal/renderers/frontmatter"
)

// mockLLM answers chat requests through a function.
type mockLLM struct {
	chat  func(ctx context.Context, call int, messages []driven.ChatMessage) (string, error)
	calls atomic.Int32

	mu       sync.Mutex
	messages [][]driven.ChatMessage
}

func (m *mockLLM) Chat(ctx context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	call := int(m.calls.Add(1))
	m.mu.Lock()
	m.messages = append(m.messages, messages)
	m.mu.Unlock()
	return m.chat(ctx, call, messages)
}

func (m *mockLLM) ModelName() string { return "mock-model" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error { return nil }

func (m *mockLLM) lastMessages() []driven.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return nil
	}
	return m.messages[len(m.messages)-1]
}

// replyLLM always answers with reply.
func replyLLM(reply string) *mockLLM {
	return &mockLLM{chat: func(context.Context, int, []driven.ChatMessage) (string, error) {
		return reply, nil
	}}
}

// errLLM always fails with err.
func errLLM(err error) *mockLLM {
	return &mockLLM{chat: func(context.Context, int, []driven.ChatMessage) (string, error) {
		return "", err
	}}
}

// blockingLLM waits for the caller's context to end.
func blockingLLM() *mockLLM {
	return &mockLLM{chat: func(ctx context.Context, _ int, _ []driven.ChatMessage) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
}

// mockPrompts serves fixed prompts.
type mockPrompts struct {
	prompts map[string]string
}

func (m *mockPrompts) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPrompts) Reload() {}

// mockIndex is a SimilarityIndex with canned query results.
type mockIndex struct {
	mu       sync.Mutex
	hits     []domain.RelatedDocument
	queryErr error
	indexErr error
	indexed  map[string]string
	removed  []string
	rebuilt  int
}

func newMockIndex() *mockIndex {
	return &mockIndex{indexed: make(map[string]string)}
}

func (m *mockIndex) Index(_ context.Context, id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexErr != nil {
		return m.indexErr
	}
	m.indexed[id] = text
	return nil
}

func (m *mockIndex) Query(_ context.Context, _ string, k int) ([]domain.RelatedDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	hits := m.hits
	if len(hits) > k {
		hits = hits[:k]
	}
	return append([]domain.RelatedDocument(nil), hits...), nil
}

func (m *mockIndex) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, id)
	delete(m.indexed, id)
	return nil
}

func (m *mockIndex) Rebuild(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebuilt++
	return nil
}

func (m *mockIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.indexed)
}

func noSleep(context.Context, time.Duration) error { return nil }

// testLimiterConfig has generous bounds and no real waiting.
func testLimiterConfig() domain.LimiterConfig {
	return domain.LimiterConfig{
		RequestsPerMinute: 60000,
		Window:            time.Minute,
		MaxConcurrent:     4,
		AcquireTimeout:    time.Second,
		MaxAttempts:       3,
		BackoffBase:       10 * time.Millisecond,
		BackoffMax:        time.Second,
		CacheTTL:          time.Hour,
	}
}

// newTestPipeline builds a pipeline over llm, which may be nil.
func newTestPipeline(llm driven.LLMService) *ClassificationPipeline {
	cfg := domain.DefaultConfig()
	return NewClassificationPipeline(
		pattern.New(),
		NewInferenceClient(llm, nil, cfg.Inference),
		NewLimiter(testLimiterConfig(), WithSleep(noSleep)),
		nil,
		domain.DefaultSchema(),
		cfg.Pipeline,
	)
}

func newTestCoercer() *MetadataCoercer {
	c, err := NewMetadataCoercer(domain.DefaultSchema(), domain.DefaultConfig().Notes)
	if err != nil {
		panic(err)
	}
	return c
}

func newTestRenderer() *frontmatter.Serializer {
	s, err := frontmatter.New(domain.DefaultSchema())
	if err != nil {
		panic(err)
	}
	return s
}

func testItem(content string) domain.RawItem {
	return domain.RawItem{
		Content:     content,
		ContentType: domain.ContentTypeText,
		CreatedAt:   time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC),
		SourceRef:   "chat:42",
	}
}

const financeReply = `{"category": "finance", "confidence": 0.92, "title": "Team lunch",
"summary": "Lunch with the team.", "tags": ["food", "team"],
"fields": {"amount": "3,000", "merchant": "Sushi Bar", "activityType": "meeting"}}`
