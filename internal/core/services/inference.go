package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
	"github.com/custodia-labs/kbnote/internal/logger"
)

// DefaultClassifyPrompt is the classification system prompt used when no
// PromptStore overrides it. %s receives the category list.
const DefaultClassifyPrompt = `You file personal notes into a knowledge base.
Classify the note into exactly one category:
%s
Reply with a single JSON object and nothing else:
{"category": "<category>", "confidence": <0..1>, "title": "<short title>",
 "summary": "<one or two sentences>", "tags": ["<tag>", ...],
 "fields": {"<fieldName>": <value>, ...}}
Only include fields you are sure of.`

// DefaultStrictPrompt is used for the retry after a malformed response.
const DefaultStrictPrompt = DefaultClassifyPrompt + `
Your previous reply could not be parsed. Output ONLY the JSON object.
No prose, no code fences, no trailing commas.`

// InferenceClient wraps one outbound classification call: it builds the
// request, parses the reply into a flat InferenceResult and classifies
// failures. It holds no mutable state.
type InferenceClient struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	cfg     domain.InferenceConfig
}

// NewInferenceClient creates an InferenceClient. llm may be nil, in which
// case every call fails with domain.ErrLLMUnavailable.
func NewInferenceClient(llm driven.LLMService, prompts driven.PromptStore, cfg domain.InferenceConfig) *InferenceClient {
	return &InferenceClient{
		llm:     llm,
		prompts: prompts,
		cfg:     cfg,
	}
}

// ModelName returns the configured model, or "" without an LLM.
func (c *InferenceClient) ModelName() string {
	if c.llm == nil {
		return ""
	}
	return c.llm.ModelName()
}

// Classify asks the model to classify text. strict selects the stricter
// prompt used after a malformed response.
func (c *InferenceClient) Classify(ctx context.Context, text string, strict bool) (*domain.InferenceResult, error) {
	if c.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	messages := []driven.ChatMessage{
		{Role: "system", Content: c.systemPrompt(strict)},
		{Role: "user", Content: "Note:\n\n" + truncateRunes(text, c.cfg.MaxInputChars)},
	}
	reply, err := c.llm.Chat(ctx, messages, driven.ChatOptions{
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	result, err := ParseInferenceReply(reply)
	if err != nil {
		logger.Debug("inference: unparseable reply: %.200q", reply)
		return nil, err
	}
	result.Model = c.llm.ModelName()
	return result, nil
}

func (c *InferenceClient) systemPrompt(strict bool) string {
	name, fallback := driven.PromptClassify, DefaultClassifyPrompt
	if strict {
		name, fallback = driven.PromptClassifyStrict, DefaultStrictPrompt
	}
	tmpl := fallback
	if c.prompts != nil {
		if p, err := c.prompts.Load(name); err == nil && p != "" {
			tmpl = p
		}
	}

	var list strings.Builder
	for _, cat := range domain.AllCategories() {
		fmt.Fprintf(&list, "- %s: %s\n", cat, cat.Description())
	}
	if !strings.Contains(tmpl, "%s") {
		return tmpl + "\n\nCategories:\n" + list.String()
	}
	return fmt.Sprintf(tmpl, list.String())
}

// ParseInferenceReply parses a model reply into an InferenceResult.
// Markdown code fences and prose around the JSON object are tolerated.
// A reply without a known category and a numeric confidence is
// domain.ErrMalformedResponse.
func ParseInferenceReply(reply string) (*domain.InferenceResult, error) {
	raw := extractJSONObject(reply)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object in reply", domain.ErrMalformedResponse)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}

	label, _ := obj["category"].(string)
	category, err := domain.ParseCategory(label)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}
	confidence, ok := toConfidence(obj["confidence"])
	if !ok {
		return nil, fmt.Errorf("%w: missing or non-numeric confidence", domain.ErrMalformedResponse)
	}

	result := &domain.InferenceResult{
		Category:   category,
		Confidence: confidence,
		Summary:    stringValue(obj["summary"]),
		Title:      stringValue(obj["title"]),
		Tags:       normaliseTags(obj["tags"]),
		Fields:     make(map[string]any),
	}

	if nested, ok := obj["fields"].(map[string]any); ok {
		for k, v := range nested {
			result.Fields[k] = v
		}
	}
	// Some models put extra fields at the top level; keep them flat.
	for k, v := range obj {
		switch k {
		case "category", "confidence", "summary", "title", "tags", "fields":
			continue
		}
		if _, exists := result.Fields[k]; !exists {
			result.Fields[k] = v
		}
	}
	return result, nil
}

// extractJSONObject strips code fences and returns the outermost {...}.
func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// toConfidence reads a confidence value. Percentages (1 < v <= 100) are
// scaled down; results are clamped to [0, 1].
func toConfidence(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(x), "%"), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f > 1 && f <= 100 {
		f /= 100
	}
	return math.Max(0, math.Min(1, f)), true
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// normaliseTags accepts an array or a comma-separated string, strips
// leading '#', lower-cases and de-duplicates preserving order.
func normaliseTags(v any) []string {
	var raw []string
	switch x := v.(type) {
	case []any:
		for _, item := range x {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = strings.Split(x, ",")
	}

	seen := make(map[string]bool, len(raw))
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(t), "#")))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// Available reports whether an LLM is configured.
func (c *InferenceClient) Available() bool {
	return c.llm != nil
}
