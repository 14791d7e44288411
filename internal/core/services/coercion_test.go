package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name   string
		kind   domain.FieldKind
		raw    any
		want   any
		wantOK bool
	}{
		{"number from float", domain.KindNumber, 12.5, 12.5, true},
		{"number from int", domain.KindNumber, 5, 5.0, true},
		{"number with symbol and separators", domain.KindNumber, "¥3,200", 3200.0, true},
		{"number with yen suffix", domain.KindNumber, "1 500円", 1500.0, true},
		{"number from text", domain.KindNumber, "abc", nil, false},
		{"number NaN", domain.KindNumber, "NaN", nil, false},
		{"number Inf", domain.KindNumber, "Inf", nil, false},
		{"number from bool", domain.KindNumber, true, nil, false},

		{"bool native", domain.KindBoolean, false, false, true},
		{"bool yes", domain.KindBoolean, "Yes", true, true},
		{"bool check mark", domain.KindBoolean, "✓", true, true},
		{"bool kept", domain.KindBoolean, "kept", true, true},
		{"bool cjk", domain.KindBoolean, "済", true, true},
		{"bool other text", domain.KindBoolean, "nope", false, true},
		{"bool zero", domain.KindBoolean, 0.0, false, true},
		{"bool non-zero", domain.KindBoolean, 2.0, true, true},
		{"bool from array", domain.KindBoolean, []string{"x"}, nil, false},

		{"array from string", domain.KindArray, "a, b,, a", []string{"a", "b"}, true},
		{"array with ideographic comma", domain.KindArray, "りんご、みかん", []string{"りんご", "みかん"}, true},
		{"array from sequence", domain.KindArray, []any{"x", 1.0, " x "}, []string{"x", "1"}, true},
		{"array empty", domain.KindArray, " , ", nil, false},

		{"date iso", domain.KindDate, "2025-02-15", time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), true},
		{"date slashes", domain.KindDate, "2025/2/5", time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC), true},
		{"date dots", domain.KindDate, "2025.02.05", time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC), true},
		{"date month name", domain.KindDate, "Feb 15, 2025", time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), true},
		{"date cjk", domain.KindDate, "2025年2月15日", time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), true},
		{"date from rfc3339", domain.KindDate, "2025-02-15T23:30:00+09:00", time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), true},
		{"date relative", domain.KindDate, "tomorrow", nil, false},

		{"datetime rfc3339", domain.KindDatetime, "2025-02-15T10:30:00+09:00", time.Date(2025, 2, 15, 1, 30, 0, 0, time.UTC), true},
		{"datetime local", domain.KindDatetime, "2025-02-15 10:30", time.Date(2025, 2, 15, 10, 30, 0, 0, time.UTC), true},

		{"text trimmed", domain.KindText, "  hi ", "hi", true},
		{"text empty", domain.KindText, "   ", nil, false},
		{"text from number", domain.KindText, 3.5, "3.5", true},
		{"text from map", domain.KindText, map[string]any{}, nil, false},

		{"unknown kind", domain.FieldKind("blob"), "x", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceValue(tt.kind, tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestAnalyse(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		speed int
		want  TextStats
	}{
		{"mixed scripts", "Hello world. How are you? 今日は晴れ。", 200, TextStats{Words: 10, Chars: 27, Sentences: 3, ReadingMinutes: 1}},
		{"no terminator", "Team lunch ¥3200, receipt kept", 200, TextStats{Words: 5, Chars: 26, Sentences: 1, ReadingMinutes: 1}},
		{"empty", "", 200, TextStats{ReadingMinutes: 1}},
		{"long", strings.Repeat("word ", 450), 200, TextStats{Words: 450, Chars: 1800, Sentences: 1, ReadingMinutes: 3}},
		{"default speed", strings.Repeat("word ", 450), 0, TextStats{Words: 450, Chars: 1800, Sentences: 1, ReadingMinutes: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Analyse(tt.body, tt.speed))
		})
	}
}

func TestNoteID(t *testing.T) {
	item := testItem("Team lunch")
	assert.Equal(t, NoteID(item), NoteID(item))

	other := item
	other.SourceRef = "chat:43"
	assert.NotEqual(t, NoteID(item), NoteID(other))
}

func TestMetadataCoercer_Finance(t *testing.T) {
	c := newTestCoercer()
	item := testItem("Team lunch ¥3200, receipt kept")
	result := &domain.ClassificationResult{
		Category:   domain.CategoryFinance,
		Confidence: 0.923,
		Summary:    "Lunch with the team.",
		Tags:       []string{"food", "team"},
		Extracted: map[string]any{
			domain.FieldTitle:        "Team lunch",
			domain.FieldAmount:       3200.0,
			domain.FieldCurrency:     "JPY",
			domain.FieldReceipt:      true,
			domain.FieldActivityType: "meeting",
			"merchant":               "Sushi Bar",
		},
		Model: "mock-model",
	}

	meta := c.Coerce(result, item, item.Content)

	assert.Equal(t, NoteID(item), meta.ID())
	assert.Equal(t, "Team lunch", meta.Title())
	assert.Equal(t, domain.CategoryFinance, meta.Category())
	assert.Equal(t, 0.92, meta.Confidence())
	assert.Equal(t, "high", meta.Text(domain.FieldQuality))
	assert.Equal(t, "Lunch with the team.", meta.Text(domain.FieldSummary))
	assert.Equal(t, []string{"food", "team"}, meta.Strings(domain.FieldTags))

	amount, ok := meta.Number(domain.FieldAmount)
	require.True(t, ok)
	assert.Equal(t, 3200.0, amount)
	assert.Equal(t, "JPY", meta.Text(domain.FieldCurrency))
	assert.True(t, meta.Bool(domain.FieldReceipt))
	assert.Equal(t, "Sushi Bar", meta.Text("merchant"))

	// Field-set isolation: finance notes never carry health fields.
	assert.False(t, meta.Has(domain.FieldActivityType))
	assert.False(t, meta.Has(domain.FieldDueDate))

	created, ok := meta.Time(domain.FieldCreated)
	require.True(t, ok)
	assert.Equal(t, item.CreatedAt, created)
	modified, _ := meta.Time(domain.FieldModified)
	assert.Equal(t, created, modified)

	assert.Equal(t, "text", meta.Text(domain.FieldSource))
	assert.Equal(t, "chat:42", meta.Text(domain.FieldSourceRef))
	assert.Equal(t, "mock-model", meta.Text(domain.FieldAIModel))
	assert.False(t, meta.Degraded())
	assert.True(t, meta.Has(domain.FieldDegraded))
	assert.False(t, meta.Has(domain.FieldDegradedReason))
	assert.Equal(t, "1", meta.Text(domain.FieldProcessingVersion))
	assert.Equal(t, Checksum(item.Content), meta.Text(domain.FieldChecksum))

	words, _ := meta.Number(domain.FieldWordCount)
	assert.Equal(t, 5.0, words)
	reading, _ := meta.Number(domain.FieldReadingTime)
	assert.Equal(t, 1.0, reading)
}

func TestMetadataCoercer_HealthKeepsActivity(t *testing.T) {
	c := newTestCoercer()
	item := testItem("Ran 5km")
	meta := c.Coerce(&domain.ClassificationResult{
		Category:   domain.CategoryHealth,
		Confidence: 0.75,
		Extracted: map[string]any{
			domain.FieldActivityType: "running",
			"distanceKm":             "5",
			domain.FieldAmount:       10.0,
		},
	}, item, item.Content)

	assert.Equal(t, "running", meta.Text(domain.FieldActivityType))
	distance, ok := meta.Number("distanceKm")
	require.True(t, ok)
	assert.Equal(t, 5.0, distance)
	assert.False(t, meta.Has(domain.FieldAmount))
	assert.Equal(t, "medium", meta.Text(domain.FieldQuality))
	assert.False(t, meta.Has(domain.FieldAIModel))
}

func TestMetadataCoercer_DegradedKeepsPatternDates(t *testing.T) {
	c := newTestCoercer()
	item := testItem("Report due 2025-02-15")
	meta := c.Coerce(&domain.ClassificationResult{
		Category:       domain.CategoryUncategorized,
		Degraded:       true,
		DegradedReason: "quota_exceeded",
		Extracted: map[string]any{
			domain.FieldDueDate:      time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC),
			domain.FieldActivityType: "running",
		},
	}, item, item.Content)

	due, ok := meta.Time(domain.FieldDueDate)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), due)
	assert.False(t, meta.Has(domain.FieldActivityType))
	assert.True(t, meta.Degraded())
	assert.Equal(t, "quota_exceeded", meta.Text(domain.FieldDegradedReason))
	assert.Equal(t, domain.CategoryUncategorized, meta.Category())
	assert.Zero(t, meta.Confidence())
	assert.Equal(t, "low", meta.Text(domain.FieldQuality))
	assert.Equal(t, "Report due 2025-02-15", meta.Title())
}

func TestMetadataCoercer_ComputedFieldsWin(t *testing.T) {
	c := newTestCoercer()
	item := testItem("Note")
	meta := c.Coerce(&domain.ClassificationResult{
		Category:   domain.CategoryIdea,
		Confidence: 0.5,
		Extracted: map[string]any{
			domain.FieldID:         "evil",
			domain.FieldConfidence: 1.0,
			domain.FieldChecksum:   "x",
			domain.FieldWordCount:  999.0,
			"unknownField":         "dropped",
		},
	}, item, item.Content)

	assert.Equal(t, NoteID(item), meta.ID())
	assert.Equal(t, 0.5, meta.Confidence())
	assert.Equal(t, Checksum("Note"), meta.Text(domain.FieldChecksum))
	words, _ := meta.Number(domain.FieldWordCount)
	assert.Equal(t, 1.0, words)
	assert.False(t, meta.Has("unknownField"))
}

func TestMetadataCoercer_InvalidCategory(t *testing.T) {
	c := newTestCoercer()
	item := testItem("Note")
	meta := c.Coerce(&domain.ClassificationResult{Category: "recipes"}, item, item.Content)
	assert.Equal(t, domain.CategoryUncategorized, meta.Category())
}

func TestFallbackTitle(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		limit int
		want  string
	}{
		{"first line", "\n\n# Groceries\nmilk", 60, "Groceries"},
		{"truncated", "abcdefghij", 4, "abcd…"},
		{"runes not bytes", "今日は晴れです", 3, "今日は…"},
		{"empty", "  \n ", 60, "Untitled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fallbackTitle(tt.body, tt.limit))
		})
	}
}

func TestNewMetadataCoercer_InvalidFieldSets(t *testing.T) {
	notes := domain.DefaultConfig().Notes
	notes.FieldSets = map[domain.Category][]string{domain.CategoryTask: {"noSuchField"}}
	_, err := NewMetadataCoercer(domain.DefaultSchema(), notes)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
