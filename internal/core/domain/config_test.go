package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate(DefaultSchema()))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "mistral" }},
		{"zero rpm", func(c *Config) { c.Limiter.RequestsPerMinute = 0 }},
		{"zero concurrency", func(c *Config) { c.Limiter.MaxConcurrent = 0 }},
		{"zero attempts", func(c *Config) { c.Limiter.MaxAttempts = 0 }},
		{"backoff max below base", func(c *Config) { c.Limiter.BackoffMax = time.Millisecond }},
		{"unknown default category", func(c *Config) { c.Pipeline.DefaultCategory = "misc" }},
		{"zero reading speed", func(c *Config) { c.Notes.ReadingSpeed = 0 }},
		{"bucket out of range", func(c *Config) { c.Notes.QualityBuckets = []QualityBucket{{MinConfidence: 1.5, Label: "x"}} }},
		{"unknown field in set", func(c *Config) { c.Notes.FieldSets = map[Category][]string{CategoryTask: {"colour"}} }},
		{"unknown group in set", func(c *Config) { c.Notes.FieldSets = map[Category][]string{CategoryTask: {"@misc"}} }},
		{"unknown category in set", func(c *Config) { c.Notes.FieldSets = map[Category][]string{"misc": {"status"}} }},
		{"temperature", func(c *Config) { c.Inference.Temperature = 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(DefaultSchema()), ErrInvalidConfig)
		})
	}
}

func TestNotesConfig_QualityFor(t *testing.T) {
	n := NotesConfig{QualityBuckets: []QualityBucket{
		{MinConfidence: 0, Label: "low"},
		{MinConfidence: 0.9, Label: "high"},
		{MinConfidence: 0.7, Label: "medium"},
	}}

	assert.Equal(t, "high", n.QualityFor(0.95))
	assert.Equal(t, "high", n.QualityFor(0.9))
	assert.Equal(t, "medium", n.QualityFor(0.75))
	assert.Equal(t, "low", n.QualityFor(0))

	assert.Empty(t, NotesConfig{QualityBuckets: []QualityBucket{{MinConfidence: 0.5, Label: "ok"}}}.QualityFor(0.2))
}

func TestResolveFieldSets(t *testing.T) {
	s := DefaultSchema()
	sets, err := ResolveFieldSets(s, DefaultFieldSets())
	require.NoError(t, err)

	assert.True(t, sets.Allows(s, CategoryFinance, FieldAmount))
	assert.True(t, sets.Allows(s, CategoryFinance, FieldReceipt))
	assert.False(t, sets.Allows(s, CategoryFinance, FieldActivityType))
	assert.True(t, sets.Allows(s, CategoryHealth, FieldActivityType))
	assert.True(t, sets.Allows(s, CategoryTask, "participants"))
	assert.True(t, sets.Allows(s, CategoryUncategorized, FieldDueDate))
	assert.False(t, sets.Allows(s, CategoryUncategorized, FieldActivityType))

	t.Run("common groups always allowed", func(t *testing.T) {
		assert.True(t, sets.Allows(s, CategoryFinance, FieldLinks))
		assert.True(t, sets.Allows(s, Category("missing"), FieldSummary))
	})

	t.Run("unknown field never allowed", func(t *testing.T) {
		assert.False(t, sets.Allows(s, CategoryTask, "colour"))
	})

	t.Run("every category allows dueDate", func(t *testing.T) {
		for _, c := range AllCategories() {
			assert.True(t, sets.Allows(s, c, FieldDueDate), c)
		}
	})
}
