package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Config is the validated runtime configuration. It is built once at
// startup and passed by value to the services that need it.
type Config struct {
	// LLM selects the inference provider.
	LLM LLMSettings

	// Limiter bounds outbound inference calls.
	Limiter LimiterConfig

	// Inference shapes the classification request.
	Inference InferenceConfig

	// Pipeline configures item processing.
	Pipeline PipelineConfig

	// Notes configures metadata coercion.
	Notes NotesConfig

	// Index configures related-document lookups.
	Index IndexConfig

	// DataDir holds the database and prompt files. Empty uses ~/.kbnote.
	DataDir string
}

// LimiterConfig bounds outbound inference calls and caches their results.
type LimiterConfig struct {
	// RequestsPerMinute is N in "N calls per Window".
	RequestsPerMinute int

	// Window is the rate window. Defaults to one minute.
	Window time.Duration

	// MaxConcurrent bounds in-flight calls.
	MaxConcurrent int

	// AcquireTimeout is how long a call may wait for capacity before
	// failing with ErrBackpressure.
	AcquireTimeout time.Duration

	// MaxAttempts bounds retries of transient failures, first call included.
	MaxAttempts int

	// BackoffBase is the delay before the first retry; it doubles per attempt.
	BackoffBase time.Duration

	// BackoffMax caps a single backoff delay.
	BackoffMax time.Duration

	// CacheTTL is how long a successful result is served from cache.
	CacheTTL time.Duration
}

// InferenceConfig shapes the classification request.
type InferenceConfig struct {
	// MaxInputChars truncates the text sent to the model.
	MaxInputChars int

	// MaxTokens bounds the model response.
	MaxTokens int

	// Temperature controls randomness.
	Temperature float64
}

// PipelineConfig configures item processing.
type PipelineConfig struct {
	// DefaultCategory is used when classification degrades.
	DefaultCategory Category

	// Workers is the number of concurrent item workers.
	Workers int

	// QueueSize bounds the number of queued items.
	QueueSize int

	// ItemTimeout is the per-item deadline.
	ItemTimeout time.Duration
}

// QualityBucket maps a confidence threshold to a quality label.
type QualityBucket struct {
	MinConfidence float64
	Label         string
}

// NotesConfig configures metadata coercion.
type NotesConfig struct {
	// ReadingSpeed is words per minute used for readingTime.
	ReadingSpeed int

	// QualityBuckets map confidence to a quality label. The first bucket
	// whose threshold the confidence meets wins, checked from the highest.
	QualityBuckets []QualityBucket

	// FieldSets lists the category-specific fields each category may carry.
	// Entries are field names or "@group" to include a whole group.
	FieldSets map[Category][]string

	// TitleMaxRunes truncates titles derived from the body.
	TitleMaxRunes int

	// ProcessingVersion is stamped into every note.
	ProcessingVersion string
}

// IndexConfig configures related-document lookups.
type IndexConfig struct {
	// RelatedK is the number of related documents linked into a new note.
	// Zero disables linking.
	RelatedK int

	// MinScore drops hits below this cosine similarity.
	MinScore float64
}

// DefaultConfig returns the configuration used when no file is present.
// The LLM provider is left unconfigured; notes degrade until it is set.
func DefaultConfig() Config {
	return Config{
		Limiter: LimiterConfig{
			RequestsPerMinute: 20,
			Window:            time.Minute,
			MaxConcurrent:     4,
			AcquireTimeout:    30 * time.Second,
			MaxAttempts:       3,
			BackoffBase:       500 * time.Millisecond,
			BackoffMax:        8 * time.Second,
			CacheTTL:          24 * time.Hour,
		},
		Inference: InferenceConfig{
			MaxInputChars: 4000,
			MaxTokens:     600,
			Temperature:   0.1,
		},
		Pipeline: PipelineConfig{
			DefaultCategory: CategoryUncategorized,
			Workers:         4,
			QueueSize:       64,
			ItemTimeout:     2 * time.Minute,
		},
		Notes: NotesConfig{
			ReadingSpeed:      200,
			QualityBuckets:    DefaultQualityBuckets(),
			FieldSets:         DefaultFieldSets(),
			TitleMaxRunes:     60,
			ProcessingVersion: "1",
		},
		Index: IndexConfig{
			RelatedK: 3,
			MinScore: 0.1,
		},
	}
}

// DefaultQualityBuckets returns the built-in confidence buckets.
func DefaultQualityBuckets() []QualityBucket {
	return []QualityBucket{
		{MinConfidence: 0.9, Label: "high"},
		{MinConfidence: 0.7, Label: "medium"},
		{MinConfidence: 0, Label: "low"},
	}
}

// DefaultFieldSets returns the built-in category field-set tables.
// dueDate is allowed everywhere so an explicit deadline survives whichever
// category the model picks.
func DefaultFieldSets() map[Category][]string {
	return map[Category][]string{
		CategoryTask:      {"@task", "@collaboration"},
		CategoryFinance:   {"@finance", FieldDueDate},
		CategoryHealth:    {"@health", FieldDueDate},
		CategoryKnowledge: {"@knowledge", FieldDueDate},
		CategoryEvent:     {"@temporal", "@collaboration", FieldDueDate},
		CategoryIdea:      {"topic", "references", FieldDueDate},
		CategoryJournal:   {"mood", "location", "participants", FieldDueDate},
		CategoryReference: {"@knowledge", FieldDueDate},
		CategoryShopping:  {"@finance", FieldDueDate},
		CategoryTravel:    {"@temporal", FieldAmount, FieldCurrency, "participants", FieldDueDate},
		CategoryUncategorized: {
			FieldDueDate, FieldAmount, FieldCurrency, FieldEstimatedHours,
			FieldReceipt, FieldTaxDeductible, FieldCompleted,
		},
	}
}

// Validate rejects malformed values. Field-set entries are checked
// against schema.
func (c Config) Validate(schema *Schema) error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.LLM.Provider != "" && !c.LLM.Provider.IsValid() {
		bad("llm.provider %q is not one of ollama, openai, anthropic", c.LLM.Provider)
	}

	l := c.Limiter
	if l.RequestsPerMinute <= 0 {
		bad("limiter.requests_per_minute must be positive")
	}
	if l.Window <= 0 {
		bad("limiter.window must be positive")
	}
	if l.MaxConcurrent <= 0 {
		bad("limiter.max_concurrent must be positive")
	}
	if l.AcquireTimeout <= 0 {
		bad("limiter.acquire_timeout must be positive")
	}
	if l.MaxAttempts <= 0 {
		bad("limiter.max_attempts must be positive")
	}
	if l.BackoffBase < 0 || l.BackoffMax < l.BackoffBase {
		bad("limiter.backoff_base must be non-negative and not exceed backoff_max")
	}
	if l.CacheTTL < 0 {
		bad("limiter.cache_ttl must not be negative")
	}

	if c.Inference.MaxInputChars <= 0 {
		bad("inference.max_input_chars must be positive")
	}
	if c.Inference.Temperature < 0 || c.Inference.Temperature > 2 {
		bad("inference.temperature must be within [0, 2]")
	}

	p := c.Pipeline
	if !p.DefaultCategory.IsValid() {
		bad("pipeline.default_category %q is not a known category", p.DefaultCategory)
	}
	if p.Workers <= 0 {
		bad("pipeline.workers must be positive")
	}
	if p.QueueSize <= 0 {
		bad("pipeline.queue_size must be positive")
	}
	if p.ItemTimeout <= 0 {
		bad("pipeline.item_timeout must be positive")
	}

	n := c.Notes
	if n.ReadingSpeed <= 0 {
		bad("notes.reading_speed must be positive")
	}
	if n.TitleMaxRunes <= 0 {
		bad("notes.title_max_runes must be positive")
	}
	if len(n.QualityBuckets) == 0 {
		bad("notes.quality_buckets must not be empty")
	}
	for _, b := range n.QualityBuckets {
		if b.Label == "" || math.IsNaN(b.MinConfidence) || b.MinConfidence < 0 || b.MinConfidence > 1 {
			bad("notes.quality_buckets entry %q must have a label and a threshold within [0, 1]", b.Label)
		}
	}
	if schema != nil {
		if _, err := ResolveFieldSets(schema, n.FieldSets); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Index.RelatedK < 0 {
		bad("index.related_k must not be negative")
	}
	if c.Index.MinScore < 0 || c.Index.MinScore > 1 {
		bad("index.min_score must be within [0, 1]")
	}

	return errors.Join(errs...)
}

// QualityFor returns the quality label for a confidence value.
func (n NotesConfig) QualityFor(confidence float64) string {
	buckets := append([]QualityBucket(nil), n.QualityBuckets...)
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].MinConfidence > buckets[j].MinConfidence
	})
	for _, b := range buckets {
		if confidence >= b.MinConfidence {
			return b.Label
		}
	}
	return ""
}

// FieldSets is a resolved field-set table: the category-specific field
// names each category may carry.
type FieldSets map[Category]map[string]bool

// Allows reports whether a field may appear in a note of the category.
// Fields of common groups are always allowed.
func (f FieldSets) Allows(schema *Schema, category Category, field string) bool {
	def, ok := schema.Lookup(field)
	if !ok {
		return false
	}
	if def.Group.IsCommon() {
		return true
	}
	return f[category][field]
}

// ResolveFieldSets expands "@group" entries and checks every name against
// the schema. Categories absent from the table allow only common fields.
func ResolveFieldSets(schema *Schema, table map[Category][]string) (FieldSets, error) {
	resolved := make(FieldSets, len(table))
	for category, entries := range table {
		if !category.IsValid() {
			return nil, fmt.Errorf("%w: field set for unknown category %q", ErrInvalidConfig, category)
		}
		allowed := make(map[string]bool)
		for _, entry := range entries {
			if group, ok := strings.CutPrefix(entry, "@"); ok {
				names := schema.GroupFields(FieldGroup(group))
				if len(names) == 0 {
					return nil, fmt.Errorf("%w: field set %q names unknown group %q", ErrInvalidConfig, category, group)
				}
				for _, name := range names {
					allowed[name] = true
				}
				continue
			}
			if _, ok := schema.Lookup(entry); !ok {
				return nil, fmt.Errorf("%w: field set %q names unknown field %q", ErrInvalidConfig, category, entry)
			}
			allowed[entry] = true
		}
		resolved[category] = allowed
	}
	return resolved, nil
}
