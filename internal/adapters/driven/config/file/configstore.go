package file

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// Environment variables consulted for the LLM API key, in order. The
// provider-specific variable is only used for its own provider.
const (
	EnvAPIKey          = "KBNOTE_LLM_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

// ConfigStore is a file-based implementation of driven.ConfigStore using TOML.
// Configuration is stored in config.toml within the kbnote config directory.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	getenv   func(string) string
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, defaults to ~/.kbnote/config.toml.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".kbnote")
	}

	return &ConfigStore{
		filePath: filepath.Join(configDir, "config.toml"),
		getenv:   os.Getenv,
	}, nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Exists reports whether the configuration file is present.
func (s *ConfigStore) Exists() bool {
	_, err := os.Stat(s.filePath)
	return err == nil
}

// Load reads the TOML file over the defaults. Unknown keys are rejected.
func (s *ConfigStore) Load() (domain.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := domain.DefaultConfig()

	data, err := os.ReadFile(s.filePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No config file yet - that's fine, use defaults
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		var fc fileConfig
		dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
		if err := dec.Decode(&fc); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return cfg, fmt.Errorf("%w: %s: %s", domain.ErrInvalidConfig, s.filePath, strict.String())
			}
			return cfg, fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfig, s.filePath, err)
		}
		if err := fc.apply(&cfg); err != nil {
			return cfg, fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfig, s.filePath, err)
		}
	}

	cfg.LLM.APIKey = s.apiKey(cfg.LLM.Provider)
	return cfg, nil
}

// Save writes the configuration as TOML with restricted permissions.
func (s *ConfigStore) Save(cfg domain.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(toFileConfig(cfg))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(s.filePath, data, 0600)
}

func (s *ConfigStore) apiKey(provider domain.AIProvider) string {
	if key := s.getenv(EnvAPIKey); key != "" {
		return key
	}
	switch provider {
	case domain.AIProviderOpenAI:
		return s.getenv(EnvOpenAIAPIKey)
	case domain.AIProviderAnthropic:
		return s.getenv(EnvAnthropicAPIKey)
	default:
		return ""
	}
}

// fileConfig is the on-disk shape. Pointer and nil-able fields tell an
// absent key from an explicit zero so partial files keep the defaults.
type fileConfig struct {
	DataDir   *string          `toml:"data_dir,omitempty"`
	LLM       *fileLLM         `toml:"llm,omitempty"`
	Limiter   *fileLimiter     `toml:"limiter,omitempty"`
	Inference *fileInference   `toml:"inference,omitempty"`
	Pipeline  *filePipeline    `toml:"pipeline,omitempty"`
	Notes     *fileNotes       `toml:"notes,omitempty"`
	Index     *fileIndexConfig `toml:"index,omitempty"`
}

type fileLLM struct {
	Provider *string `toml:"provider,omitempty"`
	Model    *string `toml:"model,omitempty"`
	BaseURL  *string `toml:"base_url,omitempty"`
}

type fileLimiter struct {
	RequestsPerMinute *int    `toml:"requests_per_minute,omitempty"`
	Window            *string `toml:"window,omitempty"`
	MaxConcurrent     *int    `toml:"max_concurrent,omitempty"`
	AcquireTimeout    *string `toml:"acquire_timeout,omitempty"`
	MaxAttempts       *int    `toml:"max_attempts,omitempty"`
	BackoffBase       *string `toml:"backoff_base,omitempty"`
	BackoffMax        *string `toml:"backoff_max,omitempty"`
	CacheTTL          *string `toml:"cache_ttl,omitempty"`
}

type fileInference struct {
	MaxInputChars *int     `toml:"max_input_chars,omitempty"`
	MaxTokens     *int     `toml:"max_tokens,omitempty"`
	Temperature   *float64 `toml:"temperature,omitempty"`
}

type filePipeline struct {
	DefaultCategory *string `toml:"default_category,omitempty"`
	Workers         *int    `toml:"workers,omitempty"`
	QueueSize       *int    `toml:"queue_size,omitempty"`
	ItemTimeout     *string `toml:"item_timeout,omitempty"`
}

type fileNotes struct {
	ReadingSpeed      *int                `toml:"reading_speed,omitempty"`
	TitleMaxRunes     *int                `toml:"title_max_runes,omitempty"`
	ProcessingVersion *string             `toml:"processing_version,omitempty"`
	QualityBuckets    []fileQualityBucket `toml:"quality_buckets,omitempty"`
	FieldSets         map[string][]string `toml:"field_sets,omitempty"`
}

type fileQualityBucket struct {
	MinConfidence float64 `toml:"min_confidence"`
	Label         string  `toml:"label"`
}

type fileIndexConfig struct {
	RelatedK *int     `toml:"related_k,omitempty"`
	MinScore *float64 `toml:"min_score,omitempty"`
}

// apply copies every present value onto cfg.
//
//nolint:gocyclo // flat field-by-field copy
func (fc *fileConfig) apply(cfg *domain.Config) error {
	var errs []error
	duration := func(dst *time.Duration, src *string, key string) {
		if src == nil {
			return
		}
		d, err := time.ParseDuration(*src)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}

	setString(&cfg.DataDir, fc.DataDir)

	if l := fc.LLM; l != nil {
		if l.Provider != nil {
			cfg.LLM.Provider = domain.AIProvider(*l.Provider)
		}
		setString(&cfg.LLM.Model, l.Model)
		setString(&cfg.LLM.BaseURL, l.BaseURL)
	}

	if l := fc.Limiter; l != nil {
		setInt(&cfg.Limiter.RequestsPerMinute, l.RequestsPerMinute)
		duration(&cfg.Limiter.Window, l.Window, "limiter.window")
		setInt(&cfg.Limiter.MaxConcurrent, l.MaxConcurrent)
		duration(&cfg.Limiter.AcquireTimeout, l.AcquireTimeout, "limiter.acquire_timeout")
		setInt(&cfg.Limiter.MaxAttempts, l.MaxAttempts)
		duration(&cfg.Limiter.BackoffBase, l.BackoffBase, "limiter.backoff_base")
		duration(&cfg.Limiter.BackoffMax, l.BackoffMax, "limiter.backoff_max")
		duration(&cfg.Limiter.CacheTTL, l.CacheTTL, "limiter.cache_ttl")
	}

	if i := fc.Inference; i != nil {
		setInt(&cfg.Inference.MaxInputChars, i.MaxInputChars)
		setInt(&cfg.Inference.MaxTokens, i.MaxTokens)
		if i.Temperature != nil {
			cfg.Inference.Temperature = *i.Temperature
		}
	}

	if p := fc.Pipeline; p != nil {
		if p.DefaultCategory != nil {
			cfg.Pipeline.DefaultCategory = domain.Category(*p.DefaultCategory)
		}
		setInt(&cfg.Pipeline.Workers, p.Workers)
		setInt(&cfg.Pipeline.QueueSize, p.QueueSize)
		duration(&cfg.Pipeline.ItemTimeout, p.ItemTimeout, "pipeline.item_timeout")
	}

	if n := fc.Notes; n != nil {
		setInt(&cfg.Notes.ReadingSpeed, n.ReadingSpeed)
		setInt(&cfg.Notes.TitleMaxRunes, n.TitleMaxRunes)
		setString(&cfg.Notes.ProcessingVersion, n.ProcessingVersion)
		if n.QualityBuckets != nil {
			buckets := make([]domain.QualityBucket, 0, len(n.QualityBuckets))
			for _, b := range n.QualityBuckets {
				buckets = append(buckets, domain.QualityBucket{MinConfidence: b.MinConfidence, Label: b.Label})
			}
			cfg.Notes.QualityBuckets = buckets
		}
		// Listed categories replace their default entry; others keep it.
		for category, fields := range n.FieldSets {
			cfg.Notes.FieldSets[domain.Category(category)] = append([]string(nil), fields...)
		}
	}

	if x := fc.Index; x != nil {
		setInt(&cfg.Index.RelatedK, x.RelatedK)
		if x.MinScore != nil {
			cfg.Index.MinScore = *x.MinScore
		}
	}

	return errors.Join(errs...)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

// toFileConfig converts cfg into its complete on-disk form.
func toFileConfig(cfg domain.Config) fileConfig {
	str := func(s string) *string { return &s }
	num := func(n int) *int { return &n }
	flt := func(f float64) *float64 { return &f }
	dur := func(d time.Duration) *string { return str(d.String()) }

	fc := fileConfig{
		LLM: &fileLLM{
			Provider: str(cfg.LLM.Provider.String()),
			Model:    str(cfg.LLM.Model),
			BaseURL:  str(cfg.LLM.BaseURL),
		},
		Limiter: &fileLimiter{
			RequestsPerMinute: num(cfg.Limiter.RequestsPerMinute),
			Window:            dur(cfg.Limiter.Window),
			MaxConcurrent:     num(cfg.Limiter.MaxConcurrent),
			AcquireTimeout:    dur(cfg.Limiter.AcquireTimeout),
			MaxAttempts:       num(cfg.Limiter.MaxAttempts),
			BackoffBase:       dur(cfg.Limiter.BackoffBase),
			BackoffMax:        dur(cfg.Limiter.BackoffMax),
			CacheTTL:          dur(cfg.Limiter.CacheTTL),
		},
		Inference: &fileInference{
			MaxInputChars: num(cfg.Inference.MaxInputChars),
			MaxTokens:     num(cfg.Inference.MaxTokens),
			Temperature:   flt(cfg.Inference.Temperature),
		},
		Pipeline: &filePipeline{
			DefaultCategory: str(cfg.Pipeline.DefaultCategory.String()),
			Workers:         num(cfg.Pipeline.Workers),
			QueueSize:       num(cfg.Pipeline.QueueSize),
			ItemTimeout:     dur(cfg.Pipeline.ItemTimeout),
		},
		Notes: &fileNotes{
			ReadingSpeed:      num(cfg.Notes.ReadingSpeed),
			TitleMaxRunes:     num(cfg.Notes.TitleMaxRunes),
			ProcessingVersion: str(cfg.Notes.ProcessingVersion),
			FieldSets:         make(map[string][]string, len(cfg.Notes.FieldSets)),
		},
		Index: &fileIndexConfig{
			RelatedK: num(cfg.Index.RelatedK),
			MinScore: flt(cfg.Index.MinScore),
		},
	}
	if cfg.DataDir != "" {
		fc.DataDir = str(cfg.DataDir)
	}
	for _, b := range cfg.Notes.QualityBuckets {
		fc.Notes.QualityBuckets = append(fc.Notes.QualityBuckets, fileQualityBucket(b))
	}
	for c, fields := range cfg.Notes.FieldSets {
		fc.Notes.FieldSets[c.String()] = fields
	}
	return fc
}
