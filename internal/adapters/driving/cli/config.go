package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Commands for the kbnote configuration file. API keys are read from
KBNOTE_LLM_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY and never stored.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the defaults",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and test the LLM provider",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}
	if configStore.Exists() && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configStore.Path())
	}

	if err := configStore.Save(domain.DefaultConfig()); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	cmd.Printf("Configuration written to %s\n", configStore.Path())
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cfg, err := configStore.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	s := outputStyles(cmd)
	section := func(name string) {
		cmd.Println()
		cmd.Println(s.Title.Render("[" + name + "]"))
	}

	cmd.Println("Current Configuration")
	cmd.Println("=====================")
	if configStore.Exists() {
		cmd.Printf("File: %s\n", configStore.Path())
	} else {
		cmd.Printf("File: %s (not created, using defaults)\n", configStore.Path())
	}

	section("LLM")
	if cfg.LLM.Provider == "" {
		names := make([]string, 0, 3)
		for _, p := range domain.AllLLMProviders() {
			names = append(names, p.String())
		}
		cmd.Printf("  Provider: (not set, notes are degraded; choose %s)\n", strings.Join(names, ", "))
	} else {
		cmd.Printf("  Provider: %s\n", cfg.LLM.Provider.Description())
	}
	switch {
	case cfg.LLM.Model != "":
		cmd.Printf("  Model: %s\n", cfg.LLM.Model)
	case cfg.LLM.Provider != "":
		cmd.Printf("  Model: %s (default)\n", domain.DefaultLLMModels()[cfg.LLM.Provider])
	}
	if cfg.LLM.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", cfg.LLM.BaseURL)
	}
	if cfg.LLM.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(cfg.LLM.APIKey))
	} else {
		cmd.Println("  API Key: (not set)")
	}

	section("Limiter")
	l := cfg.Limiter
	cmd.Printf("  Rate: %d per %s\n", l.RequestsPerMinute, l.Window)
	cmd.Printf("  Max concurrent: %d (acquire timeout %s)\n", l.MaxConcurrent, l.AcquireTimeout)
	cmd.Printf("  Retries: %d attempts, backoff %s to %s\n", l.MaxAttempts, l.BackoffBase, l.BackoffMax)
	cmd.Printf("  Cache TTL: %s\n", l.CacheTTL)

	section("Pipeline")
	p := cfg.Pipeline
	cmd.Printf("  Default category: %s\n", p.DefaultCategory)
	cmd.Printf("  Workers: %d, queue: %d, item timeout: %s\n", p.Workers, p.QueueSize, p.ItemTimeout)

	section("Inference")
	i := cfg.Inference
	cmd.Printf("  Max input chars: %d, max tokens: %d, temperature: %.1f\n", i.MaxInputChars, i.MaxTokens, i.Temperature)

	section("Notes")
	cmd.Printf("  Reading speed: %d wpm\n", cfg.Notes.ReadingSpeed)
	for _, b := range cfg.Notes.QualityBuckets {
		cmd.Printf("  Quality %s: confidence >= %.2f\n", b.Label, b.MinConfidence)
	}
	categories := make([]string, 0, len(cfg.Notes.FieldSets))
	for c := range cfg.Notes.FieldSets {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)
	for _, c := range categories {
		cmd.Printf("  Fields %s: %v\n", s.Category(domain.Category(c)).Render(c), cfg.Notes.FieldSets[domain.Category(c)])
	}

	section("Index")
	cmd.Printf("  Related notes: %d (min score %.2f)\n", cfg.Index.RelatedK, cfg.Index.MinScore)
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cfg, err := configStore.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(domain.DefaultSchema()); err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}
	cmd.Println("Configuration: OK")

	if cfg.LLM.Provider == "" {
		cmd.Println("LLM: not configured (notes will be degraded)")
		return nil
	}
	if !cfg.LLM.IsConfigured() {
		return fmt.Errorf("LLM %s needs an API key: set KBNOTE_LLM_API_KEY", cfg.LLM.Provider)
	}
	if aiValidator == nil {
		return errors.New("AI validator not configured")
	}
	if err := aiValidator.ValidateLLM(cfg.LLM); err != nil {
		return fmt.Errorf("LLM %s is not usable: %w", cfg.LLM.Provider, err)
	}
	cmd.Printf("LLM: %s reachable\n", cfg.LLM.Provider.Description())
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}
	cmd.Println(configStore.Path())
	return nil
}

// maskAPIKey shows only the ends of a key.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
