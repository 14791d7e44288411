// Command kbnote turns free-form text into structured knowledge-base notes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/kbnote/internal/adapters/driven/ai"
	"github.com/custodia-labs/kbnote/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kbnote/internal/adapters/driven/index/tfidf"
	"github.com/custodia-labs/kbnote/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/kbnote/internal/adapters/driven/transport/inbox"
	"github.com/custodia-labs/kbnote/internal/adapters/driving/cli"
	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
	"github.com/custodia-labs/kbnote/internal/core/services"
	"github.com/custodia-labs/kbnote/internal/extractors/pattern"
	"github.com/custodia-labs/kbnote/internal/logger"
	"github.com/custodia-labs/kbnote/internal/normalisers/html"
	"github.com/custodia-labs/kbnote/internal/normalisers/plaintext"
	"github.com/custodia-labs/kbnote/internal/normalisers/transcript"
	"github.com/custodia-labs/kbnote/internal/renderers/frontmatter"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx))
}

func run(ctx context.Context) int {
	cli.SetVersion(version)

	configStore, err := file.NewConfigStore(os.Getenv("KBNOTE_CONFIG_DIR"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	svcs, closeFn, err := wire(ctx, configStore)
	if err != nil {
		// Config commands still run so a broken file can be inspected and fixed.
		cli.SetSetupError(err)
		svcs = &cli.Services{
			ConfigStore: configStore,
			Validator:   ai.NewConfigValidator(),
			Pipeline:    domain.DefaultConfig().Pipeline,
		}
	}
	defer closeFn()
	cli.SetServices(svcs)

	if err := cli.Root().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

// wire builds every collaborator from the validated configuration. The
// returned close function is safe to call even when wire fails.
func wire(ctx context.Context, configStore *file.ConfigStore) (*cli.Services, func(), error) {
	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("close: %v", err)
			}
		}
	}

	cfg, err := configStore.Load()
	if err != nil {
		return nil, closeAll, err
	}
	schema := domain.DefaultSchema()
	if err := cfg.Validate(schema); err != nil {
		return nil, closeAll, fmt.Errorf("%s: %w", configStore.Path(), err)
	}

	home := cfg.DataDir
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, closeAll, fmt.Errorf("get home directory: %w", err)
		}
		home = filepath.Join(userHome, ".kbnote")
	}

	store, err := sqlite.NewStore(filepath.Join(home, "data"))
	if err != nil {
		return nil, closeAll, fmt.Errorf("open note store: %w", err)
	}
	closers = append(closers, store.Close)

	index := tfidf.New(store.VectorEntryStore())
	if err := index.Load(ctx); err != nil {
		return nil, closeAll, fmt.Errorf("load similarity index: %w", err)
	}
	logger.Debug("similarity index: %d notes", index.Len())

	// Without a reachable provider every note is filed degraded.
	llm, err := ai.CreateLLMService(cfg.LLM)
	if err != nil {
		logger.Warn("LLM disabled: %v", err)
		llm = nil
	}
	if llm != nil {
		closers = append(closers, llm.Close)
	} else if cfg.LLM.Provider == "" {
		logger.Info("no LLM provider configured; notes will be degraded")
	}

	prompts, err := file.NewPromptStore(filepath.Join(home, "prompts"))
	if err != nil {
		return nil, closeAll, err
	}

	coercer, err := services.NewMetadataCoercer(schema, cfg.Notes)
	if err != nil {
		return nil, closeAll, err
	}
	renderer, err := frontmatter.New(schema)
	if err != nil {
		return nil, closeAll, err
	}

	limiter := services.NewLimiter(cfg.Limiter)
	pipeline := services.NewClassificationPipeline(
		pattern.New(),
		services.NewInferenceClient(llm, prompts, cfg.Inference),
		limiter,
		services.NewNormaliserRegistry(plaintext.New(), html.New(), transcript.New()),
		schema,
		cfg.Pipeline,
	)
	pipeline.SetObserver(func(item domain.RawItem, state domain.PipelineState) {
		logger.Debug("%s: %s", item.SourceRef, state)
	})
	notes := services.NewNoteService(pipeline, coercer, renderer, store.DocumentStore(), index, cfg.Index)

	sources := func(dir string, watch bool) (driven.ItemSource, error) {
		return inbox.New(inbox.Config{InboxDir: dir, Watch: watch})
	}

	return &cli.Services{
		Classification: pipeline,
		Notes:          notes,
		ConfigStore:    configStore,
		Validator:      ai.NewConfigValidator(),
		Sources:        sources,
		LimiterStats:   limiter.Stats,
		Pipeline:       cfg.Pipeline,
		HomeDir:        home,
	}, closeAll, nil
}
