package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui"
	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
	"github.com/custodia-labs/kbnote/internal/core/ports/driving"
	"github.com/custodia-labs/kbnote/internal/core/services"
	"github.com/custodia-labs/kbnote/internal/logger"
)

var (
	processWorkers int
	processTUI     bool
)

var processCmd = &cobra.Command{
	Use:   "process [inbox-dir]",
	Short: "Process every item waiting in the inbox",
	Long: `Turns each file in the inbox directory into a note and exits once the
inbox is empty. Files ending in .txt or .md are text, .url holds a link and
.transcript a voice transcript. Notes and failure reasons are written to the
outbox next to the inbox; handled files move to done/ or failed/.

The inbox defaults to ~/.kbnote/inbox.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPool(cmd, args, false)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [inbox-dir]",
	Short: "Process inbox items as they arrive",
	Long: `Like process, but keeps watching the inbox for new files until
interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPool(cmd, args, true)
	},
}

func init() {
	for _, c := range []*cobra.Command{processCmd, watchCmd} {
		c.Flags().IntVarP(&processWorkers, "workers", "w", 0, "number of concurrent workers (0 = configured value)")
		c.Flags().BoolVar(&processTUI, "tui", false, "show live progress in a terminal UI")
		rootCmd.AddCommand(c)
	}
}

func runPool(cmd *cobra.Command, args []string, watch bool) error {
	if noteService == nil {
		return notConfigured("note service")
	}
	if sourceFactory == nil {
		return notConfigured("item source")
	}

	dir := homePath("inbox")
	if len(args) > 0 {
		dir = args[0]
	}

	source, err := sourceFactory(dir, watch)
	if err != nil {
		return fmt.Errorf("failed to open inbox: %w", err)
	}

	cfg := pipelineConfig
	if processWorkers > 0 {
		cfg.Workers = processWorkers
	}
	pool := services.NewWorkerPool(noteService, source, cfg)

	if processTUI {
		return runPoolTUI(cmd, pool, dir)
	}
	return runPoolPlain(cmd, pool, dir, watch)
}

func runPoolPlain(cmd *cobra.Command, pool *services.WorkerPool, dir string, watch bool) error {
	s := outputStyles(cmd)

	var mu sync.Mutex
	pool.OnOutcome(func(outcome driven.ItemOutcome, result *driving.NoteResult) {
		msg := messages.NewItemProcessed(outcome, result)
		marker, style := s.Outcome(msg.Failed(), msg.Degraded)

		mu.Lock()
		defer mu.Unlock()
		if msg.Failed() {
			cmd.Printf("%s %s: %s\n", style.Render(marker), msg.SourceRef, msg.Reason)
			return
		}
		line := fmt.Sprintf("%s %s  %s  %s", style.Render(marker), msg.Title,
			s.Category(msg.Category).Render(string(msg.Category)), s.Muted.Render(msg.Location))
		if msg.Degraded {
			line += s.Degraded.Render(" (" + msg.DegradedReason + ")")
		}
		cmd.Println(line)
	})

	if watch {
		cmd.Printf("Watching %s (ctrl+c to stop)...\n", dir)
	} else {
		cmd.Printf("Processing %s...\n", dir)
	}

	err := pool.Run(cmd.Context())
	stats := pool.Stats()
	cmd.Printf("Processed %d items (%d failed, %d degraded)\n",
		stats.Processed+stats.Failed, stats.Failed, stats.Degraded)
	if limiterStats != nil {
		ls := limiterStats()
		logger.Info("inference: %d calls, %d cache hits, %d rejected", ls.Calls, ls.CacheHits, ls.Rejections)
	}
	if err != nil {
		return fmt.Errorf("processing stopped: %w", err)
	}
	return nil
}

// runPoolTUI runs the pool behind the progress view. Log output goes to a
// file so it cannot tear the screen.
func runPoolTUI(cmd *cobra.Command, pool *services.WorkerPool, dir string) error {
	logPath := homePath("kbnote.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	logger.SetOutput(logFile)
	defer logger.SetOutput(os.Stderr)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	app, err := tui.NewApp(tui.NewPorts(noteService), dir)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(ctx)
	program := app.Program()

	pool.OnOutcome(func(outcome driven.ItemOutcome, result *driving.NoteResult) {
		program.Send(messages.NewItemProcessed(outcome, result))
	})

	done := make(chan error, 1)
	go func() {
		err := pool.Run(ctx)
		stats := pool.Stats()
		program.Send(messages.RunFinished{
			Processed: stats.Processed,
			Failed:    stats.Failed,
			Degraded:  stats.Degraded,
			Err:       err,
		})
		done <- err
	}()

	_, tuiErr := program.Run()
	cancel()
	runErr := <-done

	// An interrupt ends the program through ctx.
	if tuiErr != nil && !errors.Is(tuiErr, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", tuiErr)
	}
	if runErr != nil {
		return fmt.Errorf("processing stopped: %w", runErr)
	}
	cmd.Printf("Log written to %s\n", logPath)
	return nil
}
