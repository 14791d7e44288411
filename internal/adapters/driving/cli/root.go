// Package cli provides the command-line interface for kbnote.
// It implements a driving adapter following hexagonal architecture principles.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
	"github.com/custodia-labs/kbnote/internal/core/ports/driving"
	"github.com/custodia-labs/kbnote/internal/core/services"
	"github.com/custodia-labs/kbnote/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	verbose bool
	quiet   bool
)

// SourceFactory opens the item source over an inbox directory. With watch
// set the source stays open for new items.
type SourceFactory func(inboxDir string, watch bool) (driven.ItemSource, error)

// Services holds the collaborators used by commands.
type Services struct {
	Classification driving.ClassificationService
	Notes          driving.NoteService
	ConfigStore    driven.ConfigStore
	Validator      driven.AIConfigValidator
	Sources        SourceFactory

	// LimiterStats reports cache and call counters after a run.
	LimiterStats func() services.LimiterStats

	Pipeline domain.PipelineConfig

	// HomeDir holds the database, prompts, inbox and log file.
	HomeDir string
}

var (
	classificationService driving.ClassificationService
	noteService           driving.NoteService
	configStore           driven.ConfigStore
	aiValidator           driven.AIConfigValidator
	sourceFactory         SourceFactory
	limiterStats          func() services.LimiterStats
	pipelineConfig        = domain.DefaultConfig().Pipeline
	homeDir               string

	// setupErr is why services are missing, reported by commands that need them.
	setupErr error
)

var rootCmd = &cobra.Command{
	Use:   "kbnote",
	Short: "Turn free-form text into structured knowledge-base notes",
	Long: `kbnote classifies text, URLs and voice transcripts with an LLM and
deterministic pattern rules, then files each item as a Markdown note with
ordered YAML frontmatter and links to related notes.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
		logger.SetQuiet(quiet)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress warnings")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the root command, for callers that need ExecuteContext.
func Root() *cobra.Command {
	return rootCmd
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetServices installs the collaborators used by commands.
func SetServices(s *Services) {
	classificationService = s.Classification
	noteService = s.Notes
	configStore = s.ConfigStore
	aiValidator = s.Validator
	sourceFactory = s.Sources
	limiterStats = s.LimiterStats
	pipelineConfig = s.Pipeline
	homeDir = s.HomeDir
}

// SetSetupError records why services could not be built. Commands that
// need them return it; config commands still work.
func SetSetupError(err error) {
	setupErr = err
}

// notConfigured reports a missing service.
func notConfigured(name string) error {
	if setupErr != nil {
		return fmt.Errorf("%s not configured: %w", name, setupErr)
	}
	return fmt.Errorf("%s not configured", name)
}

// homePath joins elem onto the kbnote home directory.
func homePath(elem ...string) string {
	return filepath.Join(append([]string{homeDir}, elem...)...)
}

// outputStyles returns coloured styles when the command writes to a
// terminal and plain ones otherwise.
func outputStyles(cmd *cobra.Command) *styles.Styles {
	if f, ok := cmd.OutOrStdout().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return styles.DefaultStyles()
	}
	return styles.Plain()
}
