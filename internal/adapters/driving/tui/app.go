package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/views/note"
	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/views/progress"
)

// App is the TUI application following the Elm architecture.
// Outcomes arrive from outside through tea.Program.Send.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	// progressView lists items as they are processed.
	progressView *progress.View

	// noteView shows a single stored note.
	noteView *note.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has received its first window size.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a TUI for a run over source.
func NewApp(ports *Ports, source string) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	ctx := context.Background()

	return &App{
		ports:        ports,
		ctx:          ctx,
		styles:       s,
		keymap:       km,
		progressView: progress.NewView(s, km, source),
		noteView:     note.NewView(ctx, s, km, ports.Notes),
		currentView:  messages.ViewProgress,
	}, nil
}

// WithContext sets the context used for note lookups.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.noteView = note.NewView(ctx, a.styles, a.keymap, a.ports.Notes)
	if a.ready {
		a.noteView.SetDimensions(a.width, a.height)
	}
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("kbnote"),
		a.progressView.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewNote {
			a.noteView, cmd = a.noteView.Update(msg)
			return a, cmd
		}
		a.progressView, cmd = a.progressView.Update(msg)
		return a, cmd

	// Run events go to the progress view whichever view is showing.
	case messages.ItemProcessed, messages.RunFinished, spinner.TickMsg:
		a.progressView, cmd = a.progressView.Update(msg)
		return a, cmd

	case messages.NoteSelected:
		a.currentView = messages.ViewNote
		return a, a.noteView.Load(msg.DocumentID)

	case messages.NoteLoaded:
		a.noteView, cmd = a.noteView.Update(msg)
		a.err = a.noteView.Err()
		return a, cmd

	case messages.ViewChanged:
		a.currentView = msg.View
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	if a.currentView == messages.ViewNote {
		return a.noteView.View()
	}
	return a.progressView.View()
}

// Program wraps the app in a Bubbletea program on the alternate screen.
// Callers feed outcomes into it with Send.
func (a *App) Program(opts ...tea.ProgramOption) *tea.Program {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(a.ctx)}, opts...)
	return tea.NewProgram(a, opts...)
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Progress returns the progress view.
func (a *App) Progress() *progress.View {
	return a.progressView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.progressView.SetDimensions(width, height)
	a.noteView.SetDimensions(width, height)
}
