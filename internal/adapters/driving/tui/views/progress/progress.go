// Package progress provides the live processing view for the TUI.
package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/styles"
)

// reserved rows: title, activity line, blank, blank, status bar.
const reservedRows = 5

// View shows items as the worker pool finishes them.
type View struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	spinner spinner.Model
	help    help.Model
	list    *list.OutcomeList
	bar     *status.Bar

	source   string
	counts   status.Counts
	started  time.Time
	elapsed  time.Duration
	finished bool
	showHelp bool
	now      func() time.Time
	width    int
	height   int
}

// NewView creates a progress view. source names what is being processed.
func NewView(s *styles.Styles, km *keymap.KeyMap, source string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:  s,
		keymap:  km,
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(s.Subtitle)),
		help:    help.New(),
		list:    list.NewOutcomeList(s),
		bar:     status.NewBar(s, km),
		source:  source,
		now:     time.Now,
		width:   80,
		height:  24,
	}
}

// Init starts the spinner and the elapsed clock.
func (v *View) Init() tea.Cmd {
	v.started = v.now()
	return v.spinner.Tick
}

// Update handles messages for the progress view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if v.finished {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case messages.ItemProcessed:
		v.list.Add(msg)
		switch {
		case msg.Failed():
			v.counts.Failed++
		case msg.Degraded:
			v.counts.Degraded++
			v.counts.Saved++
		default:
			v.counts.Saved++
		}
		v.bar.SetCounts(v.counts)
		return v, nil

	case messages.RunFinished:
		v.finished = true
		v.elapsed = v.now().Sub(v.started)
		v.bar.SetState(status.StateDone)
		if msg.Err != nil {
			v.bar.SetState(status.StateError)
			v.bar.SetMessage(msg.Err.Error())
		}
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case keymap.Matches(msg.String(), v.keymap.Quit):
		return v, func() tea.Msg { return messages.Quit{} }
	case keymap.Matches(msg.String(), v.keymap.Help):
		v.showHelp = !v.showHelp
		v.resize()
		return v, nil
	case keymap.Matches(msg.String(), v.keymap.Open):
		item := v.list.SelectedItem()
		if item == nil || item.DocumentID == "" {
			return v, nil
		}
		id := item.DocumentID
		return v, func() tea.Msg { return messages.NoteSelected{DocumentID: id} }
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

// View renders the progress view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("kbnote"))
	if v.source != "" {
		b.WriteString(v.styles.Muted.Render("  " + v.source))
	}
	b.WriteString("\n")
	b.WriteString(v.activity())
	b.WriteString("\n\n")
	b.WriteString(v.list.View())
	b.WriteString("\n\n")
	if v.showHelp {
		b.WriteString(v.help.FullHelpView(v.keymap.FullHelp()))
		b.WriteString("\n")
	}
	b.WriteString(v.bar.View())
	return b.String()
}

// activity renders the spinner line, or the run summary once finished.
func (v *View) activity() string {
	total := v.counts.Saved + v.counts.Failed
	if v.finished {
		return v.styles.Normal.Render(fmt.Sprintf("Processed %d items in %s", total, v.elapsed.Round(time.Millisecond)))
	}
	return v.spinner.View() + " " + v.styles.Normal.Render(fmt.Sprintf("Processing... %d items so far", total))
}

// resize recomputes the list height from the terminal size.
func (v *View) resize() {
	rows := v.height - reservedRows
	if v.showHelp {
		rows -= len(v.keymap.FullHelp()[0]) + 1
	}
	v.list.SetDimensions(v.width, max(rows, 1))
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.help.Width = width
	v.bar.SetWidth(width)
	v.resize()
}

// Counts returns the totals so far.
func (v *View) Counts() status.Counts {
	return v.counts
}

// Finished reports whether the run has ended.
func (v *View) Finished() bool {
	return v.finished
}

// List returns the outcome list.
func (v *View) List() *list.OutcomeList {
	return v.list
}
