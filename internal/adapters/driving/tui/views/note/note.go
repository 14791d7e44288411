// Package note provides the stored note view for the TUI.
package note

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driving"
)

// reserved rows: title, separator, scroll line, blank, help.
const reservedRows = 5

// View shows the rendered text of one stored note.
type View struct {
	ctx      context.Context
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	notes    driving.NoteService
	viewport viewport.Model
	help     help.Model

	documentID string
	document   *domain.Document
	loading    bool
	err        error
	width      int
}

// NewView creates a new note view.
func NewView(ctx context.Context, s *styles.Styles, km *keymap.KeyMap, notes driving.NoteService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	h := help.New()
	h.Styles.ShortKey = s.Label
	h.Styles.ShortDesc = s.Help

	return &View{
		ctx:      ctx,
		styles:   s,
		keymap:   km,
		notes:    notes,
		viewport: viewport.New(80, 20),
		help:     h,
		width:    80,
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Load resets the view and returns a command that reads the note.
func (v *View) Load(documentID string) tea.Cmd {
	v.documentID = documentID
	v.document = nil
	v.err = nil
	v.loading = true
	v.viewport.SetContent("")
	v.viewport.GotoTop()

	notes, ctx := v.notes, v.ctx
	return func() tea.Msg {
		if notes == nil {
			return messages.NoteLoaded{DocumentID: documentID, Err: errors.New("note service not available")}
		}
		doc, err := notes.Get(ctx, documentID)
		return messages.NoteLoaded{DocumentID: documentID, Document: doc, Err: err}
	}
}

// Update handles messages for the note view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.NoteLoaded:
		if msg.DocumentID != v.documentID {
			return v, nil
		}
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.document = msg.Document
		v.viewport.SetContent(msg.Document.Rendered)
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewProgress}
			}
		case "g", "home":
			v.viewport.GotoTop()
			return v, nil
		case "G", "end":
			v.viewport.GotoBottom()
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// View renders the note view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(v.title()))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render(strings.Repeat("─", max(min(v.width-4, 60), 1))))
	b.WriteString("\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading note..."))
	case v.err != nil:
		b.WriteString(v.styles.Failed.Render(fmt.Sprintf("Error: %s", v.err)))
	default:
		b.WriteString(v.viewport.View())
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%3.f%%] %d lines",
			v.viewport.ScrollPercent()*100, v.viewport.TotalLineCount())))
	}

	b.WriteString("\n\n")
	b.WriteString(v.help.ShortHelpView(v.keymap.NoteHelp()))
	return b.String()
}

func (v *View) title() string {
	if v.document == nil {
		return "Note " + v.documentID
	}
	title := v.document.Title
	if title == "" {
		title = v.document.ID
	}
	return title + "  " + v.styles.Category(v.document.Category).Render(string(v.document.Category))
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.viewport.Width = width
	v.viewport.Height = max(height-reservedRows, 1)
	v.help.Width = width
}

// Document returns the loaded note.
func (v *View) Document() *domain.Document {
	return v.document
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}
