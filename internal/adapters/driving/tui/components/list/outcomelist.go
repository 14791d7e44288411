// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/styles"
)

// DefaultCapacity bounds the number of outcomes kept for display.
const DefaultCapacity = 500

// OutcomeList displays processed items in arrival order. While the
// selection is on the newest item it follows new arrivals.
type OutcomeList struct {
	items    []messages.ItemProcessed
	selected int
	capacity int
	styles   *styles.Styles
	width    int
	height   int
}

// NewOutcomeList creates a new outcome list component.
func NewOutcomeList(s *styles.Styles) *OutcomeList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &OutcomeList{
		capacity: DefaultCapacity,
		styles:   s,
		width:    80,
		height:   10,
	}
}

// Init initialises the outcome list.
func (l *OutcomeList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (l *OutcomeList) Update(msg tea.Msg) (*OutcomeList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		case "g", "home":
			l.selected = 0
		case "G", "end":
			l.selected = max(len(l.items)-1, 0)
		}
	}
	return l, nil
}

// Add appends an outcome, dropping the oldest beyond capacity.
func (l *OutcomeList) Add(item messages.ItemProcessed) {
	following := len(l.items) == 0 || l.selected == len(l.items)-1
	l.items = append(l.items, item)
	if over := len(l.items) - l.capacity; over > 0 {
		l.items = l.items[over:]
		l.selected = max(l.selected-over, 0)
	}
	if following {
		l.selected = len(l.items) - 1
	}
}

// View renders the outcome list.
func (l *OutcomeList) View() string {
	if len(l.items) == 0 {
		return l.styles.Muted.Render("Waiting for items...")
	}

	visible := max(l.height, 1)
	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := min(start+visible, len(l.items))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, l.renderItem(i, &l.items[i]))
	}
	return strings.Join(lines, "\n")
}

// renderItem formats one outcome on a single line.
func (l *OutcomeList) renderItem(index int, item *messages.ItemProcessed) string {
	marker, markerStyle := l.styles.Outcome(item.Failed(), item.Degraded)

	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	var label, detail string
	switch {
	case item.Failed():
		label = item.SourceRef
		detail = item.Reason
	default:
		label = item.Title
		if label == "" {
			label = item.DocumentID
		}
		detail = string(item.Category)
		if item.Degraded && item.DegradedReason != "" {
			detail += " (" + item.DegradedReason + ")"
		} else if item.CacheHit {
			detail += " (cached)"
		}
	}

	maxLabel := max(l.width-ansi.StringWidth(detail)-8, 10)
	label = pad(ansi.Truncate(label, maxLabel, "..."), maxLabel)

	if index == l.selected {
		return l.styles.Selected.Render(fmt.Sprintf("%s%s %s  %s", indicator, marker, label, detail))
	}
	detailStyle := l.styles.Muted
	if !item.Failed() {
		detailStyle = l.styles.Category(item.Category)
	}
	return indicator + markerStyle.Render(marker) + " " +
		l.styles.Normal.Render(label+"  ") +
		detailStyle.Render(detail)
}

// pad right-pads s to width display cells.
func pad(s string, width int) string {
	if w := ansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// Items returns the displayed outcomes.
func (l *OutcomeList) Items() []messages.ItemProcessed {
	return l.items
}

// Selected returns the index of the selected outcome.
func (l *OutcomeList) Selected() int {
	return l.selected
}

// SelectedItem returns the selected outcome, or nil if none.
func (l *OutcomeList) SelectedItem() *messages.ItemProcessed {
	if l.selected < 0 || l.selected >= len(l.items) {
		return nil
	}
	return &l.items[l.selected]
}

// MoveUp moves selection up.
func (l *OutcomeList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *OutcomeList) MoveDown() {
	if l.selected < len(l.items)-1 {
		l.selected++
	}
}

// SetCapacity changes the number of outcomes kept.
func (l *OutcomeList) SetCapacity(n int) {
	if n > 0 {
		l.capacity = n
	}
}

// SetDimensions sets the component dimensions. height is in rows.
func (l *OutcomeList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of displayed outcomes.
func (l *OutcomeList) Count() int {
	return len(l.items)
}
