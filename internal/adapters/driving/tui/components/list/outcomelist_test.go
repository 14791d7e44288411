package list

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbnote/internal/core/domain"
)

func saved(id, title string) messages.ItemProcessed {
	return messages.ItemProcessed{
		SourceRef:  "inbox:" + id,
		DocumentID: id,
		Title:      title,
		Category:   domain.CategoryFinance,
	}
}

func TestNewOutcomeList(t *testing.T) {
	l := NewOutcomeList(styles.DefaultStyles())

	require.NotNil(t, l)
	assert.Equal(t, 0, l.Count())
	assert.Nil(t, l.SelectedItem())
	assert.Nil(t, l.Init())
}

func TestNewOutcomeList_NilStyles(t *testing.T) {
	l := NewOutcomeList(nil)

	require.NotNil(t, l)
	assert.NotNil(t, l.styles)
}

func TestOutcomeList_AddFollowsNewest(t *testing.T) {
	l := NewOutcomeList(nil)

	l.Add(saved("a", "A"))
	l.Add(saved("b", "B"))
	assert.Equal(t, 1, l.Selected())

	l.MoveUp()
	l.Add(saved("c", "C"))
	assert.Equal(t, 0, l.Selected(), "selection stays put once moved away from the newest item")

	l.MoveDown()
	l.MoveDown()
	l.Add(saved("d", "D"))
	assert.Equal(t, 3, l.Selected())
	assert.Equal(t, "d", l.SelectedItem().DocumentID)
}

func TestOutcomeList_Capacity(t *testing.T) {
	l := NewOutcomeList(nil)
	l.SetCapacity(3)

	for i := range 5 {
		l.Add(saved(fmt.Sprint(i), "note"))
	}

	require.Equal(t, 3, l.Count())
	assert.Equal(t, "2", l.Items()[0].DocumentID)
	assert.Equal(t, "4", l.SelectedItem().DocumentID)

	l.SetCapacity(0)
	assert.Equal(t, 3, l.capacity)
}

func TestOutcomeList_Navigation(t *testing.T) {
	l := NewOutcomeList(nil)
	for _, id := range []string{"a", "b", "c"} {
		l.Add(saved(id, id))
	}

	tests := []struct {
		key  tea.KeyMsg
		want int
	}{
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")}, 0},
		{tea.KeyMsg{Type: tea.KeyUp}, 0},
		{tea.KeyMsg{Type: tea.KeyDown}, 1},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")}, 2},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")}, 2},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")}, 1},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("G")}, 2},
	}

	for _, tt := range tests {
		l, _ = l.Update(tt.key)
		assert.Equal(t, tt.want, l.Selected(), tt.key.String())
	}
}

func TestOutcomeList_View(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		l := NewOutcomeList(styles.Plain())

		assert.Contains(t, l.View(), "Waiting for items")
	})

	t.Run("renders outcomes", func(t *testing.T) {
		l := NewOutcomeList(styles.Plain())
		l.SetDimensions(80, 10)
		l.Add(saved("a", "Team lunch"))
		l.Add(messages.ItemProcessed{
			DocumentID:     "b",
			Title:          "Something",
			Category:       domain.CategoryUncategorized,
			Degraded:       true,
			DegradedReason: "quota_exceeded",
		})
		l.Add(messages.ItemProcessed{SourceRef: "inbox:c.txt", Reason: "The message was empty or could not be read."})

		lines := strings.Split(l.View(), "\n")

		require.Len(t, lines, 3)
		assert.Contains(t, lines[0], "✓ Team lunch")
		assert.Contains(t, lines[0], "finance")
		assert.Contains(t, lines[1], "~ Something")
		assert.Contains(t, lines[1], "uncategorized (quota_exceeded)")
		assert.True(t, strings.HasPrefix(lines[2], "> ✗ inbox:c.txt"))
		assert.Contains(t, lines[2], "could not be read")
	})

	t.Run("scrolls to the selection", func(t *testing.T) {
		l := NewOutcomeList(styles.Plain())
		l.SetDimensions(80, 2)
		for _, id := range []string{"a", "b", "c", "d"} {
			l.Add(saved(id, "note-"+id))
		}

		view := l.View()

		assert.NotContains(t, view, "note-a")
		assert.Contains(t, view, "note-c")
		assert.Contains(t, view, "note-d")
	})

	t.Run("truncates long titles", func(t *testing.T) {
		l := NewOutcomeList(styles.Plain())
		l.SetDimensions(40, 5)
		l.Add(saved("a", strings.Repeat("long ", 30)))

		assert.Contains(t, l.View(), "...")
	})
}
