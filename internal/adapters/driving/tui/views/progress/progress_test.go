package progress

import (
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbnote/internal/core/domain"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestView() *View {
	v := NewView(styles.Plain(), nil, "~/inbox")
	v.SetDimensions(100, 20)
	return v
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil, "")

	require.NotNil(t, v)
	assert.NotNil(t, v.styles)
	assert.NotNil(t, v.keymap)
	assert.False(t, v.Finished())
	assert.Equal(t, status.Counts{}, v.Counts())
}

func TestView_Init(t *testing.T) {
	v := newTestView()
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return start }

	cmd := v.Init()

	assert.NotNil(t, cmd)
	assert.Equal(t, start, v.started)
}

func TestView_CountsOutcomes(t *testing.T) {
	v := newTestView()

	v, _ = v.Update(messages.ItemProcessed{DocumentID: "a", Category: domain.CategoryTask})
	v, _ = v.Update(messages.ItemProcessed{DocumentID: "b", Degraded: true})
	v, _ = v.Update(messages.ItemProcessed{SourceRef: "inbox:c", Reason: "Processing was cancelled."})

	assert.Equal(t, status.Counts{Saved: 2, Degraded: 1, Failed: 1}, v.Counts())
	assert.Equal(t, 3, v.List().Count())
	assert.Contains(t, v.View(), "3 items so far")
}

func TestView_RunFinished(t *testing.T) {
	t.Run("done", func(t *testing.T) {
		v := newTestView()
		start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		v.now = func() time.Time { return start }
		v.Init()
		v.now = func() time.Time { return start.Add(1500 * time.Millisecond) }

		v, _ = v.Update(messages.ItemProcessed{DocumentID: "a"})
		v, _ = v.Update(messages.RunFinished{Processed: 1})

		assert.True(t, v.Finished())
		assert.Equal(t, status.StateDone, v.bar.State())
		assert.Contains(t, v.View(), "Processed 1 items in 1.5s")
	})

	t.Run("error", func(t *testing.T) {
		v := newTestView()

		v, _ = v.Update(messages.RunFinished{Err: errors.New("inbox vanished")})

		assert.Equal(t, status.StateError, v.bar.State())
		assert.Contains(t, v.View(), "Error: inbox vanished")
	})

	t.Run("spinner stops", func(t *testing.T) {
		v := newTestView()
		v, _ = v.Update(messages.RunFinished{})

		_, cmd := v.Update(spinner.TickMsg{})

		assert.Nil(t, cmd)
	})
}

func TestView_Keys(t *testing.T) {
	t.Run("quit", func(t *testing.T) {
		v := newTestView()

		_, cmd := v.Update(runes("q"))

		require.NotNil(t, cmd)
		assert.Equal(t, messages.Quit{}, cmd())
	})

	t.Run("open selected note", func(t *testing.T) {
		v := newTestView()
		v, _ = v.Update(messages.ItemProcessed{DocumentID: "a"})
		v, _ = v.Update(messages.ItemProcessed{DocumentID: "b"})

		_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

		require.NotNil(t, cmd)
		assert.Equal(t, messages.NoteSelected{DocumentID: "b"}, cmd())
	})

	t.Run("failed items have no note", func(t *testing.T) {
		v := newTestView()
		v, _ = v.Update(messages.ItemProcessed{SourceRef: "inbox:x", Reason: "Processing was cancelled."})

		_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

		assert.Nil(t, cmd)
	})

	t.Run("navigation reaches the list", func(t *testing.T) {
		v := newTestView()
		v, _ = v.Update(messages.ItemProcessed{DocumentID: "a"})
		v, _ = v.Update(messages.ItemProcessed{DocumentID: "b"})

		v, _ = v.Update(runes("k"))

		assert.Equal(t, 0, v.List().Selected())
	})

	t.Run("help toggles", func(t *testing.T) {
		v := newTestView()

		v, _ = v.Update(runes("?"))
		assert.Contains(t, v.View(), "open note")
		assert.Contains(t, v.View(), "top")

		v, _ = v.Update(runes("?"))
		assert.NotContains(t, v.View(), "top")
	})
}

func TestView_RendersSource(t *testing.T) {
	v := newTestView()

	view := v.View()

	assert.Contains(t, view, "kbnote")
	assert.Contains(t, view, "~/inbox")
	assert.Contains(t, view, "Waiting for items")
}
