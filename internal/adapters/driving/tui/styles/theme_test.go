package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

func TestDefaultTheme(t *testing.T) {
	theme := DefaultTheme()

	require.NotNil(t, theme)
	assert.NotEmpty(t, string(theme.Accent))
	assert.NotEmpty(t, string(theme.Secondary))
	assert.NotEmpty(t, string(theme.Foreground))
	assert.NotEmpty(t, string(theme.Muted))
	assert.NotEmpty(t, string(theme.Border))
}

func TestDefaultTheme_OutcomeColoursAreDistinct(t *testing.T) {
	theme := DefaultTheme()

	seen := make(map[lipgloss.Color]bool)
	for _, c := range []lipgloss.Color{theme.Saved, theme.Degraded, theme.Failed, theme.Accent} {
		assert.False(t, seen[c], "duplicate colour: %s", c)
		seen[c] = true
	}
}

func TestDefaultTheme_CoversCategories(t *testing.T) {
	theme := DefaultTheme()

	for _, c := range domain.AllCategories() {
		if c == domain.CategoryUncategorized {
			continue
		}
		assert.Contains(t, theme.Categories, c)
	}
}

func TestNewStyles(t *testing.T) {
	t.Run("with theme", func(t *testing.T) {
		theme := DefaultTheme()
		s := NewStyles(theme)
		require.NotNil(t, s)
		assert.Equal(t, theme, s.Theme())
	})

	t.Run("nil theme", func(t *testing.T) {
		s := NewStyles(nil)
		require.NotNil(t, s)
		assert.NotNil(t, s.Theme())
	})
}

func TestStyles_AllStylesInitialised(t *testing.T) {
	s := DefaultStyles()

	for name, style := range map[string]lipgloss.Style{
		"Title":     s.Title,
		"Subtitle":  s.Subtitle,
		"Normal":    s.Normal,
		"Muted":     s.Muted,
		"Label":     s.Label,
		"Selected":  s.Selected,
		"Saved":     s.Saved,
		"Degraded":  s.Degraded,
		"Failed":    s.Failed,
		"StatusBar": s.StatusBar,
		"Help":      s.Help,
		"Border":    s.Border,
	} {
		assert.NotEqual(t, lipgloss.Style{}, style, name)
	}
}

func TestPlain_RendersUnchanged(t *testing.T) {
	s := Plain()

	assert.Equal(t, "finance", s.Category(domain.CategoryFinance).Render("finance"))
	assert.Equal(t, "title", s.Title.Render("title"))
}

func TestStyles_Category(t *testing.T) {
	s := DefaultStyles()

	assert.Equal(t, lipgloss.TerminalColor(s.Theme().Categories[domain.CategoryFinance]),
		s.Category(domain.CategoryFinance).GetForeground())
	assert.Equal(t, lipgloss.TerminalColor(s.Theme().Muted),
		s.Category(domain.CategoryUncategorized).GetForeground())
}

func TestStyles_Outcome(t *testing.T) {
	s := DefaultStyles()

	tests := []struct {
		name     string
		failed   bool
		degraded bool
		marker   string
	}{
		{"saved", false, false, "✓"},
		{"degraded", false, true, "~"},
		{"failed", true, false, "✗"},
		{"failed wins", true, true, "✗"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			marker, style := s.Outcome(tt.failed, tt.degraded)
			assert.Equal(t, tt.marker, marker)
			assert.NotEmpty(t, style.Render(marker))
		})
	}
}
