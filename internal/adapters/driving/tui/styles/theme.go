// Package styles provides colour themes and styling for the TUI and for
// styled CLI output.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

// Theme defines the colour palette.
type Theme struct {
	// Accent is used for titles and the selection.
	Accent lipgloss.Color

	// Secondary is used for subtitles and labels.
	Secondary lipgloss.Color

	// Foreground is the default text colour.
	Foreground lipgloss.Color

	// Muted is for less important text.
	Muted lipgloss.Color

	// Saved marks notes stored with a full classification.
	Saved lipgloss.Color

	// Degraded marks notes stored with default classification.
	Degraded lipgloss.Color

	// Failed marks items that produced no note.
	Failed lipgloss.Color

	// Border is the border colour.
	Border lipgloss.Color

	// Categories colours the category badges.
	Categories map[domain.Category]lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:     lipgloss.Color("#7C3AED"),
		Secondary:  lipgloss.Color("#06B6D4"),
		Foreground: lipgloss.Color("#CDD6F4"),
		Muted:      lipgloss.Color("#6C7086"),
		Saved:      lipgloss.Color("#A6E3A1"),
		Degraded:   lipgloss.Color("#F9E2AF"),
		Failed:     lipgloss.Color("#F38BA8"),
		Border:     lipgloss.Color("#45475A"),
		Categories: map[domain.Category]lipgloss.Color{
			domain.CategoryTask:      lipgloss.Color("#89B4FA"),
			domain.CategoryFinance:   lipgloss.Color("#A6E3A1"),
			domain.CategoryHealth:    lipgloss.Color("#F38BA8"),
			domain.CategoryKnowledge: lipgloss.Color("#CBA6F7"),
			domain.CategoryEvent:     lipgloss.Color("#FAB387"),
			domain.CategoryIdea:      lipgloss.Color("#F9E2AF"),
			domain.CategoryJournal:   lipgloss.Color("#F5C2E7"),
			domain.CategoryReference: lipgloss.Color("#94E2D5"),
			domain.CategoryShopping:  lipgloss.Color("#EBA0AC"),
			domain.CategoryTravel:    lipgloss.Color("#74C7EC"),
		},
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme
	plain bool

	// Title style for headers.
	Title lipgloss.Style

	// Subtitle style for secondary headers.
	Subtitle lipgloss.Style

	// Normal style for regular text.
	Normal lipgloss.Style

	// Muted style for less important text.
	Muted lipgloss.Style

	// Label style for field names in key/value output.
	Label lipgloss.Style

	// Selected style for the highlighted list row.
	Selected lipgloss.Style

	// Saved, Degraded and Failed colour item outcomes.
	Saved    lipgloss.Style
	Degraded lipgloss.Style
	Failed   lipgloss.Style

	// StatusBar style for the status bar.
	StatusBar lipgloss.Style

	// Help style for help text.
	Help lipgloss.Style

	// Border style for bordered containers.
	Border lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Accent),

		Subtitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Normal: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Label: lipgloss.NewStyle().
			Foreground(theme.Secondary),

		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Foreground).
			Background(theme.Accent),

		Saved: lipgloss.NewStyle().
			Foreground(theme.Saved),

		Degraded: lipgloss.NewStyle().
			Foreground(theme.Degraded),

		Failed: lipgloss.NewStyle().
			Foreground(theme.Failed),

		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Background(lipgloss.Color("#181825")).
			Padding(0, 1),

		Help: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Plain returns styles that render text unchanged, for output that is not
// a terminal.
func Plain() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{
		theme:     DefaultTheme(),
		plain:     true,
		Title:     plain,
		Subtitle:  plain,
		Normal:    plain,
		Muted:     plain,
		Label:     plain,
		Selected:  plain,
		Saved:     plain,
		Degraded:  plain,
		Failed:    plain,
		StatusBar: plain,
		Help:      plain,
		Border:    plain,
	}
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Category returns the badge style of a category. Unknown categories and
// uncategorized notes use the muted colour.
func (s *Styles) Category(c domain.Category) lipgloss.Style {
	if s.plain {
		return s.Normal
	}
	colour, ok := s.theme.Categories[c]
	if !ok {
		colour = s.theme.Muted
	}
	return lipgloss.NewStyle().Bold(true).Foreground(colour)
}

// Outcome returns the marker and style of an item outcome.
func (s *Styles) Outcome(failed, degraded bool) (string, lipgloss.Style) {
	switch {
	case failed:
		return "✗", s.Failed
	case degraded:
		return "~", s.Degraded
	default:
		return "✓", s.Saved
	}
}
