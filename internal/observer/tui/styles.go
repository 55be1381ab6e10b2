package tui

import "github.com/charmbracelet/lipgloss"

// Theme is the colour palette.
type Theme struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Border  lipgloss.Color
}

func DefaultTheme() *Theme {
	return &Theme{
		Primary: lipgloss.Color("#7C3AED"), // Purple
		Muted:   lipgloss.Color("#6C7086"), // Medium gray
		Success: lipgloss.Color("#A6E3A1"), // Green
		Warning: lipgloss.Color("#F9E2AF"), // Yellow
		Error:   lipgloss.Color("#F38BA8"), // Red
		Border:  lipgloss.Color("#45475A"), // Border gray
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	Title     lipgloss.Style
	Connected lipgloss.Style
	Offline   lipgloss.Style
	Header    lipgloss.Style
	Key       lipgloss.Style
	Disabled  lipgloss.Style
	Muted     lipgloss.Style
	Panel     lipgloss.Style
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
			Foreground(theme.Primary),

		Connected: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Success),

		Offline: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Error),

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Muted),

		Key: lipgloss.NewStyle().
			Bold(true).
			Width(4),

		Disabled: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
	}
}

func DefaultStyles() *Styles { return NewStyles(DefaultTheme()) }

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme { return s.theme }
