package tui

import "github.com/charmbracelet/lipgloss"

// Theme defines the colour palette.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Border    lipgloss.Color
	Bar       lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:   lipgloss.Color("#7C3AED"), // Purple
		Secondary: lipgloss.Color("#06B6D4"), // Cyan
		Muted:     lipgloss.Color("#6C7086"),
		Success:   lipgloss.Color("#A6E3A1"),
		Error:     lipgloss.Color("#F38BA8"),
		Border:    lipgloss.Color("#45475A"),
		Bar:       lipgloss.Color("#181825"),
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	Title    lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Tag      lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style

	// Pane is a bordered pane; FocusedPane marks the pane receiving keys.
	Pane        lipgloss.Style
	FocusedPane lipgloss.Style
	Modal       lipgloss.Style

	StatusBar lipgloss.Style
	Mode      lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	pane := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border)

	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),
		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Background(theme.Primary),
		Tag: lipgloss.NewStyle().
			Foreground(theme.Secondary),
		Error: lipgloss.NewStyle().
			Foreground(theme.Error),
		Success: lipgloss.NewStyle().
			Foreground(theme.Success),

		Pane:        pane,
		FocusedPane: pane.BorderForeground(theme.Primary),
		Modal: lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(theme.Secondary).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Background(theme.Bar).
			Padding(0, 1),
		Mode: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary).
			Background(theme.Bar),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}
