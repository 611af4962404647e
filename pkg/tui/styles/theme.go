package styles

import "github.com/charmbracelet/lipgloss"

// Theme is the palette shared by the status table and the dashboard.
type Theme struct {
	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color
	Text    lipgloss.Color
	TextDim lipgloss.Color

	Border         lipgloss.Style
	Title          lipgloss.Style
	TitleMuted     lipgloss.Style
	Header         lipgloss.Style
	Keybind        lipgloss.Style
	KeybindKey     lipgloss.Style
	StatusHealthy  lipgloss.Style
	StatusStarting lipgloss.Style
	StatusFailed   lipgloss.Style
	StatusUnknown  lipgloss.Style
}

func DefaultTheme() Theme {
	primary := lipgloss.Color("#7C3AED")
	success := lipgloss.Color("#22C55E")
	warning := lipgloss.Color("#EAB308")
	errorC := lipgloss.Color("#EF4444")
	muted := lipgloss.Color("#6B7280")
	text := lipgloss.Color("#F9FAFB")
	textDim := lipgloss.Color("#9CA3AF")

	return Theme{
		Primary: primary,
		Success: success,
		Warning: warning,
		Error:   errorC,
		Muted:   muted,
		Text:    text,
		TextDim: textDim,

		Border:         lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 1),
		Title:          lipgloss.NewStyle().Bold(true).Foreground(primary),
		TitleMuted:     lipgloss.NewStyle().Foreground(textDim),
		Header:         lipgloss.NewStyle().Bold(true).Foreground(text),
		Keybind:        lipgloss.NewStyle().Foreground(textDim),
		KeybindKey:     lipgloss.NewStyle().Bold(true).Foreground(primary),
		StatusHealthy:  lipgloss.NewStyle().Foreground(success),
		StatusStarting: lipgloss.NewStyle().Foreground(warning),
		StatusFailed:   lipgloss.NewStyle().Foreground(errorC),
		StatusUnknown:  lipgloss.NewStyle().Foreground(muted),
	}
}

// ForStatus picks the style for a health status string.
func (t Theme) ForStatus(status string) lipgloss.Style {
	switch status {
	case "healthy":
		return t.StatusHealthy
	case "starting":
		return t.StatusStarting
	case "unhealthy", "stopped":
		return t.StatusFailed
	default:
		return t.StatusUnknown
	}
}
