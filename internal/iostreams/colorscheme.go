package iostreams

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorSuccess = lipgloss.Color("#04B575")
	ColorWarning = lipgloss.Color("#FFCC00")
	ColorError   = lipgloss.Color("#FF5F87")
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#626262"}
	ColorInfo    = lipgloss.Color("#87CEEB")
)

var (
	successStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(ColorError)
	mutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	infoStyle    = lipgloss.NewStyle().Foreground(ColorInfo)
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

// ColorScheme formats text for the terminal. When colors are disabled every
// method returns its input unmodified and icons fall back to ASCII tags.
type ColorScheme struct {
	enabled bool
	theme   string
}

// NewColorScheme creates a ColorScheme. Theme is "light", "dark" or "none".
func NewColorScheme(enabled bool, theme string) *ColorScheme {
	if theme == "" {
		theme = "dark"
	}
	return &ColorScheme{enabled: enabled, theme: theme}
}

func (cs *ColorScheme) Enabled() bool { return cs.enabled }
func (cs *ColorScheme) Theme() string { return cs.theme }

func (cs *ColorScheme) render(style lipgloss.Style, s string) string {
	if !cs.enabled {
		return s
	}
	return style.Render(s)
}

func (cs *ColorScheme) Red(s string) string    { return cs.render(errorStyle, s) }
func (cs *ColorScheme) Yellow(s string) string { return cs.render(warningStyle, s) }
func (cs *ColorScheme) Green(s string) string  { return cs.render(successStyle, s) }
func (cs *ColorScheme) Cyan(s string) string   { return cs.render(infoStyle, s) }
func (cs *ColorScheme) Muted(s string) string  { return cs.render(mutedStyle, s) }
func (cs *ColorScheme) Bold(s string) string   { return cs.render(boldStyle, s) }

// Mutedf returns a formatted string in the muted color.
func (cs *ColorScheme) Mutedf(format string, a ...any) string {
	return cs.Muted(fmt.Sprintf(format, a...))
}

// SuccessIcon returns a green check mark, or "[ok]" without colors.
func (cs *ColorScheme) SuccessIcon() string {
	if cs.enabled {
		return cs.Green("✓")
	}
	return "[ok]"
}

// WarningIcon returns a yellow "!", or "[warn]" without colors.
func (cs *ColorScheme) WarningIcon() string {
	if cs.enabled {
		return cs.Yellow("!")
	}
	return "[warn]"
}

// FailureIcon returns a red cross, or "[error]" without colors.
func (cs *ColorScheme) FailureIcon() string {
	if cs.enabled {
		return cs.Red("✗")
	}
	return "[error]"
}
