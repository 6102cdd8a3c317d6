// Package iostreams wraps the standard streams for CLI commands so that
// terminal detection and color can be controlled in tests.
package iostreams

import (
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IOStreams provides access to standard input/output/error streams.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer

	// -1 = unchecked, 0 = false, 1 = true
	isOutputTTY int
	isStderrTTY int

	// -1 = auto (detect from TTY), 0 = disabled, 1 = enabled
	colorEnabled int

	// "light", "dark" or "none"; detected on first use
	terminalTheme string
}

// NewIOStreams creates an IOStreams connected to standard streams.
func NewIOStreams() *IOStreams {
	ios := &IOStreams{
		In:           os.Stdin,
		Out:          os.Stdout,
		ErrOut:       os.Stderr,
		isOutputTTY:  -1,
		isStderrTTY:  -1,
		colorEnabled: -1,
	}
	if os.Getenv("NO_COLOR") != "" {
		ios.colorEnabled = 0
	}
	return ios
}

// IsOutputTTY returns true if stdout is a terminal.
func (s *IOStreams) IsOutputTTY() bool {
	if s.isOutputTTY == -1 {
		s.isOutputTTY = boolToInt(isTerminal(s.Out))
	}
	return s.isOutputTTY == 1
}

// IsStderrTTY returns true if stderr is a terminal.
func (s *IOStreams) IsStderrTTY() bool {
	if s.isStderrTTY == -1 {
		s.isStderrTTY = boolToInt(isTerminal(s.ErrOut))
	}
	return s.isStderrTTY == 1
}

// SetStdoutTTY overrides terminal detection for stdout.
func (s *IOStreams) SetStdoutTTY(v bool) { s.isOutputTTY = boolToInt(v) }

// SetStderrTTY overrides terminal detection for stderr.
func (s *IOStreams) SetStderrTTY(v bool) { s.isStderrTTY = boolToInt(v) }

// ColorEnabled returns whether color output is enabled. In auto mode colors
// are on when stdout is a terminal.
func (s *IOStreams) ColorEnabled() bool {
	if s.colorEnabled == -1 {
		return s.IsOutputTTY()
	}
	return s.colorEnabled == 1
}

// SetColorEnabled explicitly enables or disables color output.
func (s *IOStreams) SetColorEnabled(enabled bool) {
	s.colorEnabled = boolToInt(enabled)
}

// TerminalTheme returns "light", "dark" or "none" (not a terminal).
func (s *IOStreams) TerminalTheme() string {
	if s.terminalTheme == "" {
		switch {
		case !s.IsOutputTTY():
			s.terminalTheme = "none"
		case termenv.HasDarkBackground():
			s.terminalTheme = "dark"
		default:
			s.terminalTheme = "light"
		}
	}
	return s.terminalTheme
}

// ColorScheme returns a ColorScheme configured for this IOStreams.
func (s *IOStreams) ColorScheme() *ColorScheme {
	return NewColorScheme(s.ColorEnabled(), s.TerminalTheme())
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
