// Package loggertest provides test doubles for the logger package.
// TestLogger captures log output for assertions in tests.
package loggertest

import (
	"bytes"
	"sync"

	"github.com/rs/zerolog"
)

// TestLogger captures all output of a zerolog.Logger in memory.
// Writes are serialized so the logger can be shared with goroutines
// started by the code under test.
type TestLogger struct {
	logger zerolog.Logger
	mu     sync.Mutex
	buf    bytes.Buffer
}

// New creates a test logger that captures all output (trace level and up).
func New() *TestLogger {
	tl := &TestLogger{}
	tl.logger = zerolog.New(tl).Level(zerolog.TraceLevel)
	return tl
}

// NewNop creates a test logger that discards all output.
func NewNop() *TestLogger {
	return &TestLogger{logger: zerolog.Nop()}
}

// Write implements io.Writer for the wrapped zerolog logger.
func (tl *TestLogger) Write(p []byte) (int, error) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.buf.Write(p)
}

// Logger returns the underlying logger for injection into code under test.
func (tl *TestLogger) Logger() *zerolog.Logger { return &tl.logger }

// Debug returns a debug-level zerolog.Event.
func (tl *TestLogger) Debug() *zerolog.Event { return tl.logger.Debug() }

// Info returns an info-level zerolog.Event.
func (tl *TestLogger) Info() *zerolog.Event { return tl.logger.Info() }

// Warn returns a warn-level zerolog.Event.
func (tl *TestLogger) Warn() *zerolog.Event { return tl.logger.Warn() }

// Error returns an error-level zerolog.Event.
func (tl *TestLogger) Error() *zerolog.Event { return tl.logger.Error() }

// Output returns captured log output as a string.
func (tl *TestLogger) Output() string {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.buf.String()
}

// Reset clears captured output.
func (tl *TestLogger) Reset() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.buf.Reset()
}
