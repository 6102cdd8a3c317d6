// Package iostreamstest provides test doubles for the iostreams package.
package iostreamstest

import (
	"bytes"
	"sync"

	"github.com/schmitthub/settle/internal/iostreams"
)

// TestIOStreams wraps IOStreams with accessible buffers.
type TestIOStreams struct {
	*iostreams.IOStreams
	InBuf  *Buffer
	OutBuf *Buffer
	ErrBuf *Buffer
}

// New creates IOStreams for testing: not a terminal, colors disabled.
func New() *TestIOStreams {
	in, out, errOut := &Buffer{}, &Buffer{}, &Buffer{}
	ios := &iostreams.IOStreams{In: in, Out: out, ErrOut: errOut}
	ios.SetStdoutTTY(false)
	ios.SetStderrTTY(false)
	ios.SetColorEnabled(false)
	return &TestIOStreams{IOStreams: ios, InBuf: in, OutBuf: out, ErrBuf: errOut}
}

// Buffer is a goroutine-safe bytes.Buffer.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Read(p)
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Reset discards the buffered data.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}
