package callback

import (
	"bytes"
	"context"
	"strings"
	"sync"
)

// Text collects a text stream by concatenating chunks.
type Text struct {
	*Collector[string]
}

// NewText creates an empty text collector.
func NewText() *Text {
	return &Text{Collector: NewCollector[string]()}
}

// String returns the text received so far, followed by an "error: ..."
// line if the stream failed.
func (t *Text) String() string {
	var sb strings.Builder
	for _, chunk := range t.Items() {
		sb.WriteString(chunk)
	}
	if err := t.Err(); err != nil {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
		sb.WriteString("error: ")
		sb.WriteString(err.Error())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Await blocks until the stream finishes and returns the concatenated text.
func (t *Text) Await(ctx context.Context) (string, error) {
	_, err := t.Collector.Await(ctx)
	return t.String(), err
}

// LineWriter returns a writer that forwards every complete line written to
// it (including the trailing newline) to cb.OnNext. Close flushes a partial
// last line; it does not finish cb.
func LineWriter(cb Callback[string]) *Lines {
	return &Lines{cb: cb}
}

// Lines splits a byte stream into lines. It is safe for concurrent writers.
type Lines struct {
	mu  sync.Mutex
	cb  Callback[string]
	buf bytes.Buffer
}

func (w *Lines) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(w.buf.Next(i + 1))
		w.cb.OnNext(line)
	}
	return len(p), nil
}

// Close forwards any buffered partial line.
func (w *Lines) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.cb.OnNext(w.buf.String())
		w.buf.Reset()
	}
	return nil
}
