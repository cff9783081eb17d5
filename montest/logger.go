// Copyright © 2025 The MON authors

package montest

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"testing"
)

// Writer forwards complete lines to t.Log.
type Writer struct {
	t   testing.TB
	mu  sync.Mutex
	buf []byte
}

var _ io.Writer = (*Writer)(nil)

// NewWriter returns a Writer logging to t.
func NewWriter(t testing.TB) *Writer {
	return &Writer{t: t}
}

func (w *Writer) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, b...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			return len(b), nil
		}
		w.t.Log(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
}

// Flush logs any trailing partial line.
func (w *Writer) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) == 0 {
		return
	}
	w.t.Log(string(w.buf))
	w.buf = nil
}

// Logger returns a debug-level logger writing to t.Log. Pending output is
// flushed when the test ends.
func Logger(t testing.TB) *slog.Logger {
	w := NewWriter(t)
	t.Cleanup(w.Flush)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
