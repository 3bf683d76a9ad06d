// Package iotest provides IO helpers for tests.
package iotest

import (
	"bytes"
	"io"
	"sync"
	"testing"
)

// Writer builds an io.Writer that logs to the given testing.TB,
// one line at a time.
// Partial lines are flushed when the test finishes.
//
// This is handy to plug a [log.Logger] into a test.
func Writer(t testing.TB) io.Writer {
	w := &lineWriter{
		logLine: func(line []byte) {
			t.Logf("%s", bytes.TrimSuffix(line, []byte("\n")))
		},
	}
	t.Cleanup(w.flush)
	return w
}

// lineWriter calls logLine once per line written to it,
// including the trailing newline.
type lineWriter struct {
	logLine func([]byte)

	mu      sync.Mutex   // guards partial
	partial bytes.Buffer // text after the last newline
}

func (w *lineWriter) Write(bs []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	total := len(bs)
	for len(bs) > 0 {
		idx := bytes.IndexByte(bs, '\n')
		if idx < 0 {
			w.partial.Write(bs)
			break
		}

		var line []byte
		line, bs = bs[:idx+1], bs[idx+1:]
		if w.partial.Len() == 0 {
			w.logLine(line)
			continue
		}

		w.partial.Write(line)
		w.logLine(w.partial.Bytes())
		w.partial.Reset()
	}
	return total, nil
}

// flush logs buffered text even if it doesn't end with a newline.
func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.partial.Len() > 0 {
		w.logLine(w.partial.Bytes())
		w.partial.Reset()
	}
}
