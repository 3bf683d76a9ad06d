package iotest

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeT struct {
	*testing.T

	Buffer bytes.Buffer
}

func (t *fakeT) Logf(msg string, args ...any) {
	// Fprintln because t.Logf always ends with a newline.
	fmt.Fprintln(&t.Buffer, fmt.Sprintf(msg, args...))
}

func TestWriter(t *testing.T) {
	t.Parallel()

	fakeT := fakeT{T: t}
	w := Writer(&fakeT)

	_, err := io.WriteString(w, "highlight: ")
	require.NoError(t, err)
	assert.Empty(t, fakeT.Buffer.String(), "partial line should be buffered")

	_, err = io.WriteString(w, "go\nload: rust\n")
	require.NoError(t, err)
	assert.Equal(t, "highlight: go\nload: rust\n", fakeT.Buffer.String())
}

func TestLineWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc   string
		writes []string
		want   []string
	}{
		{
			desc:   "empty strings",
			writes: []string{"", "", ""},
		},
		{
			desc:   "no newline",
			writes: []string{"Loading ", "highlighter ", "options"},
			want:   []string{"Loading highlighter options"},
		},
		{
			desc:   "newline separated",
			writes: []string{"load go\n", "load rust\n\n", "skip cobol"},
			want:   []string{"load go\n", "load rust\n", "\n", "skip cobol"},
		},
		{
			desc:   "partial line",
			writes: []string{"Building ", "highlighter\nServing"},
			want:   []string{"Building highlighter\n", "Serving"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()

			var got []string
			w := &lineWriter{logLine: func(line []byte) {
				got = append(got, string(line))
			}}
			for _, input := range tt.writes {
				n, err := w.Write([]byte(input))
				require.NoError(t, err)
				assert.Equal(t, len(input), n)
			}
			w.flush()
			w.flush() // no-op

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLineWriter_concurrent(t *testing.T) {
	t.Parallel()

	var lines int
	w := &lineWriter{logLine: func([]byte) { lines++ }}

	const N = 100
	var wg sync.WaitGroup
	for range N {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := io.WriteString(w, "highlight\nrender\n")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 2*N, lines)
}
