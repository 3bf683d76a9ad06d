package shine

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.abhg.dev/lazyhl/internal/config"
	"go.abhg.dev/lazyhl/internal/highlight"
	"go.abhg.dev/lazyhl/internal/reactive"
	"golang.org/x/net/html"
)

// renderCounter is a no-op transformer that counts the renders it sees.
type renderCounter struct{ n atomic.Int32 }

func (*renderCounter) Name() string { return "counter" }

func (c *renderCounter) Transform(*html.Node) error {
	c.n.Add(1)
	return nil
}

var _noop = highlight.TransformFunc("noop", func(*html.Node) error { return nil })

// newClientRuntime builds a client runtime.
// Background renders may outlive the test, so it doesn't log to t.
func newClientRuntime(t *testing.T) *Runtime {
	rt, _ := newTestRuntime(t, ModeClient)
	rt.Log = nil
	return rt
}

func TestUseHighlighted_server(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, ModeServer)
	ctx := context.Background()

	var counter renderCounter
	code := reactive.NewCell("package main")
	got, err := rt.UseHighlighted(ctx, code, UseOptions{
		Lang:    reactive.Static("go"),
		Options: highlight.Options{Transformers: []highlight.Transformer{&counter}},
	})
	require.NoError(t, err)
	defer got.Stop()

	assert.Contains(t, got.Get(), "package")
	assert.Equal(t, int32(1), counter.n.Load())

	code.Set("package other")
	assert.Equal(t, int32(1), counter.n.Load(), "server mode should not watch")
	assert.NotContains(t, got.Get(), "other")
}

func TestUseHighlighted_serverError(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, ModeServer)
	_, err := rt.UseHighlighted(context.Background(), reactive.Static("x"), UseOptions{
		Lang: reactive.Static("cobol"),
	})
	assert.ErrorIs(t, err, highlight.ErrLanguageNotLoaded)
}

func TestUseHighlighted_serverNilCode(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, ModeServer)
	got, err := rt.UseHighlighted(context.Background(), nil, UseOptions{})
	require.NoError(t, err)
	assert.Contains(t, got.Get(), "<pre")
}

func TestUseHighlighted_clientImmediate(t *testing.T) {
	t.Parallel()

	rt := newClientRuntime(t)
	ctx := context.Background()

	got, err := rt.UseHighlighted(ctx, reactive.Static("package main"), UseOptions{
		Lang: reactive.Static("go"),
	})
	require.NoError(t, err)
	defer got.Stop()

	assert.Eventually(t, func() bool {
		return strings.Contains(got.Get(), "package")
	}, _waitFor, _tick)
	assert.NoError(t, got.Err())
}

func TestUseHighlighted_hydrated(t *testing.T) {
	t.Parallel()

	rt := newClientRuntime(t)
	ctx := context.Background()

	var counter renderCounter
	code := reactive.NewCell("package main")
	hydrated := `<pre>server output</pre>`
	got, err := rt.UseHighlighted(ctx, code, UseOptions{
		Lang:        reactive.Static("go"),
		Highlighted: hydrated,
		Options:     highlight.Options{Transformers: []highlight.Transformer{&counter}},
	})
	require.NoError(t, err)
	defer got.Stop()

	assert.Equal(t, hydrated, got.Get())
	assert.Never(t, func() bool {
		return counter.n.Load() > 0
	}, 50*_tick, _tick, "hydrated markup should not be re-rendered")

	code.Set("package other")
	assert.Eventually(t, func() bool {
		return strings.Contains(got.Get(), "other")
	}, _waitFor, _tick)
	assert.Equal(t, int32(1), counter.n.Load())
}

func TestUseHighlighted_langChange(t *testing.T) {
	t.Parallel()

	rt := newClientRuntime(t)
	ctx := context.Background()

	var counter renderCounter
	lang := reactive.NewCell("js")
	got, err := rt.UseHighlighted(ctx, reactive.Static("const x = 1"), UseOptions{
		Lang:    lang,
		Options: highlight.Options{Transformers: []highlight.Transformer{&counter}},
	})
	require.NoError(t, err)
	defer got.Stop()

	assert.Eventually(t, func() bool {
		return counter.n.Load() == 1 && got.Get() != ""
	}, _waitFor, _tick)

	lang.Set("ts")
	assert.Eventually(t, func() bool {
		return counter.n.Load() == 2
	}, _waitFor, _tick)

	h, err := rt.GetHighlighter(ctx)
	require.NoError(t, err)
	want, err := h.Highlight(ctx, "const x = 1", highlight.Options{
		Lang:         "ts",
		Transformers: []highlight.Transformer{_noop},
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return got.Get() == want
	}, _waitFor, _tick)
	assert.Equal(t, int32(2), counter.n.Load(), "one render per change")
}

func TestUseHighlighted_staleResultDropped(t *testing.T) {
	t.Parallel()

	rt := newClientRuntime(t)
	ctx := context.Background()

	release := make(chan struct{})
	var finished atomic.Int32
	slow := highlight.TransformFunc("slow", func(root *html.Node) error {
		defer finished.Add(1)
		out, err := highlight.InnerHTML(root)
		if err != nil {
			return err
		}
		if strings.Contains(out, "slow") {
			<-release
		}
		return nil
	})

	code := reactive.NewCell("slow")
	got, err := rt.UseHighlighted(ctx, code, UseOptions{
		Options: highlight.Options{Transformers: []highlight.Transformer{slow}},
	})
	require.NoError(t, err)
	defer got.Stop()

	code.Set("fast")
	assert.Eventually(t, func() bool {
		return strings.Contains(got.Get(), "fast")
	}, _waitFor, _tick)

	close(release)
	assert.Eventually(t, func() bool {
		return finished.Load() == 2
	}, _waitFor, _tick)
	assert.Never(t, func() bool {
		return strings.Contains(got.Get(), "slow")
	}, 20*_tick, _tick, "stale render should not overwrite newer output")
}

func TestUseHighlighted_clientError(t *testing.T) {
	t.Parallel()

	rt := newClientRuntime(t)
	ctx := context.Background()

	lang := reactive.NewCell("go")
	got, err := rt.UseHighlighted(ctx, reactive.Static("package main"), UseOptions{Lang: lang})
	require.NoError(t, err)
	defer got.Stop()

	assert.Eventually(t, func() bool {
		return got.Get() != ""
	}, _waitFor, _tick)
	before := got.Get()

	lang.Set("cobol")
	assert.Eventually(t, func() bool {
		return got.Err() != nil
	}, _waitFor, _tick)
	assert.ErrorIs(t, got.Err(), highlight.ErrLanguageNotLoaded)
	assert.Equal(t, before, got.Get(), "failed render keeps last value")
}

func TestUseHighlighted_stop(t *testing.T) {
	t.Parallel()

	rt := newClientRuntime(t)

	var counter renderCounter
	code := reactive.NewCell("a")
	got, err := rt.UseHighlighted(context.Background(), code, UseOptions{
		Highlighted: "<pre>a</pre>",
		Options:     highlight.Options{Transformers: []highlight.Transformer{&counter}},
	})
	require.NoError(t, err)

	got.Stop()
	code.Set("b")
	assert.Never(t, func() bool {
		return counter.n.Load() > 0
	}, 20*_tick, _tick, "no renders after Stop")
	assert.Equal(t, "<pre>a</pre>", got.Get())

	got.Stop() // idempotent
}

func TestUseHighlighted_themesScrubbed(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, ModeServer)
	rt.Options = func(context.Context, ...string) (*config.Options, error) {
		opts := config.Default()
		opts.Highlight.Themes = map[string]string{"light": "github", "dark": "monokai"}
		return opts, nil
	}

	got, err := rt.UseHighlighted(context.Background(), reactive.Static("package main"), UseOptions{
		Lang:    reactive.Static("go"),
		Options: highlight.Options{Themes: map[string]string{}},
	})
	require.NoError(t, err)

	// The configured themes survive, so output is class based.
	assert.Contains(t, got.Get(), `class="chroma"`)
	assert.NotContains(t, got.Get(), "style=")
}

func TestScrubThemes(t *testing.T) {
	t.Parallel()

	assert.Nil(t, scrubThemes(highlight.Options{Themes: map[string]string{}}).Themes)
	assert.Nil(t, scrubThemes(highlight.Options{}).Themes)
	assert.Equal(t,
		map[string]string{"dark": "monokai"},
		scrubThemes(highlight.Options{Themes: map[string]string{"dark": "monokai"}}).Themes)
}
