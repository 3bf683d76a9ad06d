package shine

import (
	"context"
	"sync"
	"sync/atomic"

	"braces.dev/errtrace"
	"go.abhg.dev/lazyhl/internal/highlight"
	"go.abhg.dev/lazyhl/internal/reactive"
)

// UseOptions configure [Runtime.UseHighlighted].
type UseOptions struct {
	// Lang is the language of the code.
	Lang reactive.Source[string]

	// Theme is the color theme.
	Theme reactive.Source[string]

	// Highlighted is markup recovered from server-rendered output.
	// When set, the client does not render again
	// until one of the inputs changes.
	Highlighted string

	// Options are passed through to every highlight call.
	// Options.Lang and Options.Theme are ignored in favor of Lang and Theme.
	Options highlight.Options
}

// Highlighted is a live cell of highlighted markup.
type Highlighted struct {
	*reactive.Cell[string]

	err  atomic.Pointer[error]
	stop func()
}

// Err reports the error from the most recent render, if any.
func (h *Highlighted) Err() error {
	if p := h.err.Load(); p != nil {
		return *p
	}
	return nil
}

func (h *Highlighted) setErr(err error) {
	h.err.Store(&err)
}

// Stop stops tracking inputs.
// The cell keeps its last value.
func (h *Highlighted) Stop() {
	h.stop()
}

// useInput is the tuple of watched inputs.
type useInput struct {
	code, lang, theme string
}

// UseHighlighted returns a cell of highlighted markup for code.
//
// In [ModeServer], the markup is rendered before UseHighlighted returns
// and nothing is watched.
//
// In [ModeClient], the cell starts out with opts.Highlighted
// (or empty, in which case a render starts right away),
// and every change to code, language, or theme starts a new render
// in the background.
// Only the newest render may update the cell;
// results of older renders that finish late are dropped.
// Tracking stops when ctx ends or [Highlighted.Stop] is called.
func (r *Runtime) UseHighlighted(ctx context.Context, code reactive.Source[string], opts UseOptions) (*Highlighted, error) {
	r.init()

	if code == nil {
		code = reactive.Static("")
	}
	if opts.Lang == nil {
		opts.Lang = reactive.Static(opts.Options.Lang)
	}
	if opts.Theme == nil {
		opts.Theme = reactive.Static(opts.Options.Theme)
	}
	opts.Options = scrubThemes(opts.Options)

	get := func() useInput {
		return useInput{
			code:  code.Get(),
			lang:  opts.Lang.Get(),
			theme: opts.Theme.Get(),
		}
	}

	if r.Mode == ModeServer {
		out, err := r.render(ctx, get(), opts.Options)
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
		return &Highlighted{
			Cell: reactive.NewCell(out),
			stop: func() {},
		}, nil
	}

	h := &Highlighted{Cell: reactive.NewCell(opts.Highlighted)}

	var (
		mu         sync.Mutex // guards the generation check and Set
		generation atomic.Uint64
	)
	rerender := func(in useInput) {
		gen := generation.Add(1)
		go func() {
			out, err := r.render(ctx, in, opts.Options)

			mu.Lock()
			defer mu.Unlock()
			if latest := generation.Load(); latest != gen {
				r.log.Printf("Dropping stale highlight result (%d < %d)", gen, latest)
				return
			}

			h.setErr(err)
			if err != nil {
				if ctx.Err() == nil {
					r.log.Printf("highlight %v: %v", in.lang, err)
				}
				return
			}
			h.Set(out)
		}()
	}

	w := reactive.Watch(get,
		[]reactive.Dep{code, opts.Lang, opts.Theme},
		rerender,
		reactive.WatchOptions{Immediate: opts.Highlighted == ""},
	)
	stopAfter := context.AfterFunc(ctx, w.Stop)
	h.stop = func() {
		stopAfter()
		w.Stop()
	}
	return h, nil
}

func (r *Runtime) render(ctx context.Context, in useInput, opts highlight.Options) (string, error) {
	hl, err := r.GetHighlighter(ctx)
	if err != nil {
		return "", errtrace.Wrap(err)
	}

	opts.Lang = in.lang
	opts.Theme = in.theme
	return errtrace.Wrap2(hl.Highlight(ctx, in.code, opts))
}

// scrubThemes drops a themes mapping that is present but empty
// so it doesn't replace the configured themes.
func scrubThemes(opts highlight.Options) highlight.Options {
	if opts.Themes != nil && len(opts.Themes) == 0 {
		opts.Themes = nil
	}
	return opts
}
