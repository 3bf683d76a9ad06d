// Package shine lazily builds a shared highlighter
// and keeps highlighted markup up to date as its inputs change.
//
// A [Runtime] owns the process-wide state:
// the highlighter is built at most once, on first use,
// and every caller after that shares it.
//
// On the server, [Runtime.UseHighlighted] renders once and returns.
// On the client, it watches its inputs and re-renders when they change,
// skipping the first render if markup was recovered from the server's output.
package shine

import (
	"context"
	"io"
	"log"
	"sync"

	"braces.dev/errtrace"
	"go.abhg.dev/lazyhl/internal/config"
	"go.abhg.dev/lazyhl/internal/highlight"
	"go.abhg.dev/lazyhl/internal/memo"
	"go.abhg.dev/lazyhl/internal/telemetry"
)

// Keys of the memoized values in the registry.
const (
	instanceKey = "_instance"
	optionsKey  = "_options"
)

// Mode is the execution context of a [Runtime].
type Mode int

const (
	// ModeServer renders once per call. Nothing is watched.
	ModeServer Mode = iota

	// ModeClient keeps rendered markup in sync with its inputs.
	ModeClient
)

func (m Mode) String() string {
	switch m {
	case ModeServer:
		return "server"
	case ModeClient:
		return "client"
	default:
		return "unknown"
	}
}

// EngineFunc builds a highlighting engine.
type EngineFunc func(context.Context, highlight.Core) (*highlight.Engine, error)

// Runtime is the entry point to lazily-built highlighting.
//
// A Runtime must not be copied after first use.
type Runtime struct {
	// Registry holds the memoized highlighter and options.
	// Runtimes sharing a Registry share a highlighter.
	// If unset, the Runtime gets a private registry.
	Registry *memo.Registry

	// Options provides the highlighter configuration.
	// Defaults to [config.Default].
	Options memo.Factory[*config.Options]

	// Engine builds the engine. Defaults to [highlight.NewEngine].
	Engine EngineFunc

	// Languages lists languages that may be loaded on demand.
	// Defaults to [highlight.BundledLanguages].
	Languages func() map[string]highlight.LanguageLoader

	// Mode is the execution context. Defaults to ModeServer.
	Mode Mode

	// Log receives debug messages and background errors.
	Log *log.Logger

	// Telemetry records highlight calls. May be nil.
	Telemetry *telemetry.Instruments

	once        sync.Once
	log         *log.Logger
	highlighter memo.Func[*Highlighter]
	options     memo.Func[*config.Options]
}

func (r *Runtime) init() {
	r.once.Do(func() {
		r.log = r.Log
		if r.log == nil {
			r.log = log.New(io.Discard, "", 0)
		}
		if r.Registry == nil {
			r.Registry = memo.NewRegistry()
		}
		if r.Options == nil {
			r.Options = config.Provider("")
		}
		if r.Engine == nil {
			r.Engine = highlight.NewEngine
		}
		if r.Languages == nil {
			r.Languages = highlight.BundledLanguages
		}

		r.options = memo.Cached(r.loadOptions, memo.KeyedBy[*config.Options](r.Registry, ""))
		r.highlighter = memo.Cached(r.buildHighlighter, memo.KeyedBy[*Highlighter](r.Registry, ""))
	})
}

func (r *Runtime) loadOptions(ctx context.Context, args ...string) (*config.Options, error) {
	r.Telemetry.FactoryRun(ctx, "options")
	r.log.Printf("Loading highlighter options")
	return errtrace.Wrap2(r.Options(ctx, args...))
}

func (r *Runtime) buildHighlighter(ctx context.Context, _ ...string) (*Highlighter, error) {
	r.Telemetry.FactoryRun(ctx, "highlighter")

	opts, err := r.options(ctx, optionsKey)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	r.log.Printf("Building highlighter: langs=%q themes=%q", opts.Core.Langs, opts.Core.Themes)
	engine, err := r.Engine(ctx, opts.Core)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	return &Highlighter{
		Engine:    engine,
		options:   opts,
		telemetry: r.Telemetry,
	}, nil
}

// GetHighlighter returns the shared highlighter,
// building it on first use.
//
// Concurrent first calls share a single build.
// A failed build is retried by the next call.
func (r *Runtime) GetHighlighter(ctx context.Context) (*Highlighter, error) {
	r.init()
	return errtrace.Wrap2(r.highlighter(ctx, instanceKey))
}

// ResolveOptions merges opts over the configured highlight defaults.
func (r *Runtime) ResolveOptions(ctx context.Context, opts highlight.Options) (highlight.Options, error) {
	r.init()

	base, err := r.options(ctx, optionsKey)
	if err != nil {
		return highlight.Options{}, errtrace.Wrap(err)
	}
	return highlight.Resolve(base.Highlight, opts), nil
}

// Highlighter is a highlighting engine
// bound to the configured highlight defaults.
type Highlighter struct {
	*highlight.Engine

	options   *config.Options
	telemetry *telemetry.Instruments
}

// Highlight renders code into HTML
// with opts merged over the configured defaults.
func (h *Highlighter) Highlight(ctx context.Context, code string, opts highlight.Options) (_ string, err error) {
	resolved := highlight.Resolve(h.options.Highlight, opts)

	_, done := h.telemetry.HighlightStart(ctx, resolved.Lang, resolved.Theme)
	defer func() { done(err) }()

	return errtrace.Wrap2(h.CodeToHTML(code, resolved))
}
