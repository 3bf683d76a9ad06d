package highlight

import (
	"bytes"
	"context"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"

	"braces.dev/errtrace"
	chroma "github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"golang.org/x/sync/errgroup"
)

// Engine turns source code into HTML
// using the languages and themes loaded into it.
//
// An Engine is safe for concurrent use.
type Engine struct {
	mu     sync.RWMutex
	langs  map[string]chroma.Lexer  // lower-case name or alias => lexer
	themes map[string]*chroma.Style // name => style
}

// NewEngine builds an engine with the languages and themes in core loaded.
//
// Languages are loaded from [BundledLanguages] concurrently.
// Unknown languages and themes are an error.
func NewEngine(ctx context.Context, core Core) (*Engine, error) {
	e := &Engine{
		langs:  make(map[string]chroma.Lexer),
		themes: make(map[string]*chroma.Style),
	}

	plain := lexers.Get("plaintext")
	if plain == nil {
		plain = lexers.Fallback
	}
	for _, alias := range plainTextAliases {
		e.langs[alias] = plain
	}
	e.themes[DefaultTheme] = PlainStyle

	for _, name := range core.Themes {
		style, ok := LookupTheme(name)
		if !ok {
			return nil, errtrace.Errorf("%w: %q", ErrThemeNotLoaded, name)
		}
		e.LoadTheme(style)
	}

	bundle := BundledLanguages()
	g, gctx := errgroup.WithContext(ctx)
	for _, lang := range core.Langs {
		load, ok := bundle[strings.ToLower(lang)]
		if !ok {
			return nil, errtrace.Errorf("%w: %q", ErrUnknownLanguage, lang)
		}
		g.Go(func() error {
			l, err := load(gctx)
			if err != nil {
				return errtrace.Wrap(err)
			}
			e.LoadLanguage(l)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errtrace.Wrap(err)
	}

	return e, nil
}

// LoadLanguage makes a lexer available under its name and aliases.
func (e *Engine) LoadLanguage(l chroma.Lexer) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, key := range languageKeys(l) {
		e.langs[key] = l
	}
}

// LoadTheme makes a style available under its name.
func (e *Engine) LoadTheme(s *chroma.Style) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.themes[s.Name] = s
}

// LoadedLanguages reports the identifiers of all loaded languages,
// including aliases, in sorted order.
func (e *Engine) LoadedLanguages() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return slices.Sorted(maps.Keys(e.langs))
}

// LoadedThemes reports the names of all loaded themes in sorted order.
func (e *Engine) LoadedThemes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return slices.Sorted(maps.Keys(e.themes))
}

func (e *Engine) lexer(lang string) (chroma.Lexer, error) {
	if lang == "" {
		lang = PlainText
	}

	e.mu.RLock()
	l, ok := e.langs[strings.ToLower(lang)]
	e.mu.RUnlock()
	if !ok {
		return nil, errtrace.Errorf("%w: %q", ErrLanguageNotLoaded, lang)
	}
	return l, nil
}

func (e *Engine) style(name string) (*chroma.Style, error) {
	e.mu.RLock()
	s, ok := e.themes[name]
	e.mu.RUnlock()
	if !ok {
		return nil, errtrace.Errorf("%w: %q", ErrThemeNotLoaded, name)
	}
	return s, nil
}

// themeName picks the theme to render with.
// With multiple themes, output is class based
// and the style only decides the wrapper's fallback colors.
func themeName(opts Options) string {
	if opts.Theme != "" {
		return opts.Theme
	}
	if len(opts.Themes) > 0 {
		return opts.Themes[slices.Sorted(maps.Keys(opts.Themes))[0]]
	}
	return DefaultTheme
}

// CodeToHTML renders the given code into HTML.
//
// The language and theme must have been loaded into the engine.
func (e *Engine) CodeToHTML(code string, opts Options) (string, error) {
	lexer, err := e.lexer(opts.Lang)
	if err != nil {
		return "", errtrace.Wrap(err)
	}

	style, err := e.style(themeName(opts))
	if err != nil {
		return "", errtrace.Wrap(err)
	}
	for _, name := range opts.Themes {
		if _, err := e.style(name); err != nil {
			return "", errtrace.Wrap(err)
		}
	}

	iter, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", errtrace.Wrap(err)
	}

	var buf bytes.Buffer
	if err := newFormatter(opts).Format(&buf, style, iter); err != nil {
		return "", errtrace.Wrap(err)
	}

	if len(opts.Transformers) == 0 {
		return buf.String(), nil
	}
	return errtrace.Wrap2(transform(buf.Bytes(), opts.Transformers))
}

// WriteCSS writes the class based style sheet for a loaded theme.
func (e *Engine) WriteCSS(w io.Writer, theme string) error {
	style, err := e.style(theme)
	if err != nil {
		return errtrace.Wrap(err)
	}
	return errtrace.Wrap(newFormatter(Options{Classes: true}).WriteCSS(w, style))
}

func newFormatter(opts Options) *chromahtml.Formatter {
	fopts := []chromahtml.Option{
		chromahtml.WithClasses(opts.Classes || len(opts.Themes) > 0),
		chromahtml.WithLineNumbers(opts.LineNumbers),
	}
	if opts.TabWidth > 0 {
		fopts = append(fopts, chromahtml.TabWidth(opts.TabWidth))
	}
	return chromahtml.New(fopts...)
}
