package shine

import (
	"context"
	"strings"

	"braces.dev/errtrace"
	"golang.org/x/sync/errgroup"
)

// LoadLanguages loads the given languages into the shared highlighter.
//
// Languages that are already loaded are skipped,
// as are languages with no known loader.
// The rest are loaded concurrently,
// and LoadLanguages returns once all of them are done.
func (r *Runtime) LoadLanguages(ctx context.Context, langs ...string) error {
	r.init()

	h, err := r.GetHighlighter(ctx)
	if err != nil {
		return errtrace.Wrap(err)
	}

	loaded := make(map[string]struct{})
	for _, lang := range h.LoadedLanguages() {
		loaded[lang] = struct{}{}
	}

	bundle := r.Languages()
	g, gctx := errgroup.WithContext(ctx)
	for _, lang := range langs {
		lang = strings.ToLower(lang)
		if _, ok := loaded[lang]; ok {
			continue
		}
		// Don't load the same language twice in one call.
		loaded[lang] = struct{}{}

		load, ok := bundle[lang]
		if !ok {
			r.log.Printf("Skipping unknown language %q", lang)
			continue
		}

		g.Go(func() error {
			lexer, err := load(gctx)
			if err != nil {
				return errtrace.Errorf("load %q: %w", lang, err)
			}
			h.LoadLanguage(lexer)
			return nil
		})
	}

	return errtrace.Wrap(g.Wait())
}
