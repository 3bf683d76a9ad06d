package highlight

import (
	"context"
	"strings"
	"sync"

	"braces.dev/errtrace"
	chroma "github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// PlainText is the language used when none is specified.
// It's always loaded.
const PlainText = "text"

// plainTextAliases are the identifiers for plain text
// that every engine recognizes without loading anything.
var plainTextAliases = []string{PlainText, "plaintext", "txt", "plain"}

// LanguageLoader loads the lexer for a language on demand.
type LanguageLoader func(context.Context) (chroma.Lexer, error)

var _bundledLanguages = sync.OnceValue(func() map[string]LanguageLoader {
	names := lexers.Names(true /* aliases */)
	bundle := make(map[string]LanguageLoader, len(names))
	for _, name := range names {
		name := strings.ToLower(name)
		bundle[name] = func(context.Context) (chroma.Lexer, error) {
			l := lexers.Get(name)
			if l == nil {
				return nil, errtrace.Errorf("%w: %q", ErrUnknownLanguage, name)
			}
			return chroma.Coalesce(l), nil
		}
	}
	return bundle
})

// BundledLanguages returns loaders for every language
// that Chroma knows about, keyed by lower-case name and alias.
//
// The returned map is shared. Do not modify it.
func BundledLanguages() map[string]LanguageLoader {
	return _bundledLanguages()
}

// languageKeys reports the identifiers a lexer is addressable by.
func languageKeys(l chroma.Lexer) []string {
	cfg := l.Config()
	keys := make([]string, 0, len(cfg.Aliases)+1)
	keys = append(keys, strings.ToLower(cfg.Name))
	for _, alias := range cfg.Aliases {
		keys = append(keys, strings.ToLower(alias))
	}
	return keys
}
