package highlight

import "errors"

var (
	// ErrUnknownLanguage indicates that Chroma has no lexer
	// for a language identifier.
	ErrUnknownLanguage = errors.New("unknown language")

	// ErrLanguageNotLoaded indicates an attempt to highlight
	// in a language that hasn't been loaded into the engine.
	ErrLanguageNotLoaded = errors.New("language not loaded")

	// ErrThemeNotLoaded indicates an attempt to highlight
	// with a theme that hasn't been loaded into the engine.
	ErrThemeNotLoaded = errors.New("theme not loaded")
)
