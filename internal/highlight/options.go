package highlight

// Core lists the languages and themes an [Engine] loads
// when it's constructed.
type Core struct {
	Langs  []string `yaml:"langs" toml:"langs"`
	Themes []string `yaml:"themes" toml:"themes"`
}

// Options control how a single piece of code is highlighted.
//
// Zero values mean "not specified".
type Options struct {
	// Lang is the language of the code.
	// Defaults to [PlainText].
	Lang string `yaml:"lang,omitempty" toml:"lang,omitempty"`

	// Theme is the name of the color theme.
	// Defaults to [DefaultTheme].
	Theme string `yaml:"theme,omitempty" toml:"theme,omitempty"`

	// Themes maps a color scheme name (e.g. "light", "dark")
	// to a theme name.
	//
	// If non-empty, output uses CSS classes instead of inline styles
	// so that the scheme can be switched with a style sheet.
	Themes map[string]string `yaml:"themes,omitempty" toml:"themes,omitempty"`

	// Classes requests CSS classes instead of inline styles.
	Classes bool `yaml:"classes,omitempty" toml:"classes,omitempty"`

	// LineNumbers adds line numbers to the output.
	LineNumbers bool `yaml:"lineNumbers,omitempty" toml:"lineNumbers,omitempty"`

	// TabWidth is the number of spaces a tab expands to.
	TabWidth int `yaml:"tabWidth,omitempty" toml:"tabWidth,omitempty"`

	// Unwrap strips the outermost element from the output.
	Unwrap bool `yaml:"unwrap,omitempty" toml:"unwrap,omitempty"`

	// Transformers post-process the rendered markup in order.
	Transformers []Transformer `yaml:"-" toml:"-"`
}

// Resolve merges per-call options over base options.
//
// Fields set in override win over those in base.
// The transformer pipeline of the result is [Unwrap]
// (if override requests it) followed by override's transformers,
// so that caller transformers see unwrapped markup.
func Resolve(base, override Options) Options {
	opts := base
	if override.Lang != "" {
		opts.Lang = override.Lang
	}
	if override.Theme != "" {
		opts.Theme = override.Theme
	}
	if override.Themes != nil {
		opts.Themes = override.Themes
	}
	if override.Classes {
		opts.Classes = true
	}
	if override.LineNumbers {
		opts.LineNumbers = true
	}
	if override.TabWidth != 0 {
		opts.TabWidth = override.TabWidth
	}
	opts.Unwrap = override.Unwrap

	opts.Transformers = make([]Transformer, 0, len(override.Transformers)+1)
	if override.Unwrap {
		opts.Transformers = append(opts.Transformers, Unwrap)
	}
	opts.Transformers = append(opts.Transformers, override.Transformers...)
	return opts
}
