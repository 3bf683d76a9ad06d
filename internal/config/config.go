// Package config loads highlighter options from files.
//
// Options files may be written in YAML (or JSON), TOML,
// or Java properties format, picked by file extension.
package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"braces.dev/errtrace"
	"github.com/magiconair/properties"
	"github.com/pelletier/go-toml/v2"
	"go.abhg.dev/lazyhl/internal/highlight"
	"go.abhg.dev/lazyhl/internal/memo"
	"gopkg.in/yaml.v3"
)

// Options configure the highlighter.
type Options struct {
	// Core lists what the engine loads when it's built.
	Core highlight.Core `yaml:"core" toml:"core"`

	// Highlight holds defaults for every highlight call.
	Highlight highlight.Options `yaml:"highlight" toml:"highlight"`
}

// Default returns the options used when no file is given.
func Default() *Options {
	return &Options{
		Core: highlight.Core{
			Langs: []string{
				"javascript", "typescript", "go", "json",
				"yaml", "bash", "html", "css",
			},
			Themes: []string{"github", "monokai"},
		},
		Highlight: highlight.Options{
			Theme: "github",
		},
	}
}

// Load reads options from the file at path.
// If path is empty, [Default] options are returned.
func Load(path string) (*Options, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	opts, err := Parse(filepath.Ext(path), data)
	if err != nil {
		return nil, errtrace.Errorf("%v: %w", path, err)
	}
	return opts, nil
}

// Parse decodes options in the format identified by ext
// (e.g. ".yaml", ".toml").
func Parse(ext string, data []byte) (*Options, error) {
	var opts Options
	switch strings.ToLower(ext) {
	case ".yaml", ".yml", ".json":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&opts); err != nil {
			return nil, errtrace.Wrap(err)
		}

	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&opts); err != nil {
			return nil, errtrace.Wrap(err)
		}

	case ".properties":
		p, err := properties.Load(data, properties.UTF8)
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
		decodeProperties(p, &opts)

	default:
		return nil, errtrace.Errorf("unsupported options format %q", ext)
	}
	return &opts, nil
}

// decodeProperties reads options from dotted keys like
// "core.langs" and "highlight.themes.dark".
//
// Malformed numbers and booleans fall back to their zero values.
func decodeProperties(p *properties.Properties, opts *Options) {
	opts.Core.Langs = splitList(p.GetString("core.langs", ""))
	opts.Core.Themes = splitList(p.GetString("core.themes", ""))

	h := p.FilterStripPrefix("highlight.")
	opts.Highlight.Lang = h.GetString("lang", "")
	opts.Highlight.Theme = h.GetString("theme", "")
	opts.Highlight.Classes = h.GetBool("classes", false)
	opts.Highlight.LineNumbers = h.GetBool("lineNumbers", false)
	opts.Highlight.Unwrap = h.GetBool("unwrap", false)
	opts.Highlight.TabWidth = h.GetInt("tabWidth", 0)

	themes := h.FilterStripPrefix("themes.")
	for _, key := range themes.Keys() {
		if opts.Highlight.Themes == nil {
			opts.Highlight.Themes = make(map[string]string)
		}
		opts.Highlight.Themes[key] = themes.MustGetString(key)
	}
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Provider returns a factory that loads options from path.
// Memoize it with [memo.Cached] so the file is read once.
func Provider(path string) memo.Factory[*Options] {
	return func(context.Context, ...string) (*Options, error) {
		return errtrace.Wrap2(Load(path))
	}
}
