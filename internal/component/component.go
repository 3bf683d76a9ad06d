// Package component renders highlighted code as an HTML element
// and hydrates that element on the client.
//
// On the server, [Render] produces the element with its markup filled in.
// On the client, [Mount] takes over an element produced by [Render],
// reuses its markup as-is,
// and re-renders only when the code or language changes.
package component

import (
	"context"
	"errors"
	"html/template"
	"strings"
	"sync"

	"braces.dev/errtrace"
	"github.com/andybalholm/cascadia"
	"go.abhg.dev/lazyhl/internal/highlight"
	"go.abhg.dev/lazyhl/internal/reactive"
	"go.abhg.dev/lazyhl/internal/shine"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultTag is the element that wraps highlighted code by default.
const DefaultTag = "pre"

var (
	// ErrInvalidTag indicates that an element name can't be used.
	ErrInvalidTag = errors.New("invalid element name")

	// ErrNotFound indicates that no element matched a selector.
	ErrNotFound = errors.New("element not found")
)

// Props configure a rendered element.
type Props struct {
	Code string
	Lang string

	// HighlightOptions pass through to the highlighter.
	HighlightOptions highlight.Options

	// As is the element to render. Defaults to [DefaultTag].
	As string

	// Unwrap strips the highlighter's own wrapper element
	// from the markup.
	// Defaults to true if the element is a "pre".
	Unwrap *bool
}

func (p *Props) tag() string {
	if p.As == "" {
		return DefaultTag
	}
	return p.As
}

func (p *Props) options() highlight.Options {
	opts := p.HighlightOptions
	opts.Unwrap = opts.Unwrap || unwrapFor(p.tag(), p.Unwrap)
	return opts
}

func unwrapFor(tag string, unwrap *bool) bool {
	if unwrap != nil {
		return *unwrap
	}
	return tag == DefaultTag
}

// Render renders the element for props on the server.
func Render(ctx context.Context, rt *shine.Runtime, props Props) (template.HTML, error) {
	tag := props.tag()
	if err := validateTag(tag); err != nil {
		return "", errtrace.Wrap(err)
	}

	h, err := rt.UseHighlighted(ctx, reactive.Static(props.Code), shine.UseOptions{
		Lang:    reactive.Static(props.Lang),
		Options: props.options(),
	})
	if err != nil {
		return "", errtrace.Wrap(err)
	}
	defer h.Stop()

	el := newElement(tag)
	if err := setInnerHTML(el, h.Get()); err != nil {
		return "", errtrace.Wrap(err)
	}

	var sb strings.Builder
	if err := html.Render(&sb, el); err != nil {
		return "", errtrace.Wrap(err)
	}
	return template.HTML(sb.String()), nil
}

func validateTag(tag string) error {
	if tag == "" || strings.ContainsAny(tag, " \t\n<>/\"'=") {
		return errtrace.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	return nil
}

func newElement(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

// parseFragment is html.ParseFragment. Tests replace it.
var parseFragment = html.ParseFragment

// setInnerHTML replaces the children of el with the parsed markup.
// el is left untouched if the markup can't be parsed.
func setInnerHTML(el *html.Node, markup string) error {
	nodes, err := parseFragment(strings.NewReader(markup), el)
	if err != nil {
		return errtrace.Wrap(err)
	}

	for c := el.FirstChild; c != nil; {
		next := c.NextSibling
		el.RemoveChild(c)
		c = next
	}
	for _, n := range nodes {
		el.AppendChild(n)
	}
	return nil
}

// Find returns the first element under doc matching selector.
func Find(doc *html.Node, selector string) (*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	el := cascadia.Query(doc, sel)
	if el == nil {
		return nil, errtrace.Errorf("%w: %q", ErrNotFound, selector)
	}
	return el, nil
}

// LiveProps configure a mounted element.
type LiveProps struct {
	Code reactive.Source[string]
	Lang reactive.Source[string]

	// HighlightOptions pass through to the highlighter.
	HighlightOptions highlight.Options

	// Unwrap strips the highlighter's own wrapper element.
	// Defaults to true if the element is a "pre".
	Unwrap *bool
}

// Mounted is an element whose content follows its inputs.
type Mounted struct {
	h      *shine.Highlighted
	cancel func()

	mu  sync.Mutex // guards el and err
	el  *html.Node
	err error // last failure to update el
}

// Mount takes over el, an element previously produced by [Render].
//
// The element's current content is kept as the initial markup.
// After that, every change to props.Code or props.Lang
// replaces the element's content.
// rt should be in [shine.ModeClient].
func Mount(ctx context.Context, rt *shine.Runtime, el *html.Node, props LiveProps) (*Mounted, error) {
	if el == nil || el.Type != html.ElementNode {
		return nil, errtrace.Errorf("%w: not an element", ErrNotFound)
	}

	hydrated, err := highlight.InnerHTML(el)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	opts := props.HighlightOptions
	opts.Unwrap = opts.Unwrap || unwrapFor(el.Data, props.Unwrap)

	h, err := rt.UseHighlighted(ctx, props.Code, shine.UseOptions{
		Lang:        props.Lang,
		Highlighted: hydrated,
		Options:     opts,
	})
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	m := &Mounted{h: h, el: el}
	m.cancel = h.Subscribe(m.update)
	// The first render may have finished before we subscribed.
	m.update()
	return m, nil
}

func (m *Mounted) update() {
	markup := m.h.Get()

	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := highlight.InnerHTML(m.el)
	if err == nil && current == markup {
		return
	}
	m.err = setInnerHTML(m.el, markup)
}

// Highlighted returns the current highlighted markup.
func (m *Mounted) Highlighted() string {
	return m.h.Get()
}

// OuterHTML renders the element as it currently stands.
func (m *Mounted) OuterHTML() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sb strings.Builder
	if err := html.Render(&sb, m.el); err != nil {
		return "", errtrace.Wrap(err)
	}
	return sb.String(), nil
}

// Err reports the error from the most recent render, if any,
// or the failure to place its markup into the element.
func (m *Mounted) Err() error {
	if err := m.h.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Unmount stops following the inputs.
// The element keeps its current content.
func (m *Mounted) Unmount() {
	m.cancel()
	m.h.Stop()
}
