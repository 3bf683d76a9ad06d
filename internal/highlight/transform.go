package highlight

import (
	"bytes"
	"strings"

	"braces.dev/errtrace"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Transformer post-processes rendered markup.
//
// Transform receives a synthetic container node
// whose children are the top-level nodes of the markup.
// It may rearrange those children freely.
type Transformer interface {
	Name() string
	Transform(root *html.Node) error
}

// TransformFunc builds a named [Transformer] from a function.
func TransformFunc(name string, fn func(root *html.Node) error) Transformer {
	return &funcTransformer{name: name, fn: fn}
}

type funcTransformer struct {
	name string
	fn   func(*html.Node) error
}

func (t *funcTransformer) Name() string { return t.name }

func (t *funcTransformer) Transform(root *html.Node) error {
	return errtrace.Wrap(t.fn(root))
}

// Unwrap removes the outermost element of the markup,
// leaving its contents in its place.
var Unwrap Transformer = TransformFunc("unwrap", unwrap)

func unwrap(root *html.Node) error {
	outer := root.FirstChild
	for outer != nil && outer.Type != html.ElementNode {
		outer = outer.NextSibling
	}
	if outer == nil {
		return nil
	}

	for c := outer.FirstChild; c != nil; {
		next := c.NextSibling
		outer.RemoveChild(c)
		root.InsertBefore(c, outer)
		c = next
	}
	root.RemoveChild(outer)
	return nil
}

// AddClass builds a [Transformer] that adds a CSS class
// to every element matching the given selector.
func AddClass(selector, class string) (Transformer, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	return TransformFunc("add-class", func(root *html.Node) error {
		for _, n := range cascadia.QueryAll(root, sel) {
			addClass(n, class)
		}
		return nil
	}), nil
}

func addClass(n *html.Node, class string) {
	for i, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return
			}
		}
		n.Attr[i].Val = strings.TrimSpace(attr.Val + " " + class)
		return
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
}

// transform parses markup, runs it through the transformers in order,
// and renders the result back.
func transform(markup []byte, ts []Transformer) (string, error) {
	root := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	}
	nodes, err := html.ParseFragment(bytes.NewReader(markup), root)
	if err != nil {
		return "", errtrace.Wrap(err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	for _, t := range ts {
		if err := t.Transform(root); err != nil {
			return "", errtrace.Errorf("transformer %q: %w", t.Name(), err)
		}
	}

	return errtrace.Wrap2(InnerHTML(root))
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", errtrace.Wrap(err)
		}
	}
	return buf.String(), nil
}
