// Package document parses HTML entry documents, classifies the asset
// references they carry, and rewrites those references to point at build
// outputs.
//
// Classification is opt-in per element. An element marked with
// BundleAttribute becomes a bundler entry point; one marked with
// StaticAttribute is copied verbatim into the output directory. Unmarked
// elements are left exactly as written.
package document

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Element is the attribute-level view of one document element.
type Element interface {
	Tag() string
	GetAttribute(name string) (string, bool)
	SetAttribute(name, value string)
	RemoveAttribute(name string)
	HasAttribute(name string) bool
}

// Document is the capability set the classifier needs from a parsed tree.
type Document interface {
	QuerySelectorAll(selector string) ([]Element, error)
	AppendChild(parentSelector, markup string) error
	Render(w io.Writer) error
}

// HTMLDocument is a Document backed by golang.org/x/net/html.
type HTMLDocument struct {
	root *html.Node
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*HTMLDocument, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return &HTMLDocument{root: root}, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*HTMLDocument, error) {
	return Parse(strings.NewReader(s))
}

// QuerySelectorAll returns the elements matching a CSS selector group in
// document order.
func (d *HTMLDocument) QuerySelectorAll(selector string) ([]Element, error) {
	nodes, err := d.query(selector)
	if err != nil {
		return nil, err
	}

	elems := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elems = append(elems, &htmlElement{node: n})
	}
	return elems, nil
}

func (d *HTMLDocument) query(selector string) ([]*html.Node, error) {
	group, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return cascadia.QueryAll(d.root, group), nil
}

// AppendChild parses markup as a fragment in the context of the first
// element matching parentSelector and appends the result to it.
func (d *HTMLDocument) AppendChild(parentSelector, markup string) error {
	parents, err := d.query(parentSelector)
	if err != nil {
		return err
	}
	if len(parents) == 0 {
		return fmt.Errorf("no element matches %q", parentSelector)
	}
	parent := parents[0]

	nodes, err := html.ParseFragment(strings.NewReader(markup), parent)
	if err != nil {
		return fmt.Errorf("parsing fragment: %w", err)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	return nil
}

// Render serializes the (possibly rewritten) document.
func (d *HTMLDocument) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document, swallowing errors.
func (d *HTMLDocument) String() string {
	var buf bytes.Buffer
	_ = d.Render(&buf)
	return buf.String()
}

type htmlElement struct {
	node *html.Node
}

func (e *htmlElement) Tag() string {
	return e.node.Data
}

func (e *htmlElement) GetAttribute(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (e *htmlElement) SetAttribute(name, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

func (e *htmlElement) RemoveAttribute(name string) {
	attrs := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		attrs = append(attrs, a)
	}
	e.node.Attr = attrs
}

func (e *htmlElement) HasAttribute(name string) bool {
	_, ok := e.GetAttribute(name)
	return ok
}
