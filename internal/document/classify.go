package document

import (
	"fmt"

	"github.com/conneroisu/docpack/internal/errors"
	"github.com/conneroisu/docpack/internal/paths"
)

// Marker attributes. They are stripped from the element once read.
const (
	BundleAttribute = "data-bundle"
	StaticAttribute = "data-static"
)

// ScriptOutputExt is the extension bundled script references are rewritten to.
const ScriptOutputExt = ".js"

// Marker is the classification requested for one element.
type Marker int

const (
	MarkerNone Marker = iota
	MarkerBundle
	MarkerStatic
)

// String returns the string representation of the Marker
func (m Marker) String() string {
	switch m {
	case MarkerBundle:
		return "bundle"
	case MarkerStatic:
		return "static"
	default:
		return "none"
	}
}

// ClassifyOptions carries the two directories classification depends on.
// Both must be absolute.
type ClassifyOptions struct {
	Outbase     string
	DocumentDir string
}

// reference is one rewritable attribute location.
type reference struct {
	elem Element
	attr string
}

// referenceSelectors lists the non-script reference-bearing elements in the
// order they are processed.
var referenceSelectors = []struct {
	selector string
	attr     string
}{
	{"link[href]", "href"},
	{"a[href]", "href"},
	{"source[src]", "src"},
	{"img[src]", "src"},
	{"embed[src]", "src"},
	{"audio[src]", "src"},
	{"object[data]", "data"},
}

// Classify walks doc, rewrites every marked reference in place and returns
// the resulting manifest. Any error aborts classification; elements already
// processed keep their rewrites.
func Classify(doc Document, opts ClassifyOptions) (*Manifest, error) {
	c := &classifier{opts: opts, manifest: NewManifest()}

	scripts, err := doc.QuerySelectorAll("script[src]")
	if err != nil {
		return nil, err
	}
	for _, s := range scripts {
		if err := c.classify(reference{elem: s, attr: "src"}); err != nil {
			return nil, err
		}
	}

	srcsets, err := doc.QuerySelectorAll("source[srcset]")
	if err != nil {
		return nil, err
	}
	for _, s := range srcsets {
		if err := rejectSrcset(s); err != nil {
			return nil, err
		}
	}

	for _, rs := range referenceSelectors {
		elems, err := doc.QuerySelectorAll(rs.selector)
		if err != nil {
			return nil, err
		}
		for _, e := range elems {
			if err := c.classify(reference{elem: e, attr: rs.attr}); err != nil {
				return nil, err
			}
		}
	}

	return c.manifest, nil
}

type classifier struct {
	opts     ClassifyOptions
	manifest *Manifest
}

func (c *classifier) classify(ref reference) error {
	raw, _ := ref.elem.GetAttribute(ref.attr)

	marker, err := takeMarker(ref.elem, raw)
	if err != nil {
		return err
	}

	switch marker {
	case MarkerBundle:
		return c.bundle(ref, raw)
	case MarkerStatic:
		return c.static(ref, raw)
	default:
		return nil
	}
}

func (c *classifier) bundle(ref reference, raw string) error {
	tag := ref.elem.Tag()
	if paths.IsURL(raw) {
		return errors.NewUnsupportedReferenceError(tag, raw,
			fmt.Sprintf("bundling remote <%s> reference %q is not supported", tag, raw))
	}
	if tag == "script" {
		if ty, _ := ref.elem.GetAttribute("type"); ty != "module" {
			return errors.NewUnsupportedReferenceError(tag, raw,
				fmt.Sprintf("bundle target script %q must have type=\"module\"", raw))
		}
	}

	abs := paths.ResolveDocumentRelative(c.opts.DocumentDir, raw)
	out := paths.OutputPath(c.opts.Outbase, c.opts.DocumentDir, abs)
	if tag == "script" {
		out = paths.ReplaceExt(out, ScriptOutputExt)
	}

	if err := c.manifest.AddEntryPoint(abs); err != nil {
		return err
	}
	ref.elem.SetAttribute(ref.attr, out)
	return nil
}

func (c *classifier) static(ref reference, raw string) error {
	tag := ref.elem.Tag()
	if paths.IsURL(raw) {
		return errors.NewUnsupportedReferenceError(tag, raw,
			fmt.Sprintf("copying remote <%s> resource %q is not supported", tag, raw))
	}

	abs := paths.ResolveDocumentRelative(c.opts.DocumentDir, raw)
	out := paths.OutputPath(c.opts.Outbase, c.opts.DocumentDir, abs)

	if err := c.manifest.AddStaticResource(abs, out); err != nil {
		return err
	}
	ref.elem.SetAttribute(ref.attr, out)
	return nil
}

// takeMarker reads and strips the classification marker. An element carrying
// both markers is left untouched.
func takeMarker(e Element, raw string) (Marker, error) {
	isBundle := e.HasAttribute(BundleAttribute)
	isStatic := e.HasAttribute(StaticAttribute)

	switch {
	case isBundle && isStatic:
		return MarkerNone, errors.NewAmbiguousClassificationError(e.Tag(), raw)
	case isBundle:
		e.RemoveAttribute(BundleAttribute)
		return MarkerBundle, nil
	case isStatic:
		e.RemoveAttribute(StaticAttribute)
		return MarkerStatic, nil
	default:
		return MarkerNone, nil
	}
}

// rejectSrcset fails for any marked srcset element; the multi-URL grammar
// of srcset is not rewritten.
func rejectSrcset(e Element) error {
	raw, _ := e.GetAttribute("srcset")
	marker, err := takeMarker(e, raw)
	if err != nil {
		return err
	}
	if marker == MarkerNone {
		return nil
	}
	return errors.NewUnsupportedReferenceError(e.Tag(), raw,
		fmt.Sprintf("srcset classification unsupported: %s source element with srcset attribute", marker))
}
