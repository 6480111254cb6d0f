// Package paths computes output locations for document references. Every
// function is pure; results always use forward slashes.
package paths

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// ParentSentinel replaces ".." segments in bundler-facing paths.
const ParentSentinel = "_.._"

// ResolveDocumentRelative joins rawRef onto documentDir and normalizes it.
// Absolute references are kept as absolute paths.
func ResolveDocumentRelative(documentDir, rawRef string) string {
	ref := filepath.FromSlash(rawRef)
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Join(documentDir, ref)
}

// TryRelative returns the slash-separated path of target relative to base.
// ok is false when target escapes base.
func TryRelative(base, target string) (string, bool) {
	rel := Relative(base, target)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// Relative returns the slash-separated path of target relative to base,
// which may climb out of base. When no relative path exists (different
// volumes) the cleaned target is returned.
func Relative(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return filepath.ToSlash(filepath.Clean(target))
	}
	return path.Clean(filepath.ToSlash(rel))
}

// EscapeForBundler converts backslashes to slashes and replaces every ".."
// segment so the path can never read as a relative-import traversal.
func EscapeForBundler(p string) string {
	segments := strings.Split(strings.ReplaceAll(p, `\`, "/"), "/")
	for i, seg := range segments {
		if seg == ".." {
			segments[i] = ParentSentinel
		}
	}
	return strings.Join(segments, "/")
}

// OutputPath computes the escaped output-relative path for an absolute
// source path: relative to outbase when possible, otherwise relative to the
// document directory.
func OutputPath(outbase, documentDir, absolute string) string {
	rel, ok := TryRelative(outbase, absolute)
	if !ok {
		rel = Relative(documentDir, absolute)
	}
	return EscapeForBundler(rel)
}

// IsURL reports whether s is an absolute URL (scheme-qualified or
// protocol-relative) rather than a filesystem reference.
func IsURL(s string) bool {
	if strings.HasPrefix(s, "//") {
		return true
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	// A single letter scheme is a Windows drive ("C:\x"), not a URL.
	return len(u.Scheme) > 1
}

// WithoutExt strips the final extension of p, if any.
func WithoutExt(p string) string {
	ext := path.Ext(p)
	if ext == "" || strings.HasSuffix(p, "/"+ext) || p == ext {
		return p
	}
	return strings.TrimSuffix(p, ext)
}

// ReplaceExt swaps the extension of p for ext (which includes the dot).
func ReplaceExt(p, ext string) string {
	return WithoutExt(p) + ext
}
