package config

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/conneroisu/docpack/internal/errors"
)

// Source map modes accepted by SourceMap.
const (
	SourceMapNone     = "none"
	SourceMapInline   = "inline"
	SourceMapLinked   = "linked"
	SourceMapExternal = "external"
	SourceMapBoth     = "both"
)

// KnownLoaders are the loader names the bundler understands.
var KnownLoaders = []string{
	"base64", "binary", "copy", "css", "dataurl", "default", "empty", "file",
	"global-css", "js", "json", "jsx", "local-css", "text", "ts", "tsx",
}

// ServeConfig is the resolved dev server section.
type ServeConfig struct {
	Port       int           `yaml:"port"`
	Host       string        `yaml:"host"`
	Watch      []WatchTarget `yaml:"watch"`
	LiveReload bool          `yaml:"live_reload"`
}

// Complete is the fully defaulted configuration. All paths are absolute.
// Exactly one of DocumentFilePath and EntryPoints is set.
type Complete struct {
	Outdir           string   `yaml:"outdir"`
	Outbase          string   `yaml:"outbase"`
	DocumentFilePath string   `yaml:"document,omitempty"`
	DocumentDir      string   `yaml:"-"`
	WorkDir          string   `yaml:"-"`
	EntryPoints      []string `yaml:"entry_points,omitempty"`
	ClearOutdir      bool     `yaml:"clear_outdir"`

	Serve ServeConfig `yaml:"serve"`

	Bundle            bool              `yaml:"bundle"`
	TreeShaking       bool              `yaml:"tree_shaking"`
	SourceMap         string            `yaml:"source_map"`
	SourcesContent    bool              `yaml:"sources_content"`
	SourceRoot        string            `yaml:"source_root,omitempty"`
	MinifySyntax      bool              `yaml:"minify_syntax"`
	MinifyIdentifiers bool              `yaml:"minify_identifiers"`
	MinifyWhitespace  bool              `yaml:"minify_whitespace"`
	DropLabels        []string          `yaml:"drop_labels,omitempty"`
	Target            []string          `yaml:"target,omitempty"`
	External          []string          `yaml:"external,omitempty"`
	Loader            map[string]string `yaml:"loader,omitempty"`
	Define            map[string]string `yaml:"define,omitempty"`
	ConfigPath        string            `yaml:"config_path,omitempty"`
	ImportMapPath     string            `yaml:"import_map,omitempty"`
}

// HasDocument reports whether entry points come from document classification.
func (c *Complete) HasDocument() bool {
	return c.DocumentFilePath != ""
}

// ServeOverrides replaces the serve port and/or watch list for one call.
type ServeOverrides struct {
	Port  *int
	Watch []WatchTarget
}

// WithServe returns a copy of c with the overrides applied. c is unchanged.
func (c *Complete) WithServe(o ServeOverrides) *Complete {
	next := *c
	next.Serve.Watch = append([]WatchTarget(nil), c.Serve.Watch...)
	if o.Port != nil {
		next.Serve.Port = *o.Port
	}
	if o.Watch != nil {
		next.Serve.Watch = make([]WatchTarget, len(o.Watch))
		for i, w := range o.Watch {
			next.Serve.Watch[i] = WatchTarget{Path: absPath(c.WorkDir, w.Path), Recursive: w.Recursive}
		}
	}
	return &next
}

// DefaultOptions returns the documented defaults. A fresh value is built on
// every call so callers can never mutate shared state.
func DefaultOptions() Options {
	return Options{
		Outdir:      "./dist",
		Outbase:     ".",
		ClearOutdir: boolPtr(false),
		Serve: ServeOptions{
			Port:       intPtr(1415),
			Host:       "",
			Watch:      []WatchTarget{{Path: "./src", Recursive: true}},
			LiveReload: boolPtr(true),
		},
		Bundle:            boolPtr(true),
		TreeShaking:       boolPtr(true),
		SourceMap:         SourceMapLinked,
		SourcesContent:    boolPtr(true),
		MinifySyntax:      boolPtr(true),
		MinifyIdentifiers: boolPtr(true),
		MinifyWhitespace:  boolPtr(true),
	}
}

// Resolve merges DefaultOptions into user, makes paths absolute against cwd
// and validates the result.
func Resolve(user Options, cwd string) (*Complete, error) {
	def := DefaultOptions()

	if user.DocumentFilePath != "" && user.EntryPoints != nil {
		return nil, errors.NewConfigError("options must have entry points or a document, not both")
	}
	if user.DocumentFilePath == "" && user.EntryPoints == nil {
		return nil, errors.NewConfigError("options must have entry points or a document path")
	}
	if user.EntryPoints != nil && len(user.EntryPoints) == 0 {
		return nil, errors.NewConfigError("entry points must contain at least one element")
	}

	c := &Complete{
		WorkDir:     cwd,
		Outdir:      absPath(cwd, firstString(user.Outdir, def.Outdir)),
		Outbase:     absPath(cwd, firstString(user.Outbase, def.Outbase)),
		ClearOutdir: firstBool(user.ClearOutdir, def.ClearOutdir),
		Serve: ServeConfig{
			Port:       firstInt(user.Serve.Port, def.Serve.Port),
			Host:       firstString(user.Serve.Host, def.Serve.Host),
			LiveReload: firstBool(user.Serve.LiveReload, def.Serve.LiveReload),
		},
		Bundle:            firstBool(user.Bundle, def.Bundle),
		TreeShaking:       firstBool(user.TreeShaking, def.TreeShaking),
		SourceMap:         strings.ToLower(firstString(user.SourceMap, def.SourceMap)),
		SourcesContent:    firstBool(user.SourcesContent, def.SourcesContent),
		SourceRoot:        user.SourceRoot,
		MinifySyntax:      firstBool(user.MinifySyntax, def.MinifySyntax),
		MinifyIdentifiers: firstBool(user.MinifyIdentifiers, def.MinifyIdentifiers),
		MinifyWhitespace:  firstBool(user.MinifyWhitespace, def.MinifyWhitespace),
		DropLabels:        append([]string(nil), user.DropLabels...),
		Target:            append([]string(nil), user.Target...),
		External:          append([]string(nil), user.External...),
	}

	var err error
	if c.Loader, err = parsePairs("loader", user.Loader); err != nil {
		return nil, err
	}
	if c.Define, err = parsePairs("define", user.Define); err != nil {
		return nil, err
	}

	watch := user.Serve.Watch
	if len(watch) == 0 {
		watch = def.Serve.Watch
	}
	for _, w := range watch {
		c.Serve.Watch = append(c.Serve.Watch, WatchTarget{Path: absPath(cwd, w.Path), Recursive: w.Recursive})
	}

	if user.ConfigPath != "" {
		c.ConfigPath = absPath(cwd, user.ConfigPath)
	}
	if user.ImportMapPath != "" {
		c.ImportMapPath = absPath(cwd, user.ImportMapPath)
	}

	if user.EntryPoints != nil {
		for _, e := range user.EntryPoints {
			c.EntryPoints = append(c.EntryPoints, absPath(cwd, e))
		}
	} else {
		c.DocumentFilePath = absPath(cwd, user.DocumentFilePath)
		c.DocumentDir = filepath.Dir(c.DocumentFilePath)
	}

	if err := validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

func validate(c *Complete) error {
	var problems []string

	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		problems = append(problems, "serve.port must be in range 0-65535")
	}
	if strings.ContainsAny(c.Serve.Host, ";&|$`()<>\"'\\ ") {
		problems = append(problems, "serve.host contains invalid characters")
	}

	switch c.SourceMap {
	case SourceMapNone, SourceMapInline, SourceMapLinked, SourceMapExternal, SourceMapBoth:
	default:
		problems = append(problems, "source_map must be one of none, inline, linked, external, both")
	}

	exts := make([]string, 0, len(c.Loader))
	for ext := range c.Loader {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			problems = append(problems, "loader key "+ext+" must start with a dot")
		}
		if !isKnownLoader(c.Loader[ext]) {
			problems = append(problems, "unknown loader "+c.Loader[ext]+" for "+ext)
		}
	}

	for _, w := range c.Serve.Watch {
		if w.Path == "" {
			problems = append(problems, "serve.watch entries must have a path")
		}
	}

	if samePath(c.Outdir, c.Outbase) || (c.HasDocument() && samePath(c.Outdir, c.DocumentDir)) {
		problems = append(problems, "outdir must differ from outbase and the document directory")
	}

	if len(problems) > 0 {
		return errors.NewConfigError(strings.Join(problems, "; "))
	}
	return nil
}

func isKnownLoader(name string) bool {
	for _, l := range KnownLoaders {
		if l == name {
			return true
		}
	}
	return false
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

func absPath(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func firstString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func firstBool(v, def *bool) bool {
	if v != nil {
		return *v
	}
	return *def
}

func firstInt(v, def *int) int {
	if v != nil {
		return *v
	}
	return *def
}

// parsePairs converts "key=value" entries into a map.
func parsePairs(field string, pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.NewConfigError(field + " entry " + strconv.Quote(pair) + " must have the form key=value")
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }
