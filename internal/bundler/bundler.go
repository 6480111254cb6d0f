// Package bundler is the bridge to the JavaScript bundling engine.
//
// The builder depends only on the Engine and Context interfaces declared
// here. The production implementation wraps esbuild's Go API; tests inject
// fakes. Options is engine neutral apart from the plugin lists, which are
// handed to esbuild unchanged.
package bundler

import (
	"context"

	"github.com/conneroisu/docpack/internal/config"
	"github.com/evanw/esbuild/pkg/api"
)

// Engine creates incremental bundling contexts.
type Engine interface {
	Context(opts Options) (Context, error)
}

// Context is one incremental bundling session.
type Context interface {
	// Rebuild runs a full build. Bundling errors are returned as a
	// recoverable build error wrapping errors.Diagnostics.
	Rebuild(ctx context.Context) error
	// Serve starts the engine's dev server over Servedir.
	Serve(opts ServeOptions) (ServeResult, error)
	// Dispose releases the context. It is safe to call more than once.
	Dispose()
}

// ServeOptions configures the dev server.
type ServeOptions struct {
	Host     string
	Port     int
	Servedir string
}

// ServeResult reports the address the dev server bound to.
type ServeResult struct {
	Host string
	Port int
}

// JSXOptions carries JSX compilation settings.
type JSXOptions struct {
	// Mode is one of "", "transform", "preserve", "automatic", or the
	// TypeScript spellings "react", "react-jsx", "react-jsxdev".
	Mode         string
	Factory      string
	Fragment     string
	ImportSource string
}

// Options configures one bundling context.
type Options struct {
	EntryPoints []string
	Outdir      string
	Outbase     string

	Bundle            bool
	TreeShaking       bool
	SourceMap         string
	SourcesContent    bool
	SourceRoot        string
	MinifySyntax      bool
	MinifyIdentifiers bool
	MinifyWhitespace  bool
	DropLabels        []string
	Target            []string
	External          []string
	Loader            map[string]string
	Define            map[string]string

	JSX       JSXOptions
	ImportMap *ImportMap

	// Plugins run before the import map resolver, PluginsLater after it.
	Plugins      []api.Plugin
	PluginsLater []api.Plugin
}

// NewOptions derives bundling options from the resolved configuration.
// JSX settings and an inline or referenced import map are read from the
// project config file when one is configured. An explicit import map path
// takes precedence over the one named in the config file.
func NewOptions(c *config.Complete, entryPoints []string) (Options, error) {
	opts := Options{
		EntryPoints:       append([]string(nil), entryPoints...),
		Outdir:            c.Outdir,
		Outbase:           c.Outbase,
		Bundle:            c.Bundle,
		TreeShaking:       c.TreeShaking,
		SourceMap:         c.SourceMap,
		SourcesContent:    c.SourcesContent,
		SourceRoot:        c.SourceRoot,
		MinifySyntax:      c.MinifySyntax,
		MinifyIdentifiers: c.MinifyIdentifiers,
		MinifyWhitespace:  c.MinifyWhitespace,
		DropLabels:        c.DropLabels,
		Target:            c.Target,
		External:          c.External,
		Loader:            c.Loader,
		Define:            c.Define,
	}

	if c.ConfigPath != "" {
		project, err := LoadProjectConfig(c.ConfigPath)
		if err != nil {
			return Options{}, err
		}
		opts.JSX = project.JSX()
		opts.ImportMap = project.ImportMap()
	}

	if c.ImportMapPath != "" {
		m, err := LoadImportMap(c.ImportMapPath)
		if err != nil {
			return Options{}, err
		}
		opts.ImportMap = m
	}

	return opts, nil
}
