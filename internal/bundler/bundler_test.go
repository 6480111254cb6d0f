package bundler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/conneroisu/docpack/internal/config"
	dperrors "github.com/conneroisu/docpack/internal/errors"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuildOptionsMapping(t *testing.T) {
	opts := Options{
		EntryPoints:       []string{"/site/main.ts"},
		Outdir:            "/site/dist",
		Outbase:           "/site",
		Bundle:            true,
		TreeShaking:       true,
		SourceMap:         config.SourceMapBoth,
		SourcesContent:    false,
		SourceRoot:        "/src",
		MinifySyntax:      true,
		MinifyWhitespace:  true,
		DropLabels:        []string{"DEV"},
		Target:            []string{"es2020", "chrome90", "Safari14"},
		External:          []string{"react"},
		Loader:            map[string]string{".svg": "file"},
		Define:            map[string]string{"DEBUG": "false"},
		JSX:               JSXOptions{Mode: "react-jsx", ImportSource: "preact"},
		MinifyIdentifiers: false,
	}

	bo, err := BuildOptions(opts)
	require.NoError(t, err)

	assert.True(t, bo.Write)
	assert.Equal(t, api.FormatESModule, bo.Format)
	assert.Equal(t, api.PlatformBrowser, bo.Platform)
	assert.Equal(t, opts.EntryPoints, bo.EntryPoints)
	assert.Equal(t, "/site/dist", bo.Outdir)
	assert.Equal(t, "/site", bo.Outbase)
	assert.True(t, bo.Bundle)
	assert.Equal(t, api.TreeShakingTrue, bo.TreeShaking)
	assert.Equal(t, api.SourceMapInlineAndExternal, bo.Sourcemap)
	assert.Equal(t, api.SourcesContentExclude, bo.SourcesContent)
	assert.Equal(t, "/src", bo.SourceRoot)
	assert.True(t, bo.MinifySyntax)
	assert.False(t, bo.MinifyIdentifiers)
	assert.True(t, bo.MinifyWhitespace)
	assert.Equal(t, []string{"DEV"}, bo.DropLabels)
	assert.Equal(t, api.ES2020, bo.Target)
	assert.Equal(t, []api.Engine{
		{Name: api.EngineChrome, Version: "90"},
		{Name: api.EngineSafari, Version: "14"},
	}, bo.Engines)
	assert.Equal(t, []string{"react"}, bo.External)
	assert.Equal(t, map[string]api.Loader{".svg": api.LoaderFile}, bo.Loader)
	assert.Equal(t, map[string]string{"DEBUG": "false"}, bo.Define)
	assert.Equal(t, api.JSXAutomatic, bo.JSX)
	assert.False(t, bo.JSXDev)
	assert.Equal(t, "preact", bo.JSXImportSource)
	assert.Empty(t, bo.Plugins)
}

func TestBuildOptionsRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"source map", Options{SourceMap: "sometimes"}},
		{"jsx mode", Options{JSX: JSXOptions{Mode: "vue"}}},
		{"loader", Options{Loader: map[string]string{".x": "magic"}}},
		{"target without version", Options{Target: []string{"chrome"}}},
		{"unknown engine", Options{Target: []string{"netscape4"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildOptions(tt.opts)
			require.Error(t, err)
			assert.True(t, dperrors.IsConfigError(err))
		})
	}
}

func TestJSXModes(t *testing.T) {
	tests := []struct {
		mode string
		jsx  api.JSX
		dev  bool
	}{
		{"", api.JSXTransform, false},
		{"react", api.JSXTransform, false},
		{"preserve", api.JSXPreserve, false},
		{"automatic", api.JSXAutomatic, false},
		{"react-jsxdev", api.JSXAutomatic, true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			jsx, dev, err := jsxMode(tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.jsx, jsx)
			assert.Equal(t, tt.dev, dev)
		})
	}
}

func TestPluginOrder(t *testing.T) {
	before := api.Plugin{Name: "before"}
	after := api.Plugin{Name: "after"}

	names := func(ps []api.Plugin) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.Name)
		}
		return out
	}

	withMap := plugins(Options{
		Plugins:      []api.Plugin{before},
		PluginsLater: []api.Plugin{after},
		ImportMap:    NewImportMap(map[string]string{"x": "./x.ts"}, "/"),
	})
	assert.Equal(t, []string{"before", ImportMapPluginName, "after"}, names(withMap))

	withoutMap := plugins(Options{Plugins: []api.Plugin{before}, PluginsLater: []api.Plugin{after}})
	assert.Equal(t, []string{"before", "after"}, names(withoutMap))
}

func TestDiagnostics(t *testing.T) {
	diags := diagnostics([]api.Message{
		{Text: "Could not resolve \"x\"", Location: &api.Location{File: "main.ts", Line: 3, Column: 7}},
		{Text: "boom", PluginName: "svg"},
	}, dperrors.ErrorSeverityError)

	require.Len(t, diags, 2)
	assert.Equal(t, "main.ts", diags[0].File)
	assert.Equal(t, 3, diags[0].Line)
	assert.Equal(t, 8, diags[0].Column)
	assert.Equal(t, "[plugin svg] boom", diags[1].Message)
	assert.Empty(t, diags[1].File)
}

func TestNewOptions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "deno.jsonc"), `{
		// project settings
		"compilerOptions": {
			"jsx": "react-jsx",
			"jsxImportSource": "preact",
		},
		"imports": { "lib/": "./src/lib/" },
	}`)
	writeFile(t, filepath.Join(dir, "maps", "override.json"), `{"imports": {"lib/": "./vendor/"}}`)

	c, err := config.Resolve(config.Options{
		EntryPoints: []string{"main.ts"},
		ConfigPath:  "deno.jsonc",
	}, dir)
	require.NoError(t, err)

	opts, err := NewOptions(c, c.EntryPoints)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "main.ts")}, opts.EntryPoints)
	assert.Equal(t, "react-jsx", opts.JSX.Mode)
	assert.Equal(t, "preact", opts.JSX.ImportSource)
	res, ok := opts.ImportMap.Resolve("lib/a.ts")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "src", "lib", "a.ts"), res.Path)

	c.ImportMapPath = filepath.Join(dir, "maps", "override.json")
	opts, err = NewOptions(c, c.EntryPoints)
	require.NoError(t, err)
	res, ok = opts.ImportMap.Resolve("lib/a.ts")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "maps", "vendor", "a.ts"), res.Path, "explicit import map wins")
}

func TestNewOptionsMissingConfig(t *testing.T) {
	c, err := config.Resolve(config.Options{EntryPoints: []string{"main.ts"}, ConfigPath: "missing.json"}, t.TempDir())
	require.NoError(t, err)

	_, err = NewOptions(c, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dperrors.ErrIO))
}

func TestEsbuildRebuild(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "main.ts"), `import { greet } from "lib/greet.ts";
console.log(greet("docpack"));`)
	writeFile(t, filepath.Join(dir, "src", "lib", "greet.ts"), `export const greet = (n: string): string => "hello " + n;`)

	engine := NewEsbuild(nil)
	ctx, err := engine.Context(Options{
		EntryPoints: []string{filepath.Join(dir, "src", "main.ts")},
		Outdir:      filepath.Join(dir, "dist"),
		Outbase:     filepath.Join(dir, "src"),
		Bundle:      true,
		TreeShaking: true,
		SourceMap:   config.SourceMapNone,
		ImportMap:   NewImportMap(map[string]string{"lib/": "./src/lib/"}, dir),
	})
	require.NoError(t, err)
	defer ctx.Dispose()

	require.NoError(t, ctx.Rebuild(context.Background()))

	out, err := os.ReadFile(filepath.Join(dir, "dist", "main.js"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "hello ")

	ctx.Dispose()
	ctx.Dispose()
}

func TestEsbuildRebuildFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.ts"), `import "./does-not-exist";`)

	ctx, err := NewEsbuild(nil).Context(Options{
		EntryPoints: []string{filepath.Join(dir, "main.ts")},
		Outdir:      filepath.Join(dir, "dist"),
		Outbase:     dir,
		Bundle:      true,
	})
	require.NoError(t, err)
	defer ctx.Dispose()

	err = ctx.Rebuild(context.Background())
	require.Error(t, err)
	assert.True(t, dperrors.IsBuildError(err))
	assert.True(t, dperrors.IsRecoverable(err))

	var diags dperrors.Diagnostics
	require.True(t, errors.As(err, &diags))
	require.NotEmpty(t, diags)
	assert.Contains(t, diags[0].Message, "does-not-exist")
}
