package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	dperrors "github.com/conneroisu/docpack/internal/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var workDir = filepath.FromSlash("/work")

func TestResolveDefaults(t *testing.T) {
	c, err := Resolve(Options{DocumentFilePath: "index.html"}, workDir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(workDir, "dist"), c.Outdir)
	assert.Equal(t, workDir, c.Outbase)
	assert.Equal(t, filepath.Join(workDir, "index.html"), c.DocumentFilePath)
	assert.Equal(t, workDir, c.DocumentDir)
	assert.Nil(t, c.EntryPoints)
	assert.False(t, c.ClearOutdir)

	assert.Equal(t, 1415, c.Serve.Port)
	assert.True(t, c.Serve.LiveReload)
	assert.Equal(t, []WatchTarget{{Path: filepath.Join(workDir, "src"), Recursive: true}}, c.Serve.Watch)

	assert.True(t, c.Bundle)
	assert.True(t, c.TreeShaking)
	assert.True(t, c.SourcesContent)
	assert.True(t, c.MinifySyntax)
	assert.True(t, c.MinifyIdentifiers)
	assert.True(t, c.MinifyWhitespace)
	assert.Equal(t, SourceMapLinked, c.SourceMap)
	assert.True(t, c.HasDocument())
}

func TestResolveOverrides(t *testing.T) {
	port := 8080
	clearOut := true
	minify := false
	c, err := Resolve(Options{
		Outdir:           "build",
		Outbase:          "site",
		DocumentFilePath: "site/index.html",
		ClearOutdir:      &clearOut,
		Serve: ServeOptions{
			Port:  &port,
			Host:  "localhost",
			Watch: []WatchTarget{{Path: "site", Recursive: false}},
		},
		MinifyWhitespace: &minify,
		SourceMap:        "Inline",
		Loader:           []string{".svg=file", " .txt = text "},
		Define:           []string{"process.env.NODE_ENV=\"production\""},
	}, workDir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(workDir, "build"), c.Outdir)
	assert.Equal(t, filepath.Join(workDir, "site"), c.Outbase)
	assert.Equal(t, filepath.Join(workDir, "site"), c.DocumentDir)
	assert.True(t, c.ClearOutdir)
	assert.Equal(t, 8080, c.Serve.Port)
	assert.Equal(t, "localhost", c.Serve.Host)
	assert.Equal(t, []WatchTarget{{Path: filepath.Join(workDir, "site")}}, c.Serve.Watch)
	assert.False(t, c.MinifyWhitespace)
	assert.True(t, c.MinifySyntax)
	assert.Equal(t, SourceMapInline, c.SourceMap)
	assert.Equal(t, map[string]string{".svg": "file", ".txt": "text"}, c.Loader)
	assert.Equal(t, map[string]string{"process.env.NODE_ENV": `"production"`}, c.Define)
}

func TestResolveEntryPoints(t *testing.T) {
	c, err := Resolve(Options{EntryPoints: []string{"src/main.ts", "/abs/worker.ts"}}, workDir)
	require.NoError(t, err)

	assert.False(t, c.HasDocument())
	assert.Empty(t, c.DocumentFilePath)
	assert.Equal(t, []string{
		filepath.Join(workDir, "src", "main.ts"),
		filepath.FromSlash("/abs/worker.ts"),
	}, c.EntryPoints)
}

func TestResolveErrors(t *testing.T) {
	badPort := 70000
	tests := []struct {
		name string
		opts Options
	}{
		{"neither document nor entry points", Options{}},
		{"document and entry points", Options{DocumentFilePath: "index.html", EntryPoints: []string{"a.ts"}}},
		{"empty entry points", Options{EntryPoints: []string{}}},
		{"port out of range", Options{DocumentFilePath: "index.html", Serve: ServeOptions{Port: &badPort}}},
		{"host with shell characters", Options{DocumentFilePath: "index.html", Serve: ServeOptions{Host: "localhost;rm"}}},
		{"unknown source map", Options{DocumentFilePath: "index.html", SourceMap: "sideways"}},
		{"loader without dot", Options{EntryPoints: []string{"a.ts"}, Loader: []string{"svg=file"}}},
		{"unknown loader", Options{EntryPoints: []string{"a.ts"}, Loader: []string{".svg=magic"}}},
		{"malformed loader pair", Options{EntryPoints: []string{"a.ts"}, Loader: []string{".svg"}}},
		{"malformed define pair", Options{EntryPoints: []string{"a.ts"}, Define: []string{"=x"}}},
		{"outdir equals outbase", Options{DocumentFilePath: "index.html", Outdir: ".", Outbase: "."}},
		{"outdir equals document dir", Options{Outdir: "site", Outbase: ".", DocumentFilePath: "site/index.html"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Resolve(tt.opts, workDir)
			require.Error(t, err)
			assert.Nil(t, c)
			assert.True(t, errors.Is(err, dperrors.ErrConfiguration))
			assert.True(t, dperrors.IsConfigError(err))
		})
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	badPort := -1
	_, err := Resolve(Options{
		DocumentFilePath: "index.html",
		Serve:            ServeOptions{Port: &badPort},
		SourceMap:        "nope",
	}, workDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serve.port")
	assert.Contains(t, err.Error(), "source_map")
}

func TestDefaultOptionsIsFresh(t *testing.T) {
	a := DefaultOptions()
	a.Serve.Watch[0].Path = "mutated"
	*a.Bundle = false

	b := DefaultOptions()
	assert.Equal(t, "./src", b.Serve.Watch[0].Path)
	assert.True(t, *b.Bundle)
}

func TestWithServe(t *testing.T) {
	c, err := Resolve(Options{DocumentFilePath: "index.html"}, workDir)
	require.NoError(t, err)

	port := 9000
	next := c.WithServe(ServeOverrides{
		Port:  &port,
		Watch: []WatchTarget{{Path: "pages", Recursive: true}},
	})

	assert.Equal(t, 9000, next.Serve.Port)
	assert.Equal(t, []WatchTarget{{Path: filepath.Join(workDir, "pages"), Recursive: true}}, next.Serve.Watch)

	assert.Equal(t, 1415, c.Serve.Port, "original is unchanged")
	assert.Equal(t, filepath.Join(workDir, "src"), c.Serve.Watch[0].Path)

	same := c.WithServe(ServeOverrides{})
	assert.Equal(t, c.Serve, same.Serve)
	same.Serve.Watch[0].Path = "x"
	assert.Equal(t, filepath.Join(workDir, "src"), c.Serve.Watch[0].Path)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(v *viper.Viper)
		expected []WatchTarget
	}{
		{
			name: "watch as string list",
			setup: func(v *viper.Viper) {
				v.Set("serve.watch", []string{"./src", "./public"})
			},
			expected: []WatchTarget{{Path: "./src", Recursive: true}, {Path: "./public", Recursive: true}},
		},
		{
			name: "watch as comma separated string",
			setup: func(v *viper.Viper) {
				v.Set("serve.watch", "./src,./public")
			},
			expected: []WatchTarget{{Path: "./src", Recursive: true}, {Path: "./public", Recursive: true}},
		},
		{
			name: "watch as single path string",
			setup: func(v *viper.Viper) {
				v.Set("serve.watch", "./pages")
			},
			expected: []WatchTarget{{Path: "./pages", Recursive: true}},
		},
		{
			name: "watch as objects",
			setup: func(v *viper.Viper) {
				v.Set("serve.watch", []interface{}{
					map[string]interface{}{"path": "./src", "recursive": false},
					map[string]interface{}{"path": "./lib"},
				})
			},
			expected: []WatchTarget{{Path: "./src", Recursive: false}, {Path: "./lib", Recursive: true}},
		},
		{
			name:     "watch unset",
			setup:    func(v *viper.Viper) {},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setup(v)

			opts, err := Decode(v)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, opts.Serve.Watch)
		})
	}
}

func TestDecodeScalars(t *testing.T) {
	v := viper.New()
	v.Set("outdir", "./public")
	v.Set("serve.port", 3000)
	v.Set("minify_whitespace", false)
	v.Set("entry_points", []string{"a.ts", "b.ts"})
	v.Set("loader", []string{".svg=file"})

	opts, err := Decode(v)
	require.NoError(t, err)

	assert.Equal(t, "./public", opts.Outdir)
	require.NotNil(t, opts.Serve.Port)
	assert.Equal(t, 3000, *opts.Serve.Port)
	require.NotNil(t, opts.MinifyWhitespace)
	assert.False(t, *opts.MinifyWhitespace)
	assert.Nil(t, opts.MinifySyntax, "unset booleans stay nil")
	assert.Equal(t, []string{"a.ts", "b.ts"}, opts.EntryPoints)
	assert.Equal(t, []string{".svg=file"}, opts.Loader)
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "outdir")
	assert.Contains(t, keys, "entry_points")
	assert.Contains(t, keys, "serve.port")
	assert.Contains(t, keys, "serve.live_reload")
	assert.NotContains(t, keys, "serve")
}

func TestBindEnv(t *testing.T) {
	t.Setenv("DOCPACK_OUTDIR", "./from-env")
	t.Setenv("DOCPACK_SERVE_PORT", "8080")
	t.Setenv("DOCPACK_ENTRY_POINTS", "a.ts,b.ts")

	v := viper.New()
	v.SetEnvPrefix("DOCPACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	require.NoError(t, BindEnv(v))

	opts, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, "./from-env", opts.Outdir)
	require.NotNil(t, opts.Serve.Port)
	assert.Equal(t, 8080, *opts.Serve.Port)
	assert.Equal(t, []string{"a.ts", "b.ts"}, opts.EntryPoints)
	assert.Nil(t, opts.Serve.Watch)
	assert.Nil(t, opts.ClearOutdir)
}

func TestWatchFromEnv(t *testing.T) {
	t.Setenv("DOCPACK_SERVE_WATCH", "./src, ./public,")

	v := viper.New()
	v.SetEnvPrefix("DOCPACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	require.NoError(t, BindEnv(v))

	opts, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, []WatchTarget{
		{Path: "./src", Recursive: true},
		{Path: "./public", Recursive: true},
	}, opts.Serve.Watch)

	c, err := Resolve(Options{DocumentFilePath: "index.html", Serve: opts.Serve}, workDir)
	require.NoError(t, err)
	require.Len(t, c.Serve.Watch, 2)
	assert.Equal(t, filepath.Join(workDir, "public"), c.Serve.Watch[1].Path)
}

func TestDecodeInvalid(t *testing.T) {
	v := viper.New()
	v.Set("serve.port", "not-a-port")

	_, err := Decode(v)
	assert.Error(t, err)
}

func TestCompleteYAML(t *testing.T) {
	c, err := Resolve(Options{EntryPoints: []string{"main.ts"}}, workDir)
	require.NoError(t, err)

	out, err := yaml.Marshal(c)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Contains(t, decoded, "outdir")
	assert.Contains(t, decoded, "entry_points")
	assert.NotContains(t, decoded, "document")
	assert.NotContains(t, decoded, "WorkDir")
}
