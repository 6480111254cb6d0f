package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/conneroisu/docpack/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testDocument = `<!doctype html>
<html><head>
<script type="module" src="./main.ts" data-bundle></script>
<link rel="icon" href="./favicon.ico" data-static>
</head><body></body></html>`

// execute runs a fresh command tree inside dir.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Chdir(dir)

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

// newSite creates a project directory with an entry document and returns
// its resolved path.
func newSite(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "index.html"), testDocument)
	writeFile(t, filepath.Join(dir, "main.ts"), `const greeting: string = "hi"; console.log(greeting);`)
	writeFile(t, filepath.Join(dir, "favicon.ico"), "icon")
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func decodeReport(t *testing.T, out string) manifestReport {
	t.Helper()
	var report manifestReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.NotNil(t, report.Manifest)
	return report
}

func TestVersionCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "docpack ")
	assert.Contains(t, out, "Go: ")

	out, err = execute(t, dir, "version", "--format", "json")
	require.NoError(t, err)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "go_version")
	assert.Contains(t, info, "bundler_version")

	out, err = execute(t, dir, "version", "--short")
	require.NoError(t, err)
	assert.NotContains(t, out, "\nGo:")

	_, err = execute(t, dir, "version", "--format", "xml")
	assert.Error(t, err)
}

func TestManifestCommand(t *testing.T) {
	dir := newSite(t)

	out, err := execute(t, dir, "manifest", "--format", "json")
	require.NoError(t, err)

	report := decodeReport(t, out)
	assert.Equal(t, filepath.Join(dir, "index.html"), report.Document)
	assert.Equal(t, filepath.Join(dir, "dist"), report.Outdir)
	assert.Equal(t, []string{filepath.Join(dir, "main.ts")}, report.EntryPoints)
	require.Len(t, report.StaticResources, 1)
	assert.Equal(t, "favicon.ico", report.StaticResources[0].OutputPath)

	assert.NoDirExists(t, filepath.Join(dir, "dist"), "manifest never writes")
}

func TestManifestYAML(t *testing.T) {
	dir := newSite(t)

	out, err := execute(t, dir, "manifest")
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &parsed))
	assert.Contains(t, parsed, "entryPoints")
	assert.Contains(t, parsed, "staticResources")
	assert.Contains(t, parsed, "outdir")
}

func TestManifestConfigFile(t *testing.T) {
	dir := newSite(t)
	require.NoError(t, os.Rename(filepath.Join(dir, "index.html"), filepath.Join(dir, "site.html")))
	writeFile(t, filepath.Join(dir, ".docpack.yml"), "document: ./site.html\noutdir: ./public\n")

	out, err := execute(t, dir, "manifest", "--format", "json")
	require.NoError(t, err)

	report := decodeReport(t, out)
	assert.Equal(t, filepath.Join(dir, "site.html"), report.Document)
	assert.Equal(t, filepath.Join(dir, "public"), report.Outdir)
}

func TestEntryFlagOverridesConfigDocument(t *testing.T) {
	dir := newSite(t)
	writeFile(t, filepath.Join(dir, ".docpack.yml"), "document: ./index.html\n")

	out, err := execute(t, dir, "manifest", "--format", "json", "--entry", "src/app.ts", "--outdir", "out")
	require.NoError(t, err)

	report := decodeReport(t, out)
	assert.Empty(t, report.Document)
	assert.Equal(t, []string{filepath.Join(dir, "src", "app.ts")}, report.EntryPoints)
	assert.Equal(t, filepath.Join(dir, "out"), report.Outdir)
}

func TestConfiguredEntryPointsSkipDefaultDocument(t *testing.T) {
	dir := newSite(t)
	writeFile(t, filepath.Join(dir, ".docpack.yml"), "entry_points:\n  - ./main.ts\n")

	out, err := execute(t, dir, "manifest", "--format", "json")
	require.NoError(t, err)
	report := decodeReport(t, out)
	assert.Empty(t, report.Document)
	assert.Equal(t, []string{filepath.Join(dir, "main.ts")}, report.EntryPoints)

	require.NoError(t, os.Remove(filepath.Join(dir, ".docpack.yml")))
	t.Setenv("DOCPACK_ENTRY_POINTS", "./main.ts")

	out, err = execute(t, dir, "manifest", "--format", "json")
	require.NoError(t, err)
	report = decodeReport(t, out)
	assert.Empty(t, report.Document)
	assert.Equal(t, []string{filepath.Join(dir, "main.ts")}, report.EntryPoints)
}

func TestEnvironmentOverrides(t *testing.T) {
	dir := newSite(t)
	t.Setenv("DOCPACK_OUTDIR", "./from-env")

	out, err := execute(t, dir, "manifest", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "from-env"), decodeReport(t, out).Outdir)

	out, err = execute(t, dir, "manifest", "--format", "json", "--outdir", "./from-flag")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "from-flag"), decodeReport(t, out).Outdir)
}

func TestExplicitConfigFileMustExist(t *testing.T) {
	dir := newSite(t)

	_, err := execute(t, dir, "manifest", "--config", "missing.yml")
	assert.Error(t, err)
}

func TestDocumentAndEntryAreExclusive(t *testing.T) {
	dir := newSite(t)

	_, err := execute(t, dir, "manifest", "--document", "index.html", "--entry", "main.ts")
	assert.Error(t, err)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, t.TempDir(), "version", "--log-level", "loud")
	assert.Error(t, err)
}

func TestBuildCommand(t *testing.T) {
	dir := newSite(t)

	out, err := execute(t, dir, "build", "--outdir", "public")
	require.NoError(t, err)
	assert.Contains(t, out, "Built ")

	assert.FileExists(t, filepath.Join(dir, "public", "index.html"))
	assert.FileExists(t, filepath.Join(dir, "public", "main.js"))
	assert.FileExists(t, filepath.Join(dir, "public", "favicon.ico"))

	doc, err := os.ReadFile(filepath.Join(dir, "public", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(doc), `src="main.js"`)
	assert.NotContains(t, string(doc), "EventSource")
}

func TestBuildCommandClassificationError(t *testing.T) {
	dir := newSite(t)
	writeFile(t, filepath.Join(dir, "index.html"), `<img src="x.png" data-bundle data-static>`)

	_, err := execute(t, dir, "build")
	assert.Error(t, err)
}

func TestParseWatchTargets(t *testing.T) {
	targets, err := parseWatchTargets([]string{"src", "public:shallow", "lib:recursive"})
	require.NoError(t, err)
	assert.Equal(t, []config.WatchTarget{
		{Path: "src", Recursive: true},
		{Path: "public", Recursive: false},
		{Path: "lib", Recursive: true},
	}, targets)

	_, err = parseWatchTargets([]string{":shallow"})
	assert.Error(t, err)
}

func TestServeOverrides(t *testing.T) {
	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--port", "9000", "--watch", "src", "--watch", "assets:shallow"}))

	overrides, err := serveOverrides(cmd)
	require.NoError(t, err)
	require.NotNil(t, overrides.Port)
	assert.Equal(t, 9000, *overrides.Port)
	assert.Equal(t, []config.WatchTarget{{Path: "src", Recursive: true}, {Path: "assets"}}, overrides.Watch)

	cmd = newServeCmd()
	require.NoError(t, cmd.ParseFlags(nil))
	overrides, err = serveOverrides(cmd)
	require.NoError(t, err)
	assert.Nil(t, overrides.Port, "the default port does not override the configuration")
	assert.Nil(t, overrides.Watch)
}

func TestServePortValidation(t *testing.T) {
	cmd := newServeCmd()
	assert.Error(t, cmd.ParseFlags([]string{"--port", "70000"}))
	assert.Error(t, cmd.ParseFlags([]string{"--port", "http"}))
}

func TestApplyChangedFlagsSkipsDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := newBuildCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--clean", "--entry", "a.ts", "--entry", "b.ts"}))
	require.NoError(t, applyChangedFlags(cmd.Flags(), outputFlagKeys))

	assert.True(t, viper.GetBool("clear_outdir"))
	assert.Equal(t, []string{"a.ts", "b.ts"}, viper.GetStringSlice("entry_points"))
	assert.False(t, viper.IsSet("outdir"))
	assert.False(t, viper.IsSet("document"))
}
