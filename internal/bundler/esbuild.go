package bundler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/docpack/internal/config"
	"github.com/conneroisu/docpack/internal/errors"
	"github.com/conneroisu/docpack/internal/logging"
	"github.com/evanw/esbuild/pkg/api"
)

// Esbuild is the Engine backed by esbuild's Go API.
type Esbuild struct {
	logger logging.Logger
}

// NewEsbuild creates the esbuild engine. A nil logger discards warnings.
func NewEsbuild(logger logging.Logger) *Esbuild {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Esbuild{logger: logger.WithComponent("bundler")}
}

// Context implements Engine.
func (e *Esbuild) Context(opts Options) (Context, error) {
	buildOpts, err := BuildOptions(opts)
	if err != nil {
		return nil, err
	}

	ctx, ctxErr := api.Context(buildOpts)
	if ctxErr != nil {
		return nil, errors.NewBuildError("creating bundler context", diagnostics(ctxErr.Errors, errors.ErrorSeverityError))
	}

	return &esbuildContext{ctx: ctx, logger: e.logger}, nil
}

type esbuildContext struct {
	ctx     api.BuildContext
	logger  logging.Logger
	dispose sync.Once
}

// Rebuild runs esbuild and converts its messages. Cancelling ctx cancels the
// in-flight build.
func (c *esbuildContext) Rebuild(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.ctx.Cancel()
		case <-done:
		}
	}()

	result := c.ctx.Rebuild()
	close(done)

	if err := ctx.Err(); err != nil {
		return err
	}

	for _, w := range diagnostics(result.Warnings, errors.ErrorSeverityWarning) {
		c.logger.Warn(ctx, nil, w.Message, "file", w.File, "line", w.Line, "column", w.Column)
	}

	if len(result.Errors) > 0 {
		diags := diagnostics(result.Errors, errors.ErrorSeverityError)
		return errors.NewBuildError(fmt.Sprintf("bundling failed with %d error(s)", len(diags)), diags)
	}

	return nil
}

func (c *esbuildContext) Serve(opts ServeOptions) (ServeResult, error) {
	if opts.Port < 0 || opts.Port > 65535 {
		return ServeResult{}, errors.NewConfigError(fmt.Sprintf("port %d out of range", opts.Port))
	}

	res, err := c.ctx.Serve(api.ServeOptions{
		Host:     opts.Host,
		Port:     uint16(opts.Port),
		Servedir: opts.Servedir,
	})
	if err != nil {
		return ServeResult{}, errors.NewBuildError("starting dev server", err)
	}

	return ServeResult{Host: res.Host, Port: int(res.Port)}, nil
}

func (c *esbuildContext) Dispose() {
	c.dispose.Do(c.ctx.Dispose)
}

// BuildOptions maps Options onto esbuild's build options. Output is
// always written to disk as browser ES modules.
func BuildOptions(opts Options) (api.BuildOptions, error) {
	sourcemap, err := sourceMap(opts.SourceMap)
	if err != nil {
		return api.BuildOptions{}, err
	}

	jsx, jsxDev, err := jsxMode(opts.JSX.Mode)
	if err != nil {
		return api.BuildOptions{}, err
	}

	loaders, err := loaderMap(opts.Loader)
	if err != nil {
		return api.BuildOptions{}, err
	}

	target, engines, err := targets(opts.Target)
	if err != nil {
		return api.BuildOptions{}, err
	}

	treeShaking := api.TreeShakingFalse
	if opts.TreeShaking {
		treeShaking = api.TreeShakingTrue
	}

	sourcesContent := api.SourcesContentExclude
	if opts.SourcesContent {
		sourcesContent = api.SourcesContentInclude
	}

	return api.BuildOptions{
		EntryPoints: opts.EntryPoints,
		Outdir:      opts.Outdir,
		Outbase:     opts.Outbase,
		Write:       true,
		Bundle:      opts.Bundle,
		Format:      api.FormatESModule,
		Platform:    api.PlatformBrowser,
		LogLevel:    api.LogLevelSilent,

		Sourcemap:      sourcemap,
		SourceRoot:     opts.SourceRoot,
		SourcesContent: sourcesContent,

		TreeShaking:       treeShaking,
		MinifySyntax:      opts.MinifySyntax,
		MinifyIdentifiers: opts.MinifyIdentifiers,
		MinifyWhitespace:  opts.MinifyWhitespace,
		DropLabels:        opts.DropLabels,

		Target:   target,
		Engines:  engines,
		External: opts.External,
		Loader:   loaders,
		Define:   opts.Define,

		JSX:             jsx,
		JSXDev:          jsxDev,
		JSXFactory:      opts.JSX.Factory,
		JSXFragment:     opts.JSX.Fragment,
		JSXImportSource: opts.JSX.ImportSource,

		Plugins: plugins(opts),
	}, nil
}

func plugins(opts Options) []api.Plugin {
	out := make([]api.Plugin, 0, len(opts.Plugins)+len(opts.PluginsLater)+1)
	out = append(out, opts.Plugins...)
	if opts.ImportMap != nil {
		out = append(out, opts.ImportMap.Plugin())
	}
	return append(out, opts.PluginsLater...)
}

func sourceMap(mode string) (api.SourceMap, error) {
	switch mode {
	case config.SourceMapNone:
		return api.SourceMapNone, nil
	case config.SourceMapInline:
		return api.SourceMapInline, nil
	case "", config.SourceMapLinked:
		return api.SourceMapLinked, nil
	case config.SourceMapExternal:
		return api.SourceMapExternal, nil
	case config.SourceMapBoth:
		return api.SourceMapInlineAndExternal, nil
	default:
		return api.SourceMapNone, errors.NewConfigError("unknown source map mode " + mode)
	}
}

func jsxMode(mode string) (api.JSX, bool, error) {
	switch mode {
	case "", "transform", "react":
		return api.JSXTransform, false, nil
	case "preserve":
		return api.JSXPreserve, false, nil
	case "automatic", "react-jsx":
		return api.JSXAutomatic, false, nil
	case "react-jsxdev":
		return api.JSXAutomatic, true, nil
	default:
		return api.JSXTransform, false, errors.NewConfigError("unsupported jsx mode " + mode)
	}
}

var loaderNames = map[string]api.Loader{
	"base64":     api.LoaderBase64,
	"binary":     api.LoaderBinary,
	"copy":       api.LoaderCopy,
	"css":        api.LoaderCSS,
	"dataurl":    api.LoaderDataURL,
	"default":    api.LoaderDefault,
	"empty":      api.LoaderEmpty,
	"file":       api.LoaderFile,
	"global-css": api.LoaderGlobalCSS,
	"js":         api.LoaderJS,
	"json":       api.LoaderJSON,
	"jsx":        api.LoaderJSX,
	"local-css":  api.LoaderLocalCSS,
	"text":       api.LoaderText,
	"ts":         api.LoaderTS,
	"tsx":        api.LoaderTSX,
}

func loaderMap(in map[string]string) (map[string]api.Loader, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]api.Loader, len(in))
	for ext, name := range in {
		l, ok := loaderNames[name]
		if !ok {
			return nil, errors.NewConfigError(fmt.Sprintf("unknown loader %q for %s", name, ext))
		}
		out[ext] = l
	}
	return out, nil
}

var languageTargets = map[string]api.Target{
	"esnext": api.ESNext,
	"es5":    api.ES5,
	"es6":    api.ES2015,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
}

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"deno":    api.EngineDeno,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"hermes":  api.EngineHermes,
	"ie":      api.EngineIE,
	"ios":     api.EngineIOS,
	"node":    api.EngineNode,
	"opera":   api.EngineOpera,
	"rhino":   api.EngineRhino,
	"safari":  api.EngineSafari,
}

// targets splits entries like "es2020" and "chrome58" into a language
// target and engine constraints.
func targets(in []string) (api.Target, []api.Engine, error) {
	target := api.DefaultTarget
	var engines []api.Engine

	for _, raw := range in {
		t := strings.ToLower(strings.TrimSpace(raw))
		if lt, ok := languageTargets[t]; ok {
			target = lt
			continue
		}

		i := strings.IndexAny(t, "0123456789")
		if i <= 0 {
			return target, nil, errors.NewConfigError("invalid target " + raw)
		}
		name, ok := engineNames[t[:i]]
		if !ok {
			return target, nil, errors.NewConfigError("unknown target engine " + raw)
		}
		engines = append(engines, api.Engine{Name: name, Version: t[i:]})
	}

	return target, engines, nil
}

// diagnostics converts esbuild messages. esbuild columns are zero based.
func diagnostics(msgs []api.Message, severity errors.ErrorSeverity) errors.Diagnostics {
	out := make(errors.Diagnostics, 0, len(msgs))
	now := time.Now()
	for _, m := range msgs {
		d := errors.BuildError{
			Message:   m.Text,
			Severity:  severity,
			Timestamp: now,
		}
		if m.PluginName != "" {
			d.Message = "[plugin " + m.PluginName + "] " + m.Text
		}
		if m.Location != nil {
			d.File = m.Location.File
			d.Line = m.Location.Line
			d.Column = m.Location.Column + 1
		}
		out = append(out, d)
	}
	return out
}
