// Package builder orchestrates document classification, the bundling
// engine and the watch/rebuild loop.
//
// A Builder owns one resolved configuration. Build prepares the output
// directory and runs the bundler once. Serve prepares the output directory
// the same way, starts the bundler's dev server and then rebuilds after
// every change event until the watch stream ends. Rebuild failures during
// Serve are reported and never stop the loop.
package builder

import (
	"context"
	"sync/atomic"

	"github.com/conneroisu/docpack/internal/bundler"
	"github.com/conneroisu/docpack/internal/channel"
	"github.com/conneroisu/docpack/internal/config"
	"github.com/conneroisu/docpack/internal/errors"
	"github.com/conneroisu/docpack/internal/logging"
	"github.com/conneroisu/docpack/internal/watcher"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"
)

// State is the lifecycle position of a Builder.
type State int32

const (
	StateIdle State = iota
	StateInitializing
	StateBuilding
	StateServing
	StateRebuilding
	StateDone
	StateFailed
	StateStopped
)

// String returns the string representation of the State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateBuilding:
		return "building"
	case StateServing:
		return "serving"
	case StateRebuilding:
		return "rebuilding"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// WatchFunc subscribes to every target and returns one merged stream.
type WatchFunc func(ctx context.Context, targets []config.WatchTarget) (channel.Source[watcher.ChangeEvent], error)

// Option configures a Builder.
type Option func(*Builder)

// WithEngine replaces the esbuild engine.
func WithEngine(engine bundler.Engine) Option {
	return func(b *Builder) { b.engine = engine }
}

// WithWatchFunc replaces the fsnotify based watch service.
func WithWatchFunc(fn WatchFunc) Option {
	return func(b *Builder) { b.watch = fn }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// WithFs sets the filesystem used for the output directory, the entry
// document and static resources. The bundler itself always uses the OS.
func WithFs(fs afero.Fs) Option {
	return func(b *Builder) { b.fs = fs }
}

// WithPlugins adds bundler plugins that run before the import map resolver.
func WithPlugins(plugins ...api.Plugin) Option {
	return func(b *Builder) { b.plugins = append(b.plugins, plugins...) }
}

// WithPluginsLater adds bundler plugins that run after the import map
// resolver.
func WithPluginsLater(plugins ...api.Plugin) Option {
	return func(b *Builder) { b.pluginsLater = append(b.pluginsLater, plugins...) }
}

// Builder runs builds and dev server sessions for one configuration.
type Builder struct {
	opts         *config.Complete
	engine       bundler.Engine
	watch        WatchFunc
	logger       logging.Logger
	fs           afero.Fs
	plugins      []api.Plugin
	pluginsLater []api.Plugin

	errorHandler *errors.ErrorHandler
	collector    *errors.ErrorCollector
	metrics      *BuildMetrics
	state        atomic.Int32
}

// New creates a Builder. Without options it bundles with esbuild, watches
// with fsnotify, logs nothing and works on the OS filesystem.
func New(opts *config.Complete, deps ...Option) *Builder {
	b := &Builder{
		opts:      opts,
		collector: errors.NewErrorCollector(),
		metrics:   NewBuildMetrics(),
	}
	for _, dep := range deps {
		dep(b)
	}

	if b.logger == nil {
		b.logger = logging.Discard()
	}
	b.logger = b.logger.WithComponent("builder")
	if b.engine == nil {
		b.engine = bundler.NewEsbuild(b.logger)
	}
	if b.watch == nil {
		b.watch = b.fsnotifyWatch
	}
	if b.fs == nil {
		b.fs = afero.NewOsFs()
	}
	b.errorHandler = errors.NewErrorHandler(b.logger)

	return b
}

// Options returns the configuration the builder was created with.
func (b *Builder) Options() *config.Complete {
	return b.opts
}

// State returns the current lifecycle state.
func (b *Builder) State() State {
	return State(b.state.Load())
}

func (b *Builder) setState(s State) {
	old := State(b.state.Swap(int32(s)))
	if old != s {
		b.logger.Debug(context.Background(), "Builder state changed", "from", old.String(), "to", s.String())
	}
}

// Diagnostics returns the messages of the most recent failed build. The
// slice is empty after a successful build.
func (b *Builder) Diagnostics() []errors.BuildError {
	return b.collector.GetErrors()
}

// Metrics returns a snapshot of build counters.
func (b *Builder) Metrics() MetricsSnapshot {
	return b.metrics.GetSnapshot()
}

func (b *Builder) fsnotifyWatch(ctx context.Context, targets []config.WatchTarget) (channel.Source[watcher.ChangeEvent], error) {
	stream, err := watcher.WatchAll(ctx, targets,
		watcher.WithLogger(b.logger),
		watcher.WithFilter(watcher.ExcludeDirFilter(b.opts.Outdir)),
	)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
