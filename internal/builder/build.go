package builder

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/conneroisu/docpack/internal/bundler"
	"github.com/conneroisu/docpack/internal/config"
	"github.com/conneroisu/docpack/internal/document"
	"github.com/conneroisu/docpack/internal/errors"
	"github.com/conneroisu/docpack/internal/logging"
	"github.com/conneroisu/docpack/internal/watcher"
)

// Build prepares the output directory and bundles once.
func (b *Builder) Build(ctx context.Context) (err error) {
	b.setState(StateBuilding)
	defer func() {
		if err != nil {
			b.setState(StateFailed)
		} else {
			b.setState(StateDone)
		}
	}()

	prepared, err := b.prepare(ctx, b.opts, false)
	if err != nil {
		return err
	}

	bctx, err := b.engine.Context(prepared.Bundler)
	if err != nil {
		return err
	}
	defer bctx.Dispose()

	return b.rebuild(ctx, bctx, "build")
}

// Serve prepares the output directory, starts the dev server and rebuilds
// after every change event. It returns nil once the watch stream ends,
// which happens when ctx is cancelled. Setup failures are returned; rebuild
// failures are logged and the loop continues.
func (b *Builder) Serve(ctx context.Context, overrides config.ServeOverrides) error {
	c := b.opts.WithServe(overrides)
	b.setState(StateInitializing)

	prepared, err := b.prepare(ctx, c, true)
	if err != nil {
		b.setState(StateFailed)
		return err
	}

	bctx, err := b.engine.Context(prepared.Bundler)
	if err != nil {
		b.setState(StateFailed)
		return err
	}
	defer bctx.Dispose()

	addr, err := bctx.Serve(bundler.ServeOptions{
		Host:     c.Serve.Host,
		Port:     c.Serve.Port,
		Servedir: c.Outdir,
	})
	if err != nil {
		b.setState(StateFailed)
		return err
	}
	b.logger.Info(ctx, "Dev server listening", "url", serverURL(addr), "servedir", c.Outdir)

	events, err := b.watch(ctx, c.Serve.Watch)
	if err != nil {
		b.setState(StateFailed)
		return err
	}

	// A broken initial build is reported like any later rebuild failure.
	b.setState(StateBuilding)
	_ = b.rebuild(ctx, bctx, "initial build")
	b.setState(StateServing)

	for {
		event, ok := events.Next(ctx)
		if !ok {
			break
		}

		b.handleChange(ctx, c, prepared.Manifest, event)

		b.setState(StateRebuilding)
		_ = b.rebuild(ctx, bctx, "rebuild")
		b.setState(StateServing)
	}

	b.setState(StateStopped)
	b.logger.Info(context.Background(), "Watch stream ended, stopping dev server")
	return nil
}

// rebuild runs one bundler pass and records its outcome.
func (b *Builder) rebuild(ctx context.Context, bctx bundler.Context, operation string) error {
	perf := logging.StartOperation(b.logger, operation)
	start := time.Now()

	err := bctx.Rebuild(ctx)
	b.metrics.RecordBuild(time.Since(start), err)

	if err != nil {
		if ctx.Err() != nil && stderrors.Is(err, ctx.Err()) {
			return err
		}
		var diags errors.Diagnostics
		if stderrors.As(err, &diags) {
			b.collector.Replace(diags)
		}
		perf.EndWithError(ctx, err)
		b.errorHandler.Handle(ctx, err)
		return err
	}

	b.collector.Clear()
	perf.End(ctx)
	return nil
}

// handleChange copies every changed static resource. Each path in the event
// is checked on its own; failed copies are reported and skipped.
func (b *Builder) handleChange(ctx context.Context, c *config.Complete, manifest *document.Manifest, event watcher.ChangeEvent) {
	for _, p := range event.Paths {
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(c.WorkDir, abs)
		}
		abs = filepath.Clean(abs)

		r, ok := manifest.Lookup(abs)
		if !ok {
			continue
		}

		if err := b.copyStatic(c.Outdir, r); err != nil {
			b.logger.Warn(ctx, err, "Failed to copy static resource",
				"path", abs, "kind", event.Kind.String())
			continue
		}
		b.logger.Debug(ctx, "Copied static resource", "path", abs, "output", r.OutputPath)
	}
}

func serverURL(addr bundler.ServeResult) string {
	host := addr.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s/", net.JoinHostPort(host, strconv.Itoa(addr.Port)))
}
