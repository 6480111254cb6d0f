package builder

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/conneroisu/docpack/internal/bundler"
	"github.com/conneroisu/docpack/internal/config"
	"github.com/conneroisu/docpack/internal/document"
	"github.com/conneroisu/docpack/internal/errors"
	"github.com/spf13/afero"
)

// LiveReloadScript reloads the page whenever the dev server reports a
// finished rebuild.
const LiveReloadScript = `<script>new EventSource("/esbuild").addEventListener("change", () => location.reload());</script>`

// Prepared is the outcome of the setup shared by Build and Serve.
type Prepared struct {
	Manifest *document.Manifest
	// DocumentPath is the rewritten document inside the output directory.
	// It is empty when entry points were configured explicitly.
	DocumentPath string
	Bundler      bundler.Options
}

// Prepare classifies the entry document, clears and creates the output
// directory, writes the rewritten document, copies static resources and
// derives the bundler options.
func (b *Builder) Prepare(ctx context.Context) (*Prepared, error) {
	return b.prepare(ctx, b.opts, false)
}

// Manifest classifies the entry document without writing anything.
func (b *Builder) Manifest(ctx context.Context) (*document.Manifest, error) {
	manifest, _, err := b.classify(ctx, b.opts)
	return manifest, err
}

func (b *Builder) prepare(ctx context.Context, c *config.Complete, serving bool) (*Prepared, error) {
	// The output directory is only touched once classification succeeded.
	manifest, doc, err := b.classify(ctx, c)
	if err != nil {
		return nil, err
	}

	if c.ClearOutdir {
		if err := b.fs.RemoveAll(c.Outdir); err != nil {
			return nil, errors.NewIOError(c.Outdir, "clearing output directory", err)
		}
	}
	if err := b.fs.MkdirAll(c.Outdir, 0o755); err != nil {
		return nil, errors.NewIOError(c.Outdir, "creating output directory", err)
	}

	prepared := &Prepared{Manifest: manifest}

	if doc != nil {
		if serving && c.Serve.LiveReload {
			if err := doc.AppendChild("body", LiveReloadScript); err != nil {
				return nil, errors.NewInternalError("injecting live reload script", err)
			}
		}

		prepared.DocumentPath = filepath.Join(c.Outdir, filepath.Base(c.DocumentFilePath))
		if err := b.writeDocument(doc, prepared.DocumentPath); err != nil {
			return nil, err
		}

		for _, r := range manifest.StaticResources {
			if err := b.copyStatic(c.Outdir, r); err != nil {
				return nil, err
			}
		}
	}

	opts, err := bundler.NewOptions(c, manifest.EntryPoints)
	if err != nil {
		return nil, err
	}
	opts.Plugins = b.plugins
	opts.PluginsLater = b.pluginsLater
	prepared.Bundler = opts

	b.logger.Info(ctx, "Prepared output directory",
		"outdir", c.Outdir,
		"entry_points", len(manifest.EntryPoints),
		"static_resources", len(manifest.StaticResources))

	return prepared, nil
}

// classify returns the manifest and, in document mode, the rewritten
// document.
func (b *Builder) classify(ctx context.Context, c *config.Complete) (*document.Manifest, *document.HTMLDocument, error) {
	if !c.HasDocument() {
		manifest := document.NewManifest()
		for _, e := range c.EntryPoints {
			if err := manifest.AddEntryPoint(e); err != nil {
				return nil, nil, err
			}
		}
		return manifest, nil, nil
	}

	data, err := afero.ReadFile(b.fs, c.DocumentFilePath)
	if err != nil {
		return nil, nil, errors.NewIOError(c.DocumentFilePath, "reading entry document", err)
	}

	doc, err := document.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, errors.NewIOError(c.DocumentFilePath, "parsing entry document", err)
	}

	manifest, err := document.Classify(doc, document.ClassifyOptions{
		Outbase:     c.Outbase,
		DocumentDir: c.DocumentDir,
	})
	if err != nil {
		b.errorHandler.Handle(ctx, err)
		return nil, nil, err
	}

	return manifest, doc, nil
}

func (b *Builder) writeDocument(doc document.Document, path string) error {
	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		return errors.NewInternalError("rendering entry document", err)
	}
	if err := afero.WriteFile(b.fs, path, buf.Bytes(), 0o644); err != nil {
		return errors.NewIOError(path, "writing entry document", err)
	}
	return nil
}

// copyStatic copies one static resource to its mapped output location,
// overwriting any previous copy.
func (b *Builder) copyStatic(outdir string, r document.StaticResource) error {
	dst := filepath.Join(outdir, filepath.FromSlash(r.OutputPath))
	if err := b.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.NewIOError(dst, "creating static resource directory", err)
	}

	src, err := b.fs.Open(r.AbsolutePath)
	if err != nil {
		return errors.NewIOError(r.AbsolutePath, "opening static resource", err)
	}
	defer src.Close()

	out, err := b.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.NewIOError(dst, "creating static resource copy", err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return errors.NewIOError(dst, "copying static resource", err)
	}
	if err := out.Close(); err != nil {
		return errors.NewIOError(dst, "closing static resource copy", err)
	}
	return nil
}
