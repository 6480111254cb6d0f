// Package internal contains the core implementation packages for docpack.
//
// # Package Organization
//
//   - builder: output directory preparation, build and the serve/rebuild loop
//   - bundler: esbuild bridge, import map and project config (JSONC) reading
//   - channel: unbounded multi-producer event channel and stream merging
//   - config: viper decoding, defaults, path resolution and validation
//   - document: HTML parsing, selector queries and reference classification
//   - errors: typed errors, bundler diagnostics and the error handler
//   - logging: structured logging over log/slog
//   - paths: relative path, escaping and URL helpers
//   - version: build metadata
//   - watcher: fsnotify watches with debouncing, one stream per target
//
// # Data Flow
//
// The document package turns the entry HTML into a Manifest of bundler entry
// points and static resources. The builder writes the rewritten document,
// copies the static resources and hands the entry points to the bundler.
// While serving, watcher streams are merged through a channel and every
// change event copies affected static resources before one rebuild.
package internal
