// Package cmd provides the command-line interface for docpack.
//
// This package implements the CLI commands using the Cobra framework. Every
// command resolves its configuration through internal/config and drives an
// internal/builder.Builder.
//
// # Available Commands
//
//   - build: classify the entry document, copy static resources and bundle once
//   - serve: build, start the esbuild dev server and rebuild on change
//   - manifest: classify the entry document and print the result
//   - version: print build information
//
// # Command Examples
//
//	// Build ./index.html into ./dist
//	docpack build
//
//	// Bundle explicit entry points into public/, clearing it first
//	docpack build --entry src/app.ts --entry src/worker.ts --outdir public --clean
//
//	// Serve on port 8000, watching src recursively and public shallowly
//	docpack serve --port 8000 --watch src --watch public:shallow
//
//	// Inspect what the document references
//	docpack manifest --format json
package cmd
