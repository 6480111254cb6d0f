package document

import (
	"fmt"

	"github.com/conneroisu/docpack/internal/errors"
)

// StaticResource maps a source file to its location under the output
// directory.
type StaticResource struct {
	AbsolutePath string `json:"absolutePath" yaml:"absolutePath"`
	OutputPath   string `json:"outputPath" yaml:"outputPath"`
}

// Manifest is the result of classifying a document: the bundler entry
// points and the files to copy verbatim. A path never appears in both.
type Manifest struct {
	EntryPoints     []string         `json:"entryPoints" yaml:"entryPoints"`
	StaticResources []StaticResource `json:"staticResources" yaml:"staticResources"`

	entries map[string]struct{}
	statics map[string]int
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		EntryPoints:     []string{},
		StaticResources: []StaticResource{},
		entries:         make(map[string]struct{}),
		statics:         make(map[string]int),
	}
}

func (m *Manifest) init() {
	if m.entries != nil {
		return
	}
	m.entries = make(map[string]struct{}, len(m.EntryPoints))
	m.statics = make(map[string]int, len(m.StaticResources))
	for _, e := range m.EntryPoints {
		m.entries[e] = struct{}{}
	}
	for i, r := range m.StaticResources {
		m.statics[r.AbsolutePath] = i
	}
}

// AddEntryPoint registers an absolute source path as a bundler entry.
// Registering the same path twice is a no-op.
func (m *Manifest) AddEntryPoint(abs string) error {
	m.init()
	if _, ok := m.statics[abs]; ok {
		return errors.NewDuplicateResourceError(abs, "already registered as a static resource; cannot also be a bundle target")
	}
	if _, ok := m.entries[abs]; ok {
		return nil
	}
	m.entries[abs] = struct{}{}
	m.EntryPoints = append(m.EntryPoints, abs)
	return nil
}

// AddStaticResource registers a file to copy to outputPath.
func (m *Manifest) AddStaticResource(abs, outputPath string) error {
	m.init()
	if _, ok := m.entries[abs]; ok {
		return errors.NewDuplicateResourceError(abs, "already registered as a bundle target; cannot also be a static resource")
	}
	if i, ok := m.statics[abs]; ok {
		if m.StaticResources[i].OutputPath == outputPath {
			return nil
		}
		return errors.NewDuplicateResourceError(abs,
			fmt.Sprintf("mapped to both %q and %q", m.StaticResources[i].OutputPath, outputPath))
	}
	m.statics[abs] = len(m.StaticResources)
	m.StaticResources = append(m.StaticResources, StaticResource{AbsolutePath: abs, OutputPath: outputPath})
	return nil
}

// Lookup finds the static resource registered for abs.
func (m *Manifest) Lookup(abs string) (StaticResource, bool) {
	m.init()
	i, ok := m.statics[abs]
	if !ok {
		return StaticResource{}, false
	}
	return m.StaticResources[i], true
}

// IsEntryPoint reports whether abs is a bundler entry.
func (m *Manifest) IsEntryPoint(abs string) bool {
	m.init()
	_, ok := m.entries[abs]
	return ok
}
