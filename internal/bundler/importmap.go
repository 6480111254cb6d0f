package bundler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conneroisu/docpack/internal/errors"
	"github.com/conneroisu/docpack/internal/paths"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/tidwall/jsonc"
)

// ImportMapPluginName is the name the import map resolver registers under.
const ImportMapPluginName = "docpack-import-map"

// ImportMap rewrites bare module specifiers. Keys ending in "/" match by
// prefix, other keys match exactly. Local targets are relative to BaseDir.
type ImportMap struct {
	Imports map[string]string `json:"imports"`
	BaseDir string            `json:"-"`

	keys []string
}

// Resolution is the outcome of mapping one specifier.
type Resolution struct {
	Path     string
	External bool
}

// ParseImportMap parses a JSONC import map document.
func ParseImportMap(data []byte, baseDir string) (*ImportMap, error) {
	var m ImportMap
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return nil, fmt.Errorf("parsing import map: %w", err)
	}
	return NewImportMap(m.Imports, baseDir), nil
}

// LoadImportMap reads an import map file. Local targets resolve against the
// file's directory.
func LoadImportMap(path string) (*ImportMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(path, "reading import map", err)
	}

	m, err := ParseImportMap(data, filepath.Dir(path))
	if err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("%s: %v", path, err)).WithLocation(path, 0, 0)
	}
	return m, nil
}

// NewImportMap builds an import map from an imports table.
func NewImportMap(imports map[string]string, baseDir string) *ImportMap {
	m := &ImportMap{Imports: imports, BaseDir: baseDir}
	for k := range imports {
		m.keys = append(m.keys, k)
	}
	// Longest key first so the most specific mapping wins.
	sort.Slice(m.keys, func(i, j int) bool {
		if len(m.keys[i]) != len(m.keys[j]) {
			return len(m.keys[i]) > len(m.keys[j])
		}
		return m.keys[i] < m.keys[j]
	})
	return m
}

// Resolve maps specifier. It reports false when no key matches.
func (m *ImportMap) Resolve(specifier string) (Resolution, bool) {
	if m == nil {
		return Resolution{}, false
	}

	for _, key := range m.keys {
		var rest string
		switch {
		case specifier == key:
		case strings.HasSuffix(key, "/") && strings.HasPrefix(specifier, key):
			rest = specifier[len(key):]
		default:
			continue
		}

		target := m.Imports[key]
		if paths.IsURL(target) {
			return Resolution{Path: target + rest, External: true}, true
		}

		p := filepath.FromSlash(target + rest)
		if !filepath.IsAbs(p) {
			p = filepath.Join(m.BaseDir, p)
		}
		return Resolution{Path: filepath.Clean(p)}, true
	}

	return Resolution{}, false
}

// Plugin returns an esbuild resolver plugin backed by the map.
func (m *ImportMap) Plugin() api.Plugin {
	return api.Plugin{
		Name: ImportMapPluginName,
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `.*`}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if args.Namespace != "" && args.Namespace != "file" {
					return api.OnResolveResult{}, nil
				}
				res, ok := m.Resolve(args.Path)
				if !ok {
					return api.OnResolveResult{}, nil
				}
				return api.OnResolveResult{Path: res.Path, External: res.External}, nil
			})
		},
	}
}
