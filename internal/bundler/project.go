package bundler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/docpack/internal/errors"
	"github.com/tidwall/jsonc"
)

// ProjectConfig is the subset of a deno.json or tsconfig.json style file
// the bundler reads.
type ProjectConfig struct {
	CompilerOptions struct {
		JSX                string `json:"jsx"`
		JSXFactory         string `json:"jsxFactory"`
		JSXFragmentFactory string `json:"jsxFragmentFactory"`
		JSXImportSource    string `json:"jsxImportSource"`
	} `json:"compilerOptions"`
	Imports       map[string]string `json:"imports"`
	ImportMapPath string            `json:"importMap"`

	importMap *ImportMap
}

// LoadProjectConfig reads a JSONC project config. An "importMap" reference
// is loaded relative to the config file; inline "imports" take precedence.
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(path, "reading project config", err)
	}

	var pc ProjectConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &pc); err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("parsing project config %s: %v", path, err)).
			WithLocation(path, 0, 0)
	}

	dir := filepath.Dir(path)
	switch {
	case len(pc.Imports) > 0:
		pc.importMap = NewImportMap(pc.Imports, dir)
	case pc.ImportMapPath != "":
		ref := filepath.FromSlash(pc.ImportMapPath)
		if !filepath.IsAbs(ref) {
			ref = filepath.Join(dir, ref)
		}
		if pc.importMap, err = LoadImportMap(ref); err != nil {
			return nil, err
		}
	}

	return &pc, nil
}

// JSX returns the JSX settings found under compilerOptions.
func (pc *ProjectConfig) JSX() JSXOptions {
	return JSXOptions{
		Mode:         pc.CompilerOptions.JSX,
		Factory:      pc.CompilerOptions.JSXFactory,
		Fragment:     pc.CompilerOptions.JSXFragmentFactory,
		ImportSource: pc.CompilerOptions.JSXImportSource,
	}
}

// ImportMap returns the inline or referenced import map, if any.
func (pc *ProjectConfig) ImportMap() *ImportMap {
	return pc.importMap
}
