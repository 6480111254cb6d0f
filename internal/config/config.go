// Package config provides configuration management for docpack using Viper
// for flexible loading from files, environment variables, and command-line
// flags.
//
// User input is decoded into the partial Options type, where every field may
// be left unset. Resolve merges DefaultOptions into it, makes every path
// absolute and validates the result, producing the immutable Complete form
// the builder works from. Only the serve port and watch list may be replaced
// afterwards, per serve call, through Complete.WithServe.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// WatchTarget identifies one filesystem subtree to observe.
type WatchTarget struct {
	Path      string `mapstructure:"path" yaml:"path"`
	Recursive bool   `mapstructure:"recursive" yaml:"recursive"`
}

// ServeOptions is the user supplied dev server section.
type ServeOptions struct {
	Port       *int          `mapstructure:"port" yaml:"port,omitempty"`
	Host       string        `mapstructure:"host" yaml:"host,omitempty"`
	Watch      []WatchTarget `mapstructure:"watch" yaml:"watch,omitempty"`
	LiveReload *bool         `mapstructure:"live_reload" yaml:"live_reload,omitempty"`
}

// Options is the partial, user supplied configuration. Zero values mean
// "use the default".
type Options struct {
	Outdir           string   `mapstructure:"outdir" yaml:"outdir,omitempty"`
	Outbase          string   `mapstructure:"outbase" yaml:"outbase,omitempty"`
	DocumentFilePath string   `mapstructure:"document" yaml:"document,omitempty"`
	EntryPoints      []string `mapstructure:"entry_points" yaml:"entry_points,omitempty"`
	ClearOutdir      *bool    `mapstructure:"clear_outdir" yaml:"clear_outdir,omitempty"`

	Serve ServeOptions `mapstructure:"serve" yaml:"serve,omitempty"`

	Bundle            *bool    `mapstructure:"bundle" yaml:"bundle,omitempty"`
	TreeShaking       *bool    `mapstructure:"tree_shaking" yaml:"tree_shaking,omitempty"`
	SourceMap         string   `mapstructure:"source_map" yaml:"source_map,omitempty"`
	SourcesContent    *bool    `mapstructure:"sources_content" yaml:"sources_content,omitempty"`
	SourceRoot        string   `mapstructure:"source_root" yaml:"source_root,omitempty"`
	MinifySyntax      *bool    `mapstructure:"minify_syntax" yaml:"minify_syntax,omitempty"`
	MinifyIdentifiers *bool    `mapstructure:"minify_identifiers" yaml:"minify_identifiers,omitempty"`
	MinifyWhitespace  *bool    `mapstructure:"minify_whitespace" yaml:"minify_whitespace,omitempty"`
	DropLabels        []string `mapstructure:"drop_labels" yaml:"drop_labels,omitempty"`
	Target            []string `mapstructure:"target" yaml:"target,omitempty"`
	External          []string `mapstructure:"external" yaml:"external,omitempty"`

	// Loader and Define hold "key=value" pairs, e.g. ".svg=file". Keys
	// contain dots, which viper would otherwise treat as nesting.
	Loader []string `mapstructure:"loader" yaml:"loader,omitempty"`
	Define []string `mapstructure:"define" yaml:"define,omitempty"`

	// ConfigPath points at a JSONC file whose compilerOptions carry JSX
	// settings (deno.json / tsconfig.json style).
	ConfigPath string `mapstructure:"config_path" yaml:"config_path,omitempty"`
	// ImportMapPath points at a JSONC import map used for bare specifiers.
	ImportMapPath string `mapstructure:"import_map" yaml:"import_map,omitempty"`
}

// Load decodes the current viper state into Options and resolves it against
// the working directory.
func Load() (*Complete, error) {
	opts, err := Decode(viper.GetViper())
	if err != nil {
		return nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	return Resolve(*opts, cwd)
}

// Keys lists every configuration key in viper's dotted form.
func Keys() []string {
	return keysOf(reflect.TypeOf(Options{}), "")
}

func keysOf(t reflect.Type, prefix string) []string {
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("mapstructure")
		if name == "" || name == "-" {
			continue
		}
		if f.Type.Kind() == reflect.Struct {
			keys = append(keys, keysOf(f.Type, prefix+name+".")...)
			continue
		}
		keys = append(keys, prefix+name)
	}
	return keys
}

// BindEnv registers every key with v so that Unmarshal sees environment
// values for keys no file or flag has mentioned. The env prefix and key
// replacer must already be set on v.
func BindEnv(v *viper.Viper) error {
	for _, key := range Keys() {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}

// Decode unmarshals a viper instance into partial Options.
func Decode(v *viper.Viper) (*Options, error) {
	var opts Options
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		watchListHook,
		watchTargetHook,
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&opts, hook); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &opts, nil
}

var (
	watchTargetType = reflect.TypeOf(WatchTarget{})
	watchListType   = reflect.TypeOf([]WatchTarget{})
)

// watchListHook splits a comma separated watch string, as it arrives from
// DOCPACK_SERVE_WATCH, into one short form target per element.
func watchListHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	s, ok := data.(string)
	if to != watchListType || !ok {
		return data, nil
	}

	var parts []interface{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts, nil
}

// watchTargetHook accepts both "path" and {path, recursive} forms for a
// watch target. The short form and a map without "recursive" watch
// recursively.
func watchTargetHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != watchTargetType {
		return data, nil
	}

	switch v := data.(type) {
	case string:
		return map[string]interface{}{"path": v, "recursive": true}, nil
	case map[string]interface{}:
		if _, ok := v["recursive"]; ok {
			return v, nil
		}
		withDefault := make(map[string]interface{}, len(v)+1)
		for k, val := range v {
			withDefault[k] = val
		}
		withDefault["recursive"] = true
		return withDefault, nil
	case map[interface{}]interface{}:
		withDefault := map[string]interface{}{"recursive": true}
		for k, val := range v {
			withDefault[fmt.Sprint(k)] = val
		}
		return withDefault, nil
	}

	return data, nil
}
