package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/conneroisu/docpack/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// defaultDocument is classified when neither a document nor entry points
// are configured anywhere.
const defaultDocument = "./index.html"

// outputFlagKeys maps the flags shared by build, serve and manifest to their
// configuration keys.
var outputFlagKeys = map[string]string{
	"outdir":         "outdir",
	"outbase":        "outbase",
	"document":       "document",
	"entry":          "entry_points",
	"clean":          "clear_outdir",
	"import-map":     "import_map",
	"project-config": "config_path",
}

// addOutputFlags adds the flags that select the inputs and output directory.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("outdir", "o", "", "Output directory (default ./dist)")
	cmd.Flags().String("outbase", "", "Directory output paths are computed relative to (default .)")
	cmd.Flags().StringP("document", "d", "", "HTML entry document (default "+defaultDocument+" unless entry points are configured)")
	cmd.Flags().StringArrayP("entry", "e", nil, "Bundle this entry point instead of classifying a document (repeatable)")
	cmd.Flags().Bool("clean", false, "Remove the output directory before building")
	cmd.Flags().String("import-map", "", "JSON or JSONC import map for bare specifiers")
	cmd.Flags().String("project-config", "", "deno.json or tsconfig.json carrying JSX settings and an import map")

	cmd.MarkFlagsMutuallyExclusive("document", "entry")
}

// applyChangedFlags copies every flag the user actually set into viper.
// Flags left at their default never shadow the config file or environment.
func applyChangedFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		flag := flags.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}

		var (
			value interface{}
			err   error
		)
		switch flag.Value.Type() {
		case "bool":
			value, err = flags.GetBool(name)
		case "int":
			value, err = flags.GetInt(name)
		case "stringArray":
			value, err = flags.GetStringArray(name)
		default:
			value = flag.Value.String()
		}
		if err != nil {
			return fmt.Errorf("reading --%s: %w", name, err)
		}
		viper.Set(key, value)
	}
	return nil
}

// parseWatchTargets parses "path[:shallow]" values. A ":recursive" suffix is
// accepted for symmetry; a bare path is recursive.
func parseWatchTargets(values []string) ([]config.WatchTarget, error) {
	targets := make([]config.WatchTarget, 0, len(values))
	for _, v := range values {
		target := config.WatchTarget{Path: v, Recursive: true}
		if p, ok := strings.CutSuffix(v, ":shallow"); ok {
			target = config.WatchTarget{Path: p, Recursive: false}
		} else if p, ok := strings.CutSuffix(v, ":recursive"); ok {
			target.Path = p
		}
		if target.Path == "" {
			return nil, fmt.Errorf("invalid watch target %q: path is empty", v)
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// ValidatePort checks a port flag value. Zero asks the OS for a free port.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", port)
	}

	return nil
}

// AddFlagValidation runs validator before the flag accepts a value.
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{Value: flag.Value, validator: validator}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if err := v.validator(val); err != nil {
		return err
	}
	return v.Value.Set(val)
}
