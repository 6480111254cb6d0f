package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/conneroisu/docpack/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display version information for docpack including:

- Semantic version number
- Git commit hash
- Build timestamp
- Bundled esbuild version
- Go version and target platform

Examples:
  docpack version               # Show version info
  docpack version --short       # Version number only
  docpack version --format json # Output as JSON`,
		Args: cobra.NoArgs,
		RunE: runVersionCommand,
	}

	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	cmd.Flags().Bool("short", false, "Show short version only")
	return cmd
}

func runVersionCommand(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	short, _ := cmd.Flags().GetBool("short")

	info := version.Get()
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	case "text":
		if short {
			_, err := fmt.Fprintln(out, info.Short())
			return err
		}
		_, err := fmt.Fprint(out, info.String())
		return err
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", format)
	}
}
