package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/conneroisu/docpack/internal/builder"
	"github.com/conneroisu/docpack/internal/document"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// manifestReport is what `docpack manifest` prints.
type manifestReport struct {
	Document string `json:"document,omitempty" yaml:"document,omitempty"`
	Outdir   string `json:"outdir" yaml:"outdir"`

	*document.Manifest `yaml:",inline"`
}

func newManifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "manifest",
		Aliases: []string{"m"},
		Short:   "Classify the entry document and print the result",
		Long: `Classify the references of the entry document without writing anything
and print the bundler entry points and the static resources with their
output paths.

Examples:
  docpack manifest                  # YAML output
  docpack manifest --format json`,
		Args: cobra.NoArgs,
		RunE: runManifest,
	}

	addOutputFlags(cmd)
	cmd.Flags().StringP("format", "f", "yaml", "Output format (yaml, json)")
	return cmd
}

func runManifest(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != "yaml" && format != "json" {
		return fmt.Errorf("unsupported format: %s (supported: yaml, json)", format)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	m, err := builder.New(cfg, builder.WithLogger(logger)).Manifest(cmd.Context())
	if err != nil {
		return err
	}

	return writeReport(cmd.OutOrStdout(), format, manifestReport{
		Document: cfg.DocumentFilePath,
		Outdir:   cfg.Outdir,
		Manifest: m,
	})
}

func writeReport(w io.Writer, format string, v interface{}) error {
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}
