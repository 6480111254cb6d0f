package cmd

import (
	"fmt"
	"time"

	"github.com/conneroisu/docpack/internal/builder"
	"github.com/conneroisu/docpack/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "build",
		Aliases: []string{"b"},
		Short:   "Bundle the entry document into the output directory",
		Long: `Classify the references of the entry document, copy static resources,
bundle every data-bundle reference and write the rewritten document to the
output directory.

Examples:
  docpack build                        # Build ./index.html into ./dist
  docpack build --document site.html   # Use another entry document
  docpack build --entry src/app.ts     # Bundle entry points directly
  docpack build --outdir public --clean`,
		Args: cobra.NoArgs,
		RunE: runBuild,
	}

	addOutputFlags(cmd)
	return cmd
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	start := time.Now()
	b := builder.New(cfg, builder.WithLogger(logger))
	if err := b.Build(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Built %s in %s\n", cfg.Outdir, time.Since(start).Round(time.Millisecond))
	return nil
}

// loadConfig applies the output flags on top of file and environment
// settings and resolves the result against the working directory.
func loadConfig(cmd *cobra.Command) (*config.Complete, error) {
	flags := cmd.Flags()
	if err := applyChangedFlags(flags, outputFlagKeys); err != nil {
		return nil, err
	}

	// A flag choosing one input mode overrides a file choosing the other.
	if flags.Changed("entry") && !flags.Changed("document") {
		viper.Set("document", "")
	}
	if flags.Changed("document") && !flags.Changed("entry") {
		viper.Set("entry_points", []string(nil))
	}

	if viper.GetString("document") == "" && !viper.IsSet("entry_points") {
		viper.Set("document", defaultDocument)
	}

	return config.Load()
}
