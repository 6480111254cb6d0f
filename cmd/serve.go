package cmd

import (
	"os/signal"
	"syscall"

	"github.com/conneroisu/docpack/internal/builder"
	"github.com/conneroisu/docpack/internal/config"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Serve the output directory and rebuild on change",
		Long: `Prepare the output directory like build, start the esbuild dev server
over it and rebuild whenever a watched file changes. Changed static
resources are copied again before each rebuild. Pages opened from the dev
server reload after every rebuild unless live reload is disabled.

Examples:
  docpack serve                           # Serve on :1415, watch ./src
  docpack serve --port 8000               # Serve on another port
  docpack serve --watch src --watch public:shallow`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	addOutputFlags(cmd)
	cmd.Flags().IntP("port", "p", 1415, "Port to serve on (0 picks a free port)")
	cmd.Flags().StringArrayP("watch", "w", nil, "Watch target as path[:shallow] (repeatable, replaces the configured list)")
	AddFlagValidation(cmd, "port", ValidatePort)

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	overrides, err := serveOverrides(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := builder.New(cfg, builder.WithLogger(logger))
	return b.Serve(ctx, overrides)
}

// serveOverrides collects --port and --watch, each only when given.
func serveOverrides(cmd *cobra.Command) (config.ServeOverrides, error) {
	var overrides config.ServeOverrides
	flags := cmd.Flags()

	if flags.Changed("port") {
		port, err := flags.GetInt("port")
		if err != nil {
			return overrides, err
		}
		overrides.Port = &port
	}

	if flags.Changed("watch") {
		values, err := flags.GetStringArray("watch")
		if err != nil {
			return overrides, err
		}
		if overrides.Watch, err = parseWatchTargets(values); err != nil {
			return overrides, err
		}
	}

	return overrides, nil
}
