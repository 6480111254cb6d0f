// Configuration System:
//
//	Settings are merged from several sources with clear precedence:
//	1. Command-line flags (--outdir, --port, etc.) - highest priority
//	2. Individual environment variables (DOCPACK_OUTDIR, DOCPACK_SERVE_PORT, etc.)
//	3. The configuration file: --config, DOCPACK_CONFIG_FILE, or .docpack.yml
//	4. Built-in defaults - lowest priority
//
// Environment Variables:
//
//	DOCPACK_CONFIG_FILE: Path to a custom configuration file
//	DOCPACK_LOG_LEVEL:   Log level (debug, info, warn, error)
//	DOCPACK_OUTDIR:      Output directory
//	And every other key following the DOCPACK_<SECTION>_<OPTION> pattern

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/conneroisu/docpack/internal/config"
	"github.com/conneroisu/docpack/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "DOCPACK"

var (
	cfgFile string
	logger  logging.Logger = logging.Discard()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docpack",
		Short: "Bundle the scripts and assets referenced by an HTML document",
		Long: `docpack reads an HTML entry document, bundles every reference marked
with data-bundle through esbuild, copies every reference marked with
data-static verbatim and writes the rewritten document to the output
directory.

Quick Start:
  docpack build                   Build ./index.html into ./dist
  docpack serve                   Serve ./dist and rebuild on change
  docpack manifest                Show what the document references
  docpack version                 Print build information`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .docpack.yml, can also use DOCPACK_CONFIG_FILE env var)")
	cmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	cmd.AddCommand(newBuildCmd(), newServeCmd(), newManifestCmd(), newVersionCmd())
	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// initConfig locates the configuration file, enables DOCPACK_ environment
// overrides and creates the logger. A missing default file is not an error;
// a missing or broken explicit file is.
func initConfig(cmd *cobra.Command, _ []string) error {
	explicit := true
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(envPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		explicit = false
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".docpack")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	if err := config.BindEnv(viper.GetViper()); err != nil {
		return err
	}

	if err := viper.BindPFlag("log_level", cmd.Flags().Lookup("log-level")); err != nil {
		return err
	}
	if err := viper.BindPFlag("log_format", cmd.Flags().Lookup("log-format")); err != nil {
		return err
	}

	readErr := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if readErr != nil && (explicit || !errors.As(readErr, &notFound)) {
		return fmt.Errorf("reading config file: %w", readErr)
	}

	level, err := logging.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		return err
	}
	logger = logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    viper.GetString("log_format"),
		Output:    cmd.ErrOrStderr(),
		Component: "cmd",
	})

	if readErr == nil {
		logger.Debug(cmd.Context(), "Using config file", "path", viper.ConfigFileUsed())
	}
	return nil
}
