package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Technology-Company/djaploy/pkg/config"
	"github.com/Technology-Company/djaploy/pkg/telemetry"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	configureGlobalLogging(os.Stderr)
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

// configureGlobalLogging points the global zerolog logger at the level and
// format selected by the persistent flags. The LOG_LEVEL environment
// variable sets the default level when --verbose is not given.
func configureGlobalLogging(out io.Writer) {
	level := zerolog.InfoLevel
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		level = lvl
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if jsonOutput {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "djaploy",
		Short: "djaploy - Django deployment automation",
		Long: `djaploy provisions servers and deploys Django applications over SSH.

It reads a project config and a per-environment host inventory, generates
pyinfra operations from its module pipeline (core, nginx, systemd,
tailscale, rclone), and hands the result to the pyinfra CLI for execution.

Features:
  - YAML or Starlark host inventories with schema validation
  - Git-based deployment artifacts (working tree, HEAD, or tagged release)
  - Pluggable provisioning modules with configure/deploy lifecycles
  - Certificate management (self-signed and Tailscale)
  - Deployment history tracking per environment`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		PersistentPreRun: func(*cobra.Command, []string) {
			// Flags are parsed by now; reapply them to the global logger.
			configureGlobalLogging(os.Stderr)
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "project config file path (default djaploy.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newConfigureServerCommand())
	rootCmd.AddCommand(newDeployCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newSyncCertsCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}

// loadProject reads and validates the project config from --config or the
// default location.
func loadProject() (*config.ProjectConfig, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigFile
	}
	return config.LoadProjectConfig(path)
}

// loadHosts loads the environment's inventory from the given directory, or
// the project's default inventory directory when empty.
func loadHosts(project *config.ProjectConfig, inventoryDir, env string) ([]*config.HostConfig, error) {
	dir := inventoryDir
	if dir == "" {
		dir = project.InventoryDir()
	}
	return config.LoadInventory(dir, env)
}

// newLogger builds the logger used by library packages, honoring the global
// output flags.
func newLogger() *telemetry.Logger {
	level := "info"
	if verbose {
		level = "debug"
	}
	format := "console"
	if jsonOutput {
		format = "json"
	}

	logger, err := telemetry.NewLogger(telemetry.LoggingConfig{
		Level:  level,
		Format: format,
	})
	if err != nil {
		// Only file outputs can fail to open; stderr never does.
		logger, _ = telemetry.NewLogger(telemetry.LoggingConfig{Level: level})
	}
	return logger
}
