// Package cmd provides the CLI commands for epimem.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/epimem/internal/config"
	"github.com/Aman-CERP/epimem/internal/engine"
	"github.com/Aman-CERP/epimem/internal/logging"
	"github.com/Aman-CERP/epimem/pkg/version"
)

// dataDir holds the --data-dir persistent flag, resolved in PersistentPreRunE.
var dataDir string

var loggingCleanup func()

// NewRootCmd creates the root command for the epimem CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epimem",
		Short: "Persistent episodic memory engine for coding assistants",
		Long: `epimem is a local, on-disk episodic memory engine.

It captures the intent, context, and outcome of coding-assistant
sessions as episodes, indexes them for semantic and lexical retrieval,
and learns which episodes are actually useful over time through
explicit feedback and propagated utility scores.

Run 'epimem init' once per data directory to get started.`,
		Version:           version.Version,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if loggingCleanup != nil {
				loggingCleanup()
				loggingCleanup = nil
			}
			return nil
		},
	}

	cmd.SetVersionTemplate("epimem version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (default: $EPIMEM_DATA_DIR or ~/.epimem)")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newCaptureCmd())
	cmd.AddCommand(newRetrieveCmd())
	cmd.AddCommand(newFeedbackCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newPropagateCmd())
	cmd.AddCommand(newPruneCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// setupLogging wires file-based structured logging for every subcommand
// before it runs; output meant for the user still goes through
// internal/output on stdout.
func setupLogging(*cobra.Command, []string) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil // logging failure is never fatal for the CLI
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// resolveDataDir applies the --data-dir flag, then EPIMEM_DATA_DIR, then
// config.DefaultDataDir().
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if env := os.Getenv("EPIMEM_DATA_DIR"); env != "" {
		return env
	}
	return config.DefaultDataDir()
}

// openEngine opens the engine over the resolved data directory. Every
// command but init calls this first.
func openEngine() (*engine.Engine, error) {
	return engine.Open(resolveDataDir(), slog.Default())
}
