package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/epimem/internal/engine"
	"github.com/Aman-CERP/epimem/internal/output"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a data directory",
		Long: `Initialize the episodic memory engine's data directory.

Creates the episodes/ and vectors/ subdirectories, writes a
config.toml with default settings if one does not already exist, and
creates an empty feedback.log.

Safe to run again: an existing config.toml is never overwritten.`,
		Example: `  # Initialize the default data directory (~/.epimem)
  epimem init

  # Initialize a project-local data directory
  epimem --data-dir ./.epimem init`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd)
		},
	}

	return cmd
}

func runInit(cmd *cobra.Command) error {
	out := output.New(cmd.OutOrStdout())
	dir := resolveDataDir()

	cfg, err := engine.Init(dir, nil)
	if err != nil {
		return err
	}

	out.Successf("Initialized data directory: %s", dir)
	out.Statusf("⚙️ ", "Embedding provider: %s (dimension %d)", cfg.Embedding.Provider, cfg.Embedding.Dimension)
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", `  1. Capture a session: epimem capture --project myproj --prompt "..."`)
	out.Status("", "  2. Retrieve similar episodes: epimem retrieve \"...\"")

	return nil
}
