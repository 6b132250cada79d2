package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/epimem/internal/output"
)

func newStatusCmd() *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a health snapshot of the data directory",
		Long: `Status reports episode, vector-index, and lexical-index counts
and whether the configured embedding provider is reachable, without
mutating anything.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, project)
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Restrict the episode count to this project")

	return cmd
}

func runStatus(cmd *cobra.Command, project string) error {
	out := output.New(cmd.OutOrStdout())

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	var projectPtr *string
	if project != "" {
		projectPtr = &project
	}

	view, err := e.Status(cmd.Context(), projectPtr)
	if err != nil {
		return err
	}

	out.Statusf("📁", "Data directory: %s", view.DataDir)
	out.Statusf("", "Episodes: %d", view.EpisodeCount)
	out.Statusf("", "Vector index: %d entries", view.VectorCount)
	out.Statusf("", "Lexical index: %d entries", view.LexicalCount)

	if view.EmbeddingOK {
		out.Successf("Embedding provider reachable (%s)", view.EmbeddingModel)
	} else {
		out.Warningf("Embedding provider unreachable (%s) — retrieval will fall back to lexical matching", view.EmbeddingModel)
	}

	return nil
}
