package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/epimem/internal/engine"
	"github.com/Aman-CERP/epimem/internal/output"
)

func newPropagateCmd() *cobra.Command {
	var (
		temporal bool
		project  string
	)

	cmd := &cobra.Command{
		Use:   "propagate",
		Short: "Spread utility scores across related episodes",
		Long: `Propagate runs a batch time-decay maintenance pass (spec §4.4.2),
then one Bellman-style pass that spreads utility from high-scoring seed
episodes to their neighbors (spec §4.4.3), then optionally an explicit
temporal-credit sweep (spec §4.4.4) over every terminal episode.`,
		Example: `  epimem propagate
  epimem propagate --temporal --project myapp`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPropagate(cmd, temporal, project)
		},
	}

	cmd.Flags().BoolVar(&temporal, "temporal", false, "Also run an explicit temporal-credit sweep")
	cmd.Flags().StringVar(&project, "project", "", "Restrict the decay pass and the temporal sweep to this project")

	return cmd
}

func runPropagate(cmd *cobra.Command, temporal bool, project string) error {
	out := output.New(cmd.OutOrStdout())

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	opts := engine.PropagateOptions{Temporal: temporal}
	if project != "" {
		opts.Project = &project
	}

	result, err := e.Propagate(cmd.Context(), opts)
	if err != nil {
		return err
	}

	out.Successf("Decayed %d episodes, updated utility scores for %d episodes", result.DecayedCount, result.UpdatedCount)
	return nil
}
