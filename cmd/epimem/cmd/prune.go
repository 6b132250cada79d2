package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/epimem/internal/engerr"
	"github.com/Aman-CERP/epimem/internal/engine"
	"github.com/Aman-CERP/epimem/internal/output"
)

func newPruneCmd() *cobra.Command {
	var (
		maxAgeDays int
		minUtility float64
		hasMaxAge  bool
		hasMinUtil bool
		execute    bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove aged, low-utility, never-helped episodes",
		Long: `Prune selects episodes older than max_age_days, scoring below
min_utility_threshold, with helpful_count = 0 (spec §4.5) — the last
conjunct protects any episode with positive explicit feedback from
automatic deletion.

Without --execute, prune only reports candidates (a dry run). With
--execute, it deletes them, vector-index before content-store, and is
safely resumable if interrupted.`,
		Example: `  epimem prune
  epimem prune --execute
  epimem prune --max-age-days 30 --min-utility 0.1 --execute`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hasMaxAge = cmd.Flags().Changed("max-age-days")
			hasMinUtil = cmd.Flags().Changed("min-utility")
			return runPrune(cmd, maxAgeDays, minUtility, hasMaxAge, hasMinUtil, execute)
		},
	}

	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", 0, "Override prune.max_age_days")
	cmd.Flags().Float64Var(&minUtility, "min-utility", 0, "Override prune.min_utility_threshold")
	cmd.Flags().BoolVar(&execute, "execute", false, "Delete candidates instead of only reporting them")

	return cmd
}

func runPrune(cmd *cobra.Command, maxAgeDays int, minUtility float64, hasMaxAge, hasMinUtil, execute bool) error {
	out := output.New(cmd.OutOrStdout())

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	opts := engine.PruneOptions{Execute: execute}
	if hasMaxAge {
		opts.MaxAgeDays = &maxAgeDays
	}
	if hasMinUtil {
		opts.MinUtility = &minUtility
	}

	result, err := e.Prune(cmd.Context(), opts)
	incomplete := engerr.GetCode(err) == engerr.CodePruneIncomplete
	if err != nil && !incomplete {
		return err
	}

	if execute {
		out.Successf("Deleted %d of %d candidates", result.DeletedCount, len(result.Candidates))
	} else {
		out.Statusf("🔍", "%d candidates for pruning:", len(result.Candidates))
		for _, c := range result.Candidates {
			out.Status("", fmt.Sprintf("  %s (project: %s, age: %.0fd, score: %.3f)", c.ID, c.Project, c.AgeDays, c.Score))
		}
	}

	if incomplete {
		out.Warning(err.Error())
	}

	return nil
}
