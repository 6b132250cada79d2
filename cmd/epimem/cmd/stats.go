package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/epimem/internal/output"
	"github.com/Aman-CERP/epimem/internal/stats"
)

func newStatsCmd() *cobra.Command {
	var (
		jsonOutput bool
		project    string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show episode and utility statistics",
		Long: `Display read-only rollups over every captured episode (spec
§4.6): totals by project/task_type/outcome, success rate, the utility
score distribution, and index coverage.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, jsonOutput, project)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&project, "project", "", "Restrict stats to this project")

	return cmd
}

func runStats(cmd *cobra.Command, jsonOutput bool, project string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	var projectPtr *string
	if project != "" {
		projectPtr = &project
	}

	report, err := e.Stats(cmd.Context(), projectPtr)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	return printStatsText(cmd, report)
}

func printStatsText(cmd *cobra.Command, report *stats.Report) error {
	out := output.New(cmd.OutOrStdout())

	out.Statusf("📊", "Total episodes: %d", report.Total)
	out.Statusf("", "Success rate: %.1f%%", report.SuccessRate*100)
	out.Statusf("", "Indexed: %d, pending: %d", report.IndexedCount, report.UnindexedCount)
	out.Statusf("", "Retrievals: %d, feedback events: %d", report.TotalRetrievals, report.TotalFeedback)
	out.Newline()

	out.Status("", fmt.Sprintf("Utility score: min %.3f, mean %.3f, median %.3f, max %.3f",
		report.Utility.Min, report.Utility.Mean, report.Utility.Median, report.Utility.Max))
	out.Newline()

	if len(report.ByProject) > 0 {
		out.Status("", "By project:")
		for project, count := range report.ByProject {
			out.Status("", fmt.Sprintf("  %s: %d", project, count))
		}
	}
	if len(report.ByTaskType) > 0 {
		out.Status("", "By task type:")
		for taskType, count := range report.ByTaskType {
			out.Status("", fmt.Sprintf("  %s: %d", taskType, count))
		}
	}
	if len(report.ByOutcome) > 0 {
		out.Status("", "By outcome:")
		for outcome, count := range report.ByOutcome {
			out.Status("", fmt.Sprintf("  %s: %d", outcome, count))
		}
	}

	return nil
}
