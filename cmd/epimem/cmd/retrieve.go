package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/epimem/internal/episode"
	"github.com/Aman-CERP/epimem/internal/output"
	"github.com/Aman-CERP/epimem/internal/retriever"
)

type retrieveOptions struct {
	limit         int
	project       string
	taskType      string
	minSimilarity float64
	utilityWeight float64
	hasMinSim     bool
	hasWeight     bool
	format        string
}

func newRetrieveCmd() *cobra.Command {
	var opts retrieveOptions

	cmd := &cobra.Command{
		Use:   "retrieve <query>",
		Short: "Rank stored episodes against a query",
		Long: `Retrieve embeds the query, ranks candidate episodes by a blend of
similarity and learned utility (spec §4.3), and returns the top k.

Falls back to lexical (token-overlap) matching automatically when the
vector index is empty or unavailable.`,
		Example: `  epimem retrieve "fix login authentication bug"
  epimem retrieve "flaky test" --project myapp --limit 5
  epimem retrieve "race condition" --utility-weight 0 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.hasMinSim = cmd.Flags().Changed("min-similarity")
			opts.hasWeight = cmd.Flags().Changed("utility-weight")
			return runRetrieve(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default: config's retrieval.default_limit)")
	cmd.Flags().StringVar(&opts.project, "project", "", "Restrict to episodes from this project")
	cmd.Flags().StringVar(&opts.taskType, "task-type", "", "Restrict to episodes of this task type")
	cmd.Flags().Float64Var(&opts.minSimilarity, "min-similarity", 0, "Override retrieval.min_similarity")
	cmd.Flags().Float64Var(&opts.utilityWeight, "utility-weight", 0, "Override retrieval.utility_weight (0 = pure similarity)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runRetrieve(cmd *cobra.Command, query string, opts retrieveOptions) error {
	out := output.New(cmd.OutOrStdout())

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	filter := episode.Filter{}
	if opts.project != "" {
		filter.Project = &opts.project
	}
	if opts.taskType != "" {
		tt := episode.TaskType(strings.ToLower(opts.taskType))
		filter.TaskType = &tt
	}

	retOpts := retriever.Options{K: opts.limit, Filter: filter}
	if opts.hasMinSim {
		retOpts.MinSimilarity = &opts.minSimilarity
	}
	if opts.hasWeight {
		retOpts.UtilityWeight = &opts.utilityWeight
	}

	results, err := e.Retrieve(cmd.Context(), query, retOpts)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		return printRetrieveJSON(cmd, results)
	}
	return printRetrieveText(out, query, results)
}

func printRetrieveText(out *output.Writer, query string, results []*retriever.Ranked) error {
	if len(results) == 0 {
		out.Status("", fmt.Sprintf("No episodes found for %q", query))
		return nil
	}

	out.Statusf("🔍", "Found %d episodes for %q:", len(results), query)
	out.Newline()

	for i, r := range results {
		out.Statusf("", "%d. %s (score: %.3f, similarity: %.3f)", i+1, r.Episode.ID, r.Score, r.Similarity)
		summary := r.Episode.Intent.Summary
		if summary == "" {
			summary = r.Episode.Intent.RawPrompt
		}
		out.Status("", "   "+summary)
	}
	return nil
}

func printRetrieveJSON(cmd *cobra.Command, results []*retriever.Ranked) error {
	type jsonResult struct {
		ID         string  `json:"id"`
		Project    string  `json:"project"`
		Score      float64 `json:"score"`
		Similarity float64 `json:"similarity"`
		Summary    string  `json:"summary"`
	}

	out := make([]jsonResult, 0, len(results))
	for _, r := range results {
		out = append(out, jsonResult{
			ID:         r.Episode.ID,
			Project:    r.Episode.Project,
			Score:      r.Score,
			Similarity: r.Similarity,
			Summary:    r.Episode.Intent.Summary,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
