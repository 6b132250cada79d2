package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/epimem/internal/engerr"
	"github.com/Aman-CERP/epimem/internal/output"
	"github.com/Aman-CERP/epimem/internal/utility"
)

func newFeedbackCmd() *cobra.Command {
	var (
		kind  string
		query string
	)

	cmd := &cobra.Command{
		Use:   "feedback <episode-id>...",
		Short: "Record explicit feedback on retrieved episodes",
		Long: `Feedback adjusts an episode's learned utility score toward or away
from being retrieved again (spec §4.4.1): "helpful" and "not_helpful"
are full +1/+0 updates to helpful_count, "mixed" is a +0.5 update.

Each id whose utility update succeeds gets one line appended to
feedback.log (spec §6.2); ids whose update fails are reported and not
logged.`,
		Example: `  epimem feedback ep-abc123 --kind helpful
  epimem feedback ep-abc123 ep-def456 --kind not_helpful --query "fix login bug"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeedback(cmd, args, kind, query)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Feedback kind: helpful, not_helpful, mixed (required)")
	cmd.Flags().StringVar(&query, "query", "", "The query this feedback responds to, for feedback.log")
	_ = cmd.MarkFlagRequired("kind")

	return cmd
}

func runFeedback(cmd *cobra.Command, ids []string, kind, query string) error {
	out := output.New(cmd.OutOrStdout())

	k := utility.Kind(kind)
	switch k {
	case utility.KindHelpful, utility.KindNotHelpful, utility.KindMixed:
	default:
		return engerr.ValidationError(fmt.Sprintf("invalid --kind %q (use helpful, not_helpful, or mixed)", kind), nil)
	}

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	result, err := e.Feedback(cmd.Context(), ids, k, query)
	if err != nil {
		return err
	}

	for _, id := range result.Updated {
		out.Successf("Applied %s feedback to %s", kind, id)
	}
	for _, id := range result.Failed {
		out.Warningf("Failed to apply feedback to %s", id)
	}

	return nil
}
