package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/epimem/internal/output"
)

func newIndexCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Reconcile the vector and lexical indexes with the content store",
		Long: `Index walks every stored episode and embeds/indexes any that are
missing from the vector or lexical index. With --force, every episode
is re-indexed regardless of whether it already appears current.`,
		Example: `  epimem index
  epimem index --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-index every episode, not just pending ones")

	return cmd
}

func runIndex(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	result, err := e.IndexAll(cmd.Context(), force)
	if err != nil {
		return err
	}

	out.Successf("Indexed %d episodes", result.Written)
	if result.Failed > 0 {
		out.Warningf("%d episodes failed to index", result.Failed)
	}

	return nil
}
