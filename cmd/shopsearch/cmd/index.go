package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/shopsearch/internal/index"
	"github.com/Aman-CERP/shopsearch/internal/output"
)

func newIndexCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Populate the full-text index from the store",
		Long: `Populate the full-text index from the store.

Without --force, the index is only populated when it is empty. With
--force, it is cleared and rebuilt from every stored shop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, _, err := openSearcher(ctx)
			if err != nil {
				return err
			}
			defer closeSearcher(s)

			var stats *index.Stats
			if force {
				stats, err = s.Rebuild(ctx)
			} else {
				stats, err = s.EnsureIndexed(ctx)
			}
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if stats.Skipped {
				out.Successf("index already holds %d shops (use --force to rebuild)", stats.Documents)
				return nil
			}
			out.Successf("indexed %d shops in %d batches (%s)", stats.Documents, stats.Batches, stats.Duration.Round(1e6))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Clear and rebuild the index")
	return cmd
}
