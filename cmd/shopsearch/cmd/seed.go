package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/shopsearch/configs"
	"github.com/Aman-CERP/shopsearch/internal/output"
	"github.com/Aman-CERP/shopsearch/internal/store"
)

func newSeedCmd() *cobra.Command {
	var sample bool

	cmd := &cobra.Command{
		Use:   "seed [fixture.yaml]",
		Short: "Load shops from a YAML fixture",
		Long: `Load categories, shops and products from a YAML fixture into the store
and index the new shops.

Fixture format:
  categories:
    - id: 1
      name: Bread
  shops:
    - name: Sunny Bakery
      created_at: 2023-01-10
      in_vacations: false
      products:
        - name: Baguette
          categories: [1]

With --sample, a built-in demo catalogue is loaded instead.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if sample {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				f      *store.Fixture
				origin string
				err    error
			)
			if sample {
				f, err = store.ParseFixture(configs.SampleShops)
				origin = "the sample catalogue"
			} else {
				f, err = store.LoadFixture(args[0])
				origin = args[0]
			}
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, _, err := openSearcher(ctx)
			if err != nil {
				return err
			}
			defer closeSearcher(s)

			ids, err := s.Seed(ctx, f)
			if err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("seeded %d shops from %s", len(ids), origin)
			return nil
		},
	}

	cmd.Flags().BoolVar(&sample, "sample", false, "Load the built-in demo catalogue")
	return cmd
}
