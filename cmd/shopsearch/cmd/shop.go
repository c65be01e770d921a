package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	shoperrors "github.com/Aman-CERP/shopsearch/internal/errors"
	"github.com/Aman-CERP/shopsearch/internal/output"
	"github.com/Aman-CERP/shopsearch/internal/shop"
)

func parseShopID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shoperrors.ValidationError(fmt.Sprintf("shop id must be a positive integer, got %q", raw), err)
	}
	return id, nil
}

func newShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one shop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseShopID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, _, err := openSearcher(ctx)
			if err != nil {
				return err
			}
			defer closeSearcher(s)

			r, err := s.Get(ctx, id)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if jsonOutput {
				return out.JSON(r)
			}
			out.Results(&shop.Result{Items: []shop.Record{r}, TotalCount: 1}, shop.Page{Limit: 1}, false)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a shop and its products",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseShopID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, _, err := openSearcher(ctx)
			if err != nil {
				return err
			}
			defer closeSearcher(s)

			if err := s.DeleteShop(ctx, id); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("deleted shop %d", id)
			return nil
		},
	}
}
