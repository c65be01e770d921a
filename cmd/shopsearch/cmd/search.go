package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	shoperrors "github.com/Aman-CERP/shopsearch/internal/errors"
	"github.com/Aman-CERP/shopsearch/internal/output"
	"github.com/Aman-CERP/shopsearch/internal/shop"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	inVacations   bool
	createdAfter  string
	createdBefore string
	sortBy        string
	offset        int
	limit         int
	format        string // "text", "json"
	explain       bool   // show which engine answered
}

// searchOutput is the JSON shape of a search result.
type searchOutput struct {
	Items          []shop.Record `json:"items"`
	TotalCount     int           `json:"totalCount"`
	Offset         int           `json:"offset"`
	Limit          int           `json:"limit"`
	Source         string        `json:"source,omitempty"`
	FallbackReason string        `json:"fallbackReason,omitempty"`
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [text...]",
		Short: "Search shops by name, vacation flag and creation date",
		Long: `Search shops.

With a search term, the full-text index matches names by phrase, prefix,
substring (terms of 3+ characters) and one-edit fuzzy match (terms of 4+
characters). When the index is unavailable the relational store answers
with case-insensitive substring matching instead.

Without a term, filters and sort are applied directly by the store, and
with neither, shops are listed by id.

Sort keys: name, createdAt, nbProducts, relevance. Unknown keys sort by
nbProducts; without --sort, results are ordered by relevance when a term
is given and by id otherwise.

Examples:
  shopsearch search bakery
  shopsearch search "sunny bakery" --in-vacations=false --limit 5
  shopsearch search --created-after 2023-01-01 --sort createdAt
  shopsearch search bakary --explain --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.inVacations, "in-vacations", false, "Filter on the vacation flag (applies only when set)")
	cmd.Flags().StringVar(&opts.createdAfter, "created-after", "", "Only shops created on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.createdBefore, "created-before", "", "Only shops created on or before this date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&opts.sortBy, "sort", "s", "", "Sort key: name, createdAt, nbProducts, relevance")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Number of results to skip")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show which engine answered and why")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, text string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("invalid format %q (use: text, json)", opts.format)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	warn := output.New(cmd.ErrOrStderr())
	queryOpts := []shop.QueryOption{shop.WithText(text)}
	if cmd.Flags().Changed("in-vacations") {
		queryOpts = append(queryOpts, shop.WithInVacations(opts.inVacations))
	}
	if d, ok := parseDateFlag(warn, "created-after", opts.createdAfter); ok {
		queryOpts = append(queryOpts, shop.WithCreatedAfter(d))
	}
	if d, ok := parseDateFlag(warn, "created-before", opts.createdBefore); ok {
		queryOpts = append(queryOpts, shop.WithCreatedBefore(d))
	}
	if opts.sortBy != "" {
		queryOpts = append(queryOpts, shop.WithSort(opts.sortBy))
	}

	s, _, err := openSearcher(ctx)
	if err != nil {
		return err
	}
	defer closeSearcher(s)

	page, err := s.Page(opts.offset, opts.limit)
	if err != nil {
		return err
	}

	slog.Info("search_started", slog.String("text", text), slog.Int("offset", page.Offset), slog.Int("limit", page.Limit))
	res, err := s.Search(ctx, shop.NewQuery(page, queryOpts...))
	if err != nil {
		attrs := make([]any, 0, 8)
		for k, v := range shoperrors.FormatForLog(err) {
			attrs = append(attrs, slog.Any(k, v))
		}
		slog.Error("search_failed", attrs...)
		if opts.format == "json" {
			if data, jerr := shoperrors.FormatJSON(err); jerr == nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			}
		}
		return err
	}
	slog.Info("search_completed",
		slog.String("source", string(res.Source)),
		slog.Int("results", len(res.Items)),
		slog.Int("total", res.TotalCount))

	out := output.New(cmd.OutOrStdout())
	if opts.format == "json" {
		o := searchOutput{
			Items:      res.Items,
			TotalCount: res.TotalCount,
			Offset:     page.Offset,
			Limit:      page.Limit,
		}
		if opts.explain {
			o.Source = string(res.Source)
			o.FallbackReason = res.FallbackReason
		}
		return out.JSON(o)
	}
	out.Results(res, page, opts.explain)
	return nil
}

// parseDateFlag parses a YYYY-MM-DD flag value. An invalid date is reported
// as a warning and ignored.
func parseDateFlag(warn *output.Writer, name, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	d, err := shop.ParseDate(value)
	if err != nil {
		warn.Warningf("ignoring --%s: %q is not a YYYY-MM-DD date", name, value)
		slog.Warn("invalid_date_ignored", slog.String("flag", name), slog.String("value", value))
		return time.Time{}, false
	}
	return d, true
}
