package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/shopsearch/internal/config"
	"github.com/Aman-CERP/shopsearch/internal/output"
	"github.com/Aman-CERP/shopsearch/internal/shop"
	"github.com/Aman-CERP/shopsearch/internal/store"
	"github.com/Aman-CERP/shopsearch/internal/telemetry"
)

// StatsOutput is the JSON output format for query stats.
type StatsOutput struct {
	Summary             StatsSummary                      `json:"summary"`
	SourceCounts        map[string]int64                  `json:"source_counts"`
	TopTerms            []telemetry.TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                          `json:"zero_result_queries"`
	LatencyDistribution map[telemetry.LatencyBucket]int64 `json:"latency_distribution"`
}

// StatsSummary provides overview statistics.
type StatsSummary struct {
	Days         int     `json:"days"`
	TotalQueries int64   `json:"total_queries"`
	FallbackPct  float64 `json:"fallback_pct"`
	FailedPct    float64 `json:"failed_pct"`
}

func newStatsCmd() *cobra.Command {
	var jsonOutput bool
	var days int
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show query telemetry",
		Long: `Display persisted query telemetry:
  - Queries per answering engine (indexed/fallback/default/failed)
  - Top query terms
  - Recent zero-result queries
  - Latency distribution`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			cfg, err := config.Load(".")
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.Storage.Driver, cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			ms, err := telemetry.NewSQLiteMetricsStore(st.DB())
			if err != nil {
				return err
			}
			stats, err := collectStats(ms, days, top, time.Now())
			if err != nil {
				return fmt.Errorf("failed to read query stats: %w", err)
			}

			if jsonOutput {
				return output.New(cmd.OutOrStdout()).JSON(stats)
			}
			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&days, "days", 7, "Number of days to include")
	cmd.Flags().IntVar(&top, "top", 10, "Number of top terms and zero-result queries to show")

	return cmd
}

func collectStats(ms telemetry.QueryMetricsStore, days, top int, now time.Time) (*StatsOutput, error) {
	to := shop.FormatDate(now)
	from := shop.FormatDate(now.AddDate(0, 0, -(days - 1)))

	sources, err := ms.GetSourceCounts(from, to)
	if err != nil {
		return nil, err
	}
	terms, err := ms.GetTopTerms(top)
	if err != nil {
		return nil, err
	}
	zero, err := ms.GetZeroResultQueries(top)
	if err != nil {
		return nil, err
	}
	latencies, err := ms.GetLatencyCounts(from, to)
	if err != nil {
		return nil, err
	}

	out := &StatsOutput{
		Summary:             StatsSummary{Days: days},
		SourceCounts:        sources,
		TopTerms:            terms,
		ZeroResultQueries:   zero,
		LatencyDistribution: latencies,
	}
	for _, n := range sources {
		out.Summary.TotalQueries += n
	}
	if total := float64(out.Summary.TotalQueries); total > 0 {
		out.Summary.FallbackPct = float64(sources[string(shop.SourceFallback)]) / total * 100
		out.Summary.FailedPct = float64(sources[telemetry.SourceFailed]) / total * 100
	}
	return out, nil
}

func printStats(w io.Writer, s *StatsOutput) {
	_, _ = fmt.Fprintf(w, "Query Statistics (last %d days)\n", s.Summary.Days)
	_, _ = fmt.Fprintln(w, "================================")
	_, _ = fmt.Fprintf(w, "Total Queries: %d\n", s.Summary.TotalQueries)
	_, _ = fmt.Fprintf(w, "Fallback:      %.1f%%\n", s.Summary.FallbackPct)
	_, _ = fmt.Fprintf(w, "Failed:        %.1f%%\n\n", s.Summary.FailedPct)

	_, _ = fmt.Fprintln(w, "Answered By:")
	for _, src := range []string{string(shop.SourceIndexed), string(shop.SourceFallback), string(shop.SourceDefault), telemetry.SourceFailed} {
		_, _ = fmt.Fprintf(w, "  %-9s %d\n", src+":", s.SourceCounts[src])
	}
	_, _ = fmt.Fprintln(w)

	if len(s.TopTerms) > 0 {
		_, _ = fmt.Fprintln(w, "Top Query Terms:")
		for i, tc := range s.TopTerms {
			_, _ = fmt.Fprintf(w, "  %d. %s (%d)\n", i+1, tc.Term, tc.Count)
		}
	} else {
		_, _ = fmt.Fprintln(w, "Top Query Terms: (none recorded yet)")
	}
	_, _ = fmt.Fprintln(w)

	if len(s.ZeroResultQueries) > 0 {
		_, _ = fmt.Fprintln(w, "Recent Zero-Result Queries:")
		for _, q := range s.ZeroResultQueries {
			_, _ = fmt.Fprintf(w, "  - %q\n", q)
		}
	} else {
		_, _ = fmt.Fprintln(w, "Recent Zero-Result Queries: (none)")
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "Latency Distribution:")
	buckets := []struct {
		bucket telemetry.LatencyBucket
		label  string
	}{
		{telemetry.BucketP10, "<10ms"},
		{telemetry.BucketP50, "10-50ms"},
		{telemetry.BucketP100, "50-100ms"},
		{telemetry.BucketP500, "100-500ms"},
		{telemetry.BucketP1000, ">=500ms"},
	}
	for _, b := range buckets {
		_, _ = fmt.Fprintf(w, "  %-10s %d\n", b.label+":", s.LatencyDistribution[b.bucket])
	}
}
