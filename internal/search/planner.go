package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	shoperrors "github.com/Aman-CERP/shopsearch/internal/errors"
	"github.com/Aman-CERP/shopsearch/internal/shop"
	"github.com/Aman-CERP/shopsearch/internal/telemetry"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// FallbackReasonNoIndex is reported when text queries run without an index.
const FallbackReasonNoIndex = "index_disabled"

// Route is the first transition of a query.
type Route int

const (
	// RouteDefault reads storage in identifier order.
	RouteDefault Route = iota
	// RouteFilteredOrSorted goes straight to the fallback engine.
	RouteFilteredOrSorted
	// RouteTextSearch tries the full-text index first.
	RouteTextSearch
)

// String returns the route name used in logs.
func (r Route) String() string {
	switch r {
	case RouteDefault:
		return "default"
	case RouteFilteredOrSorted:
		return "filtered_or_sorted"
	case RouteTextSearch:
		return "text_search"
	default:
		return "unknown"
	}
}

// PlanRoute picks the route for q.
func PlanRoute(q shop.Query) Route {
	switch {
	case q.HasText():
		return RouteTextSearch
	case q.HasFilters() || q.SortSet():
		return RouteFilteredOrSorted
	default:
		return RouteDefault
	}
}

// ResolveSort returns the effective order of q: the explicit key when given,
// relevance for text queries and identifier order otherwise.
func ResolveSort(q shop.Query) shop.SortKey {
	if q.SortSet() {
		return q.Sort()
	}
	if q.HasText() {
		return shop.SortRelevance
	}
	return shop.SortID
}

// Planner routes shop queries between the full-text index and the
// relational store. It holds no per-query state and is safe for
// concurrent use.
type Planner struct {
	index    IndexedEngine
	fallback FallbackEngine
	records  RecordReader
	metrics  *telemetry.QueryMetrics
}

// PlannerOption configures the planner.
type PlannerOption func(*Planner)

// WithIndex sets the full-text engine. Without one, text queries are
// answered by the fallback engine.
func WithIndex(idx IndexedEngine) PlannerOption {
	return func(p *Planner) {
		p.index = idx
	}
}

// WithMetrics sets an optional query metrics collector.
func WithMetrics(m *telemetry.QueryMetrics) PlannerOption {
	return func(p *Planner) {
		p.metrics = m
	}
}

// NewPlanner creates a planner over the given store capabilities.
func NewPlanner(fallback FallbackEngine, records RecordReader, opts ...PlannerOption) (*Planner, error) {
	if fallback == nil {
		return nil, fmt.Errorf("%w: fallback engine is required", ErrNilDependency)
	}
	if records == nil {
		return nil, fmt.Errorf("%w: record reader is required", ErrNilDependency)
	}
	p := &Planner{fallback: fallback, records: records}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Query answers q. A result is either complete or absent: on error no
// items or total are returned.
func (p *Planner) Query(ctx context.Context, q shop.Query) (*shop.Result, error) {
	start := time.Now()

	res, err := p.run(ctx, q)
	if err != nil {
		err = shoperrors.New(shoperrors.ErrCodeQueryFailed, "shop query failed", err)
		res = nil
	}

	p.recordMetrics(q, res, time.Since(start))
	return res, err
}

func (p *Planner) run(ctx context.Context, q shop.Query) (*shop.Result, error) {
	route := PlanRoute(q)
	sortKey := ResolveSort(q)
	page := q.Page()

	switch route {
	case RouteDefault:
		items, total, err := p.records.ListByID(ctx, page)
		if err != nil {
			return nil, err
		}
		return newResult(items, total, shop.SourceDefault, page), nil

	case RouteFilteredOrSorted:
		return p.runFallback(ctx, Criteria{Filters: FiltersOf(q)}, sortKey, page)

	default:
		return p.runText(ctx, q, sortKey, page)
	}
}

func (p *Planner) runText(ctx context.Context, q shop.Query, sortKey shop.SortKey, page shop.Page) (*shop.Result, error) {
	criteria := Criteria{NameContains: q.Text(), Filters: FiltersOf(q)}

	if p.index == nil {
		res, err := p.runFallback(ctx, criteria, sortKey, page)
		if err != nil {
			return nil, err
		}
		res.FallbackReason = FallbackReasonNoIndex
		return res, nil
	}

	expr := BuildMatch(q.Text())
	hits, total, err := p.index.Search(ctx, expr, criteria.Filters, sortKey, page.Offset, page.Limit)
	if err != nil {
		if isContextErr(ctx, err) {
			return nil, err
		}

		reason := shoperrors.GetCode(err)
		if reason == "" {
			reason = shoperrors.ErrCodeIndexQuery
		}
		slog.Warn("query_fallback",
			slog.String("reason", reason),
			slog.String("error", err.Error()),
			slog.Bool("fallback_eligible", shoperrors.IsFallbackEligible(err)))

		res, ferr := p.runFallback(ctx, criteria, sortKey, page)
		if ferr != nil {
			return nil, ferr
		}
		res.FallbackReason = reason
		return res, nil
	}

	items, err := p.hydrate(ctx, hits)
	if err != nil {
		return nil, err
	}
	return newResult(items, total, shop.SourceIndexed, page), nil
}

func (p *Planner) runFallback(ctx context.Context, criteria Criteria, sortKey shop.SortKey, page shop.Page) (*shop.Result, error) {
	items, total, err := p.fallback.Filter(ctx, criteria, sortKey, page)
	if err != nil {
		return nil, err
	}
	return newResult(items, total, shop.SourceFallback, page), nil
}

// hydrate loads the records of hits in hit order. Hits whose record is no
// longer in storage are dropped.
func (p *Planner) hydrate(ctx context.Context, hits []Hit) ([]shop.Record, error) {
	if len(hits) == 0 {
		return []shop.Record{}, nil
	}

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}

	byID, err := p.records.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]shop.Record, 0, len(hits))
	for _, h := range hits {
		rec, ok := byID[h.ID]
		if !ok {
			slog.Debug("stale_index_hit", slog.Int64("id", h.ID))
			continue
		}
		items = append(items, rec)
	}
	return items, nil
}

func newResult(items []shop.Record, total int, source shop.Source, page shop.Page) *shop.Result {
	if items == nil {
		items = []shop.Record{}
	}
	if len(items) > page.Limit {
		items = items[:page.Limit]
	}
	return &shop.Result{Items: items, TotalCount: total, Source: source}
}

func isContextErr(ctx context.Context, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return ctx.Err() != nil
}

// recordMetrics records query telemetry if a collector is configured.
func (p *Planner) recordMetrics(q shop.Query, res *shop.Result, latency time.Duration) {
	if p.metrics == nil {
		return
	}

	event := telemetry.QueryEvent{
		Query:   q.Text(),
		Source:  telemetry.SourceFailed,
		Latency: latency,
	}
	if res != nil {
		event.Source = string(res.Source)
		event.Fallback = res.FallbackReason != ""
		event.ResultCount = len(res.Items)
		event.TotalCount = res.TotalCount
	}
	p.metrics.Record(event)
}
