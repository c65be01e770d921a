// Package search implements the hybrid shop query engine: the fuzzy match
// builder, the contracts of the full-text and relational engines, and the
// planner that chooses between them.
package search

import (
	"context"
	"time"

	"github.com/Aman-CERP/shopsearch/internal/shop"
)

// Filters are the structured constraints applied conjunctively on every path.
// A nil field is not constrained. Date bounds are inclusive.
type Filters struct {
	InVacations   *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// FiltersOf extracts the structured filters of q.
func FiltersOf(q shop.Query) Filters {
	var f Filters
	if v, ok := q.InVacations(); ok {
		f.InVacations = &v
	}
	if d, ok := q.CreatedAfter(); ok {
		f.CreatedAfter = &d
	}
	if d, ok := q.CreatedBefore(); ok {
		f.CreatedBefore = &d
	}
	return f
}

// Empty reports whether no filter is set.
func (f Filters) Empty() bool {
	return f.InVacations == nil && f.CreatedAfter == nil && f.CreatedBefore == nil
}

// Hit is one full-text match.
type Hit struct {
	ID    int64
	Score float64
}

// IndexedEngine is the full-text index capability.
// Errors are fallback-eligible: IndexUnavailable when the index cannot serve
// queries (closed, missing, empty) and IndexQueryError when execution fails.
type IndexedEngine interface {
	Search(ctx context.Context, expr Expression, filters Filters, sort shop.SortKey, offset, limit int) ([]Hit, int, error)
}

// Criteria is the relational form of a query: an optional case-insensitive
// name substring plus the structured filters.
type Criteria struct {
	NameContains string
	Filters
}

// FallbackEngine evaluates exact and substring predicates over the relational
// store. It has no fuzzy matching. Its errors are terminal for a query.
type FallbackEngine interface {
	Filter(ctx context.Context, criteria Criteria, sort shop.SortKey, page shop.Page) ([]shop.Record, int, error)
}

// RecordReader is the plain storage read used for the default order and to
// hydrate full-text hits.
type RecordReader interface {
	ListByID(ctx context.Context, page shop.Page) ([]shop.Record, int, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]shop.Record, error)
}
