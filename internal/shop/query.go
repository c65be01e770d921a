package shop

import (
	"fmt"
	"strings"
	"time"

	shoperrors "github.com/Aman-CERP/shopsearch/internal/errors"
)

// SortKey names the order of a result set.
type SortKey string

const (
	// SortUnset means the caller did not ask for an order.
	SortUnset SortKey = ""
	// SortName orders by name, lexical ascending.
	SortName SortKey = "name"
	// SortCreatedAt orders by creation date, oldest first.
	SortCreatedAt SortKey = "createdAt"
	// SortNbProducts orders by product count, smallest first.
	SortNbProducts SortKey = "nbProducts"
	// SortRelevance orders by match score, best first.
	SortRelevance SortKey = "relevance"
	// SortID orders by identifier ascending. Never parsed from input.
	SortID SortKey = "id"
)

// ParseSortKey normalizes a caller-supplied sort key.
// Empty input yields SortUnset. Unrecognized values map to SortNbProducts.
func ParseSortKey(raw string) SortKey {
	switch strings.TrimSpace(raw) {
	case "":
		return SortUnset
	case string(SortName):
		return SortName
	case string(SortCreatedAt):
		return SortCreatedAt
	case string(SortNbProducts):
		return SortNbProducts
	case string(SortRelevance):
		return SortRelevance
	default:
		return SortNbProducts
	}
}

// Page bounds a result set.
type Page struct {
	Offset int
	Limit  int
}

// NewPage validates offset and limit.
func NewPage(offset, limit int) (Page, error) {
	if offset < 0 {
		return Page{}, shoperrors.New(shoperrors.ErrCodeInvalidPage,
			fmt.Sprintf("offset must be non-negative, got %d", offset), nil)
	}
	if limit <= 0 {
		return Page{}, shoperrors.New(shoperrors.ErrCodeInvalidPage,
			fmt.Sprintf("limit must be positive, got %d", limit), nil)
	}
	return Page{Offset: offset, Limit: limit}, nil
}

// Window returns the [start, end) slice bounds of the page within total items.
func (p Page) Window(total int) (start, end int) {
	start = min(p.Offset, total)
	end = min(start+p.Limit, total)
	return start, end
}

// Query is an immutable search request. Build it with NewQuery.
type Query struct {
	text          string
	inVacations   *bool
	createdAfter  *time.Time
	createdBefore *time.Time
	sortBy        SortKey
	page          Page
}

// QueryOption configures a Query under construction.
type QueryOption func(*Query)

// WithText sets the free-text term. Surrounding whitespace is trimmed.
func WithText(text string) QueryOption {
	return func(q *Query) {
		q.text = strings.TrimSpace(text)
	}
}

// WithInVacations filters on the vacation flag.
func WithInVacations(v bool) QueryOption {
	return func(q *Query) {
		b := v
		q.inVacations = &b
	}
}

// WithCreatedAfter keeps shops created on or after date.
func WithCreatedAfter(date time.Time) QueryOption {
	return func(q *Query) {
		d := DateOf(date)
		q.createdAfter = &d
	}
}

// WithCreatedBefore keeps shops created on or before date.
func WithCreatedBefore(date time.Time) QueryOption {
	return func(q *Query) {
		d := DateOf(date)
		q.createdBefore = &d
	}
}

// WithSort sets the requested order from raw input (see ParseSortKey).
func WithSort(raw string) QueryOption {
	return func(q *Query) {
		q.sortBy = ParseSortKey(raw)
	}
}

// NewQuery builds a query for page.
func NewQuery(page Page, opts ...QueryOption) Query {
	q := Query{page: page}
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

// Text returns the trimmed free-text term, empty when matching all.
func (q Query) Text() string { return q.text }

// HasText reports whether a free-text term was given.
func (q Query) HasText() bool { return q.text != "" }

// InVacations returns the vacation filter and whether it is set.
func (q Query) InVacations() (bool, bool) {
	if q.inVacations == nil {
		return false, false
	}
	return *q.inVacations, true
}

// CreatedAfter returns the inclusive lower date bound and whether it is set.
func (q Query) CreatedAfter() (time.Time, bool) {
	if q.createdAfter == nil {
		return time.Time{}, false
	}
	return *q.createdAfter, true
}

// CreatedBefore returns the inclusive upper date bound and whether it is set.
func (q Query) CreatedBefore() (time.Time, bool) {
	if q.createdBefore == nil {
		return time.Time{}, false
	}
	return *q.createdBefore, true
}

// HasFilters reports whether any structured filter is set.
func (q Query) HasFilters() bool {
	return q.inVacations != nil || q.createdAfter != nil || q.createdBefore != nil
}

// Sort returns the requested order, SortUnset when none was given.
func (q Query) Sort() SortKey { return q.sortBy }

// SortSet reports whether the caller asked for an explicit order.
func (q Query) SortSet() bool { return q.sortBy != SortUnset }

// Page returns the requested page.
func (q Query) Page() Page { return q.page }

// Source identifies which path produced a result.
type Source string

const (
	// SourceIndexed is the full-text index path.
	SourceIndexed Source = "indexed"
	// SourceFallback is the relational predicate path.
	SourceFallback Source = "fallback"
	// SourceDefault is the identifier-ordered storage read.
	SourceDefault Source = "default"
)

// Result is one page of matching shops.
type Result struct {
	Items      []Record
	TotalCount int
	Source     Source

	// FallbackReason holds the index failure that caused a fallback, if any.
	FallbackReason string
}
