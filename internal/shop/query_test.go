package shop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shoperrors "github.com/Aman-CERP/shopsearch/internal/errors"
)

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		raw  string
		want SortKey
	}{
		{"", SortUnset},
		{"  ", SortUnset},
		{"name", SortName},
		{"createdAt", SortCreatedAt},
		{"nbProducts", SortNbProducts},
		{"relevance", SortRelevance},
		{"bogus", SortNbProducts},
		{"id", SortNbProducts},
		{"NAME", SortNbProducts},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSortKey(tt.raw))
		})
	}
}

func TestNewPage_Validation(t *testing.T) {
	page, err := NewPage(0, 10)
	require.NoError(t, err)
	assert.Equal(t, Page{Offset: 0, Limit: 10}, page)

	_, err = NewPage(-1, 10)
	assert.Equal(t, shoperrors.ErrCodeInvalidPage, shoperrors.GetCode(err))

	_, err = NewPage(0, 0)
	assert.Equal(t, shoperrors.ErrCodeInvalidPage, shoperrors.GetCode(err))
}

func TestPage_Window(t *testing.T) {
	tests := []struct {
		name               string
		page               Page
		total              int
		wantStart, wantEnd int
	}{
		{"first page", Page{0, 2}, 5, 0, 2},
		{"last partial page", Page{4, 2}, 5, 4, 5},
		{"offset past end", Page{9, 2}, 5, 5, 5},
		{"empty set", Page{0, 2}, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.page.Window(tt.total)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestNewQuery_TrimsTextAndNormalizesDates(t *testing.T) {
	// Given: raw inputs with whitespace and a non-midnight time
	after := time.Date(2024, 3, 5, 17, 45, 0, 0, time.UTC)

	// When: building the query
	q := NewQuery(Page{Limit: 10},
		WithText("  bakery "),
		WithCreatedAfter(after),
		WithInVacations(false),
	)

	// Then: text is trimmed and the date is a calendar date
	assert.Equal(t, "bakery", q.Text())
	assert.True(t, q.HasText())

	got, ok := q.CreatedAfter()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), got)

	_, ok = q.CreatedBefore()
	assert.False(t, ok)

	vac, ok := q.InVacations()
	assert.True(t, ok)
	assert.False(t, vac)
	assert.True(t, q.HasFilters())
	assert.False(t, q.SortSet())
}

func TestNewQuery_BlankTextMatchesAll(t *testing.T) {
	q := NewQuery(Page{Limit: 5}, WithText("   "))

	assert.False(t, q.HasText())
	assert.False(t, q.HasFilters())
	assert.Equal(t, SortUnset, q.Sort())
}

func TestQuery_OptionCopiesAreIndependent(t *testing.T) {
	// Given: two queries built from the same option value
	opt := WithInVacations(true)
	q1 := NewQuery(Page{Limit: 1}, opt)
	q2 := NewQuery(Page{Limit: 1}, opt)

	// Then: each holds its own copy of the flag
	v1, _ := q1.InVacations()
	v2, _ := q2.InVacations()
	assert.True(t, v1)
	assert.True(t, v2)
	assert.NotSame(t, q1.inVacations, q2.inVacations)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2023-12-31")
	require.NoError(t, err)
	assert.Equal(t, "2023-12-31", FormatDate(d))
	assert.Equal(t, time.UTC, d.Location())

	_, err = ParseDate("31/12/2023")
	assert.Error(t, err)
}
