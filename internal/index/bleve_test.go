package index

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shoperrors "github.com/Aman-CERP/shopsearch/internal/errors"
	"github.com/Aman-CERP/shopsearch/internal/search"
	"github.com/Aman-CERP/shopsearch/internal/shop"
)

func date(s string) time.Time {
	d, err := shop.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testShops() []shop.Record {
	return []shop.Record{
		{ID: 1, Name: "Sunny Bakery", CreatedAt: date("2023-01-10"), InVacations: false, NbProducts: 12},
		{ID: 2, Name: "Bakery Corner", CreatedAt: date("2023-06-01"), InVacations: true, NbProducts: 3},
		{ID: 3, Name: "Flower Market", CreatedAt: date("2024-02-20"), InVacations: false, NbProducts: 7},
		{ID: 4, Name: "Cake Bakers", CreatedAt: date("2024-05-05"), InVacations: false, NbProducts: 3},
		{ID: 5, Name: "Abacus Books", CreatedAt: date("2022-11-30"), InVacations: true, NbProducts: 40},
	}
}

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	require.NoError(t, idx.Index(context.Background(), testShops()))
	return idx
}

func hitIDs(hits []search.Hit) []int64 {
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}

func searchText(t *testing.T, idx *BleveIndex, term string) []int64 {
	t.Helper()
	hits, _, err := idx.Search(context.Background(), search.BuildMatch(term), search.Filters{}, shop.SortRelevance, 0, 50)
	require.NoError(t, err)
	return hitIDs(hits)
}

func TestBleveIndex_ShortTermSkipsSubstring(t *testing.T) {
	idx := newTestIndex(t)

	// When: searching a two-character term
	ids := searchText(t, idx, "ba")

	// Then: word prefixes match, the inner "ba" of Abacus does not
	assert.ElementsMatch(t, []int64{1, 2, 4}, ids)
	assert.NotContains(t, ids, int64(5))
}

func TestBleveIndex_ThreeCharsMatchSubstring(t *testing.T) {
	idx := newTestIndex(t)

	ids := searchText(t, idx, "ery")

	assert.ElementsMatch(t, []int64{1, 2}, ids)
}

func TestBleveIndex_FourCharsMatchOneEdit(t *testing.T) {
	idx := newTestIndex(t)

	tests := []struct {
		term string
		want int64
	}{
		{"bakary", 1},
		{"flowr", 3},
		{"sunny bakry", 1},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Contains(t, searchText(t, idx, tt.term), tt.want)
		})
	}
}

func TestBleveIndex_ExactNameRanksFirst(t *testing.T) {
	idx := newTestIndex(t)

	ids := searchText(t, idx, "Sunny Bakery")

	require.NotEmpty(t, ids)
	assert.Equal(t, int64(1), ids[0])
}

func TestBleveIndex_MultiWordPrefixUsesWholeName(t *testing.T) {
	idx := newTestIndex(t)

	assert.Contains(t, searchText(t, idx, "sunny ba"), int64(1))
}

func TestBleveIndex_UserWildcardsAreLiteralFree(t *testing.T) {
	idx := newTestIndex(t)

	// A bare wildcard term must not turn into match-everything
	ids := searchText(t, idx, "*?*")

	assert.Empty(t, ids)
}

func TestBleveIndex_Filters(t *testing.T) {
	idx := newTestIndex(t)
	yes := true
	after := date("2023-06-01")
	before := date("2024-02-20")

	tests := []struct {
		name    string
		filters search.Filters
		want    []int64
	}{
		{"vacation flag", search.Filters{InVacations: &yes}, []int64{2, 5}},
		{"created after is inclusive", search.Filters{CreatedAfter: &after}, []int64{2, 3, 4}},
		{"created before is inclusive", search.Filters{CreatedBefore: &before}, []int64{1, 2, 3, 5}},
		{"date window", search.Filters{CreatedAfter: &after, CreatedBefore: &before}, []int64{2, 3}},
		{"flag and window", search.Filters{InVacations: &yes, CreatedAfter: &after, CreatedBefore: &before}, []int64{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, total, err := idx.Search(context.Background(), search.BuildMatch(""), tt.filters, shop.SortID, 0, 50)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hitIDs(hits))
			assert.Equal(t, len(tt.want), total)
		})
	}
}

func TestBleveIndex_TextAndFilterConjunctive(t *testing.T) {
	idx := newTestIndex(t)
	no := false

	hits, total, err := idx.Search(context.Background(), search.BuildMatch("bakery"), search.Filters{InVacations: &no}, shop.SortRelevance, 0, 10)

	// Then: open shops only; "Cake Bakers" is one edit from "bakery"
	require.NoError(t, err)
	ids := hitIDs(hits)
	assert.ElementsMatch(t, []int64{1, 4}, ids)
	assert.Equal(t, int64(1), ids[0])
	assert.Equal(t, 2, total)
}

func TestBleveIndex_Sorts(t *testing.T) {
	idx := newTestIndex(t)

	tests := []struct {
		sort shop.SortKey
		want []int64
	}{
		{shop.SortID, []int64{1, 2, 3, 4, 5}},
		{shop.SortName, []int64{5, 2, 4, 3, 1}},
		{shop.SortCreatedAt, []int64{5, 1, 2, 3, 4}},
		{shop.SortNbProducts, []int64{2, 4, 3, 1, 5}}, // ties broken by id
	}

	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			hits, _, err := idx.Search(context.Background(), search.BuildMatch(""), search.Filters{}, tt.sort, 0, 50)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hitIDs(hits))
		})
	}
}

func TestBleveIndex_Pagination(t *testing.T) {
	idx := newTestIndex(t)

	hits, total, err := idx.Search(context.Background(), search.BuildMatch(""), search.Filters{}, shop.SortID, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4}, hitIDs(hits))
	assert.Equal(t, 5, total)

	// Offset beyond the matches keeps the total
	hits, total, err = idx.Search(context.Background(), search.BuildMatch(""), search.Filters{}, shop.SortID, 20, 2)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 5, total)
}

func TestBleveIndex_MaxOffsetKeepsTotal(t *testing.T) {
	idx := newTestIndex(t)

	// Given: an offset at the top of the int range
	// When: searching a term with matches
	var (
		hits  []search.Hit
		total int
		err   error
	)
	require.NotPanics(t, func() {
		hits, total, err = idx.Search(context.Background(), search.BuildMatch("bakery"), search.Filters{}, shop.SortRelevance, math.MaxInt, 20)
	})

	// Then: no hits, and the total still counts the matches
	require.NoError(t, err)
	assert.Empty(t, hits)
	want := searchTotal(t, idx, "bakery")
	assert.Positive(t, want)
	assert.Equal(t, want, total)
}

func TestBleveIndex_HugeLimit(t *testing.T) {
	idx := newTestIndex(t)

	hits, total, err := idx.Search(context.Background(), search.BuildMatch(""), search.Filters{}, shop.SortID, 1, math.MaxInt)

	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 4, 5}, hitIDs(hits))
	assert.Equal(t, 5, total)
}

func searchTotal(t *testing.T, idx *BleveIndex, term string) int {
	t.Helper()
	_, total, err := idx.Search(context.Background(), search.BuildMatch(term), search.Filters{}, shop.SortRelevance, 0, 50)
	require.NoError(t, err)
	return total
}

func TestBleveIndex_EmptyIndexIsUnavailable(t *testing.T) {
	idx, err := NewBleveIndex("")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	_, _, err = idx.Search(context.Background(), search.BuildMatch("bakery"), search.Filters{}, shop.SortRelevance, 0, 10)

	assert.Equal(t, shoperrors.ErrCodeIndexUnavailable, shoperrors.GetCode(err))
	assert.True(t, shoperrors.IsFallbackEligible(err))
}

func TestBleveIndex_ClosedIndexIsUnavailable(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Close())

	_, _, err := idx.Search(context.Background(), search.BuildMatch("bakery"), search.Filters{}, shop.SortRelevance, 0, 10)
	assert.Equal(t, shoperrors.ErrCodeIndexUnavailable, shoperrors.GetCode(err))

	_, err = idx.DocCount()
	assert.Error(t, err)

	// Close is idempotent
	assert.NoError(t, idx.Close())
}

func TestBleveIndex_DeleteAndReset(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Delete(ctx, []int64{1, 2}))
	count, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	require.NoError(t, idx.Reset())
	count, err = idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestBleveIndex_OnDiskReopen(t *testing.T) {
	// Given: a populated on-disk index
	path := filepath.Join(t.TempDir(), "shops.bleve")
	idx, err := NewBleveIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.Index(context.Background(), testShops()))
	require.NoError(t, idx.Close())

	// When: reopening it
	reopened, err := NewBleveIndex(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	// Then: documents survive
	count, err := reopened.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)
}

func TestValidateIndexIntegrity(t *testing.T) {
	dir := t.TempDir()

	// Missing directory is fine
	assert.NoError(t, validateIndexIntegrity(filepath.Join(dir, "absent")))

	// Directory without metadata is corrupt
	assert.Error(t, validateIndexIntegrity(dir))
}
