package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shoperrors "github.com/Aman-CERP/shopsearch/internal/errors"
	"github.com/Aman-CERP/shopsearch/internal/search"
	"github.com/Aman-CERP/shopsearch/internal/shop"
)

type memSource struct {
	mu       sync.Mutex
	records  map[int64]shop.Record
	getCalls int
	err      error
}

func newMemSource(n int) *memSource {
	s := &memSource{records: make(map[int64]shop.Record)}
	for i := 1; i <= n; i++ {
		s.records[int64(i)] = shop.Record{ID: int64(i), Name: fmt.Sprintf("Shop %03d", i)}
	}
	return s
}

func (s *memSource) AllIDs(context.Context) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	ids := make([]int64, 0, len(s.records))
	for i := int64(1); i <= int64(len(s.records)); i++ {
		ids = append(ids, i)
	}
	return ids, nil
}

func (s *memSource) GetByIDs(_ context.Context, ids []int64) (map[int64]shop.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	out := make(map[int64]shop.Record, len(ids))
	for _, id := range ids {
		out[id] = s.records[id]
	}
	return out, nil
}

type countFailTarget struct {
	*BleveIndex
}

func (countFailTarget) DocCount() (uint64, error) {
	return 0, errors.New("count unavailable")
}

// filledWhileWaitingTarget reports an empty index on the first count and
// a populated one afterwards, as when another process indexes first.
type filledWhileWaitingTarget struct {
	*BleveIndex
	calls int
}

func (f *filledWhileWaitingTarget) DocCount() (uint64, error) {
	f.calls++
	if f.calls == 1 {
		return 0, nil
	}
	return 7, nil
}

func TestIndexer_EnsureIndexed_PopulatesEmptyIndex(t *testing.T) {
	// Given: an empty index and 60 shops
	idx, err := NewBleveIndex("")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()
	source := newMemSource(60)

	indexer, err := NewIndexer(idx, source, WithBatchSize(25), WithWorkers(2))
	require.NoError(t, err)

	// When: ensuring the index
	stats, err := indexer.EnsureIndexed(context.Background())

	// Then: every shop is indexed in three batches
	require.NoError(t, err)
	assert.Equal(t, 60, stats.Documents)
	assert.Equal(t, 3, stats.Batches)
	assert.False(t, stats.Skipped)
	assert.Equal(t, 3, source.getCalls)

	count, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(60), count)

	hits, total, err := idx.Search(context.Background(), search.BuildMatch("shop 042"), search.Filters{}, shop.SortRelevance, 0, 1)
	require.NoError(t, err)
	assert.Positive(t, total)
	assert.Equal(t, int64(42), hits[0].ID)
}

func TestIndexer_EnsureIndexed_IsIdempotent(t *testing.T) {
	idx, err := NewBleveIndex("")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()
	source := newMemSource(10)

	indexer, err := NewIndexer(idx, source)
	require.NoError(t, err)

	first, err := indexer.EnsureIndexed(context.Background())
	require.NoError(t, err)
	second, err := indexer.EnsureIndexed(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, source.getCalls)
}

func TestIndexer_EnsureIndexed_SkipsPopulatedIndex(t *testing.T) {
	idx := newTestIndex(t)
	source := newMemSource(3)

	indexer, err := NewIndexer(idx, source)
	require.NoError(t, err)

	stats, err := indexer.EnsureIndexed(context.Background())

	require.NoError(t, err)
	assert.True(t, stats.Skipped)
	assert.Equal(t, 5, stats.Documents)
	assert.Zero(t, source.getCalls)
}

func TestIndexer_EnsureIndexed_CountFailureRepopulates(t *testing.T) {
	idx := newTestIndex(t)
	source := newMemSource(4)

	indexer, err := NewIndexer(countFailTarget{idx}, source)
	require.NoError(t, err)

	stats, err := indexer.EnsureIndexed(context.Background())

	require.NoError(t, err)
	assert.False(t, stats.Skipped)
	assert.Equal(t, 4, stats.Documents)
}

func TestIndexer_SourceFailure(t *testing.T) {
	idx, err := NewBleveIndex("")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()
	source := newMemSource(1)
	source.err = errors.New("db gone")

	indexer, err := NewIndexer(idx, source)
	require.NoError(t, err)

	_, err = indexer.EnsureIndexed(context.Background())

	assert.Equal(t, shoperrors.ErrCodeIndexFailed, shoperrors.GetCode(err))
	assert.ErrorIs(t, err, source.err)
}

func TestIndexer_Rebuild_ReplacesDocuments(t *testing.T) {
	// Given: an index holding shops that storage no longer has
	idx := newTestIndex(t)
	source := newMemSource(2)
	indexer, err := NewIndexer(idx, source, WithLockDir(t.TempDir()))
	require.NoError(t, err)

	// When: rebuilding
	stats, err := indexer.Rebuild(context.Background())

	// Then: only the store's shops remain
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Documents)
	count, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestIndexer_Rebuild_LockHeldElsewhere(t *testing.T) {
	dir := t.TempDir()
	other := NewFileLock(dir)
	acquired, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, acquired)
	defer func() { _ = other.Unlock() }()

	idx := newTestIndex(t)
	indexer, err := NewIndexer(idx, newMemSource(1), WithLockDir(dir))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = indexer.Rebuild(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndexer_EnsureIndexed_RechecksCountUnderLock(t *testing.T) {
	// Given: an index that another process fills before the lock is ours
	idx, err := NewBleveIndex("")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()
	target := &filledWhileWaitingTarget{BleveIndex: idx}
	source := newMemSource(3)

	indexer, err := NewIndexer(target, source, WithLockDir(t.TempDir()))
	require.NoError(t, err)

	// When: ensuring the index
	stats, err := indexer.EnsureIndexed(context.Background())

	// Then: nothing is indexed twice
	require.NoError(t, err)
	assert.True(t, stats.Skipped)
	assert.Equal(t, 7, stats.Documents)
	assert.Zero(t, source.getCalls)
	assert.Equal(t, 2, target.calls)
}

func TestIndexer_Rebuild_WaitsForReleasedLock(t *testing.T) {
	// Given: a lock held by someone else and released shortly after
	dir := t.TempDir()
	other := NewFileLock(dir)
	acquired, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, acquired)
	go func() {
		time.Sleep(150 * time.Millisecond)
		_ = other.Unlock()
	}()

	idx := newTestIndex(t)
	indexer, err := NewIndexer(idx, newMemSource(2), WithLockDir(dir))
	require.NoError(t, err)

	// When: rebuilding
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stats, err := indexer.Rebuild(ctx)

	// Then: the rebuild runs once the lock is free
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Documents)
}

func TestNewIndexer_RequiresDependencies(t *testing.T) {
	_, err := NewIndexer(nil, newMemSource(1))
	assert.Error(t, err)

	idx := newTestIndex(t)
	_, err = NewIndexer(idx, nil)
	assert.Error(t, err)
}

func TestSplitBatches(t *testing.T) {
	ids := []int64{1, 2, 3, 4, 5}

	assert.Equal(t, [][]int64{{1, 2}, {3, 4}, {5}}, splitBatches(ids, 2))
	assert.Equal(t, [][]int64{{1, 2, 3, 4, 5}}, splitBatches(ids, 25))
	assert.Nil(t, splitBatches(nil, 25))
}
