package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	shoperrors "github.com/Aman-CERP/shopsearch/internal/errors"
	"github.com/Aman-CERP/shopsearch/internal/shop"
)

// Mass indexing defaults.
const (
	DefaultBatchSize = 25
	DefaultWorkers   = 2
)

// RecordSource supplies the shops to index.
type RecordSource interface {
	AllIDs(ctx context.Context) ([]int64, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]shop.Record, error)
}

// Target is the index being populated.
type Target interface {
	DocCount() (uint64, error)
	Index(ctx context.Context, records []shop.Record) error
	Reset() error
}

// Stats summarizes one indexing run.
type Stats struct {
	Documents int
	Batches   int
	Skipped   bool // the index already had documents
	Duration  time.Duration
}

// Indexer populates an index from the store.
type Indexer struct {
	target    Target
	source    RecordSource
	lock      *FileLock
	batchSize int
	workers   int

	once  sync.Once
	stats *Stats
	err   error
}

// IndexerOption configures the indexer.
type IndexerOption func(*Indexer)

// WithBatchSize sets how many shops are indexed per batch.
func WithBatchSize(n int) IndexerOption {
	return func(i *Indexer) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// WithWorkers sets how many batches are indexed concurrently.
func WithWorkers(n int) IndexerOption {
	return func(i *Indexer) {
		if n > 0 {
			i.workers = n
		}
	}
}

// WithLockDir guards population with a lock file in dir.
func WithLockDir(dir string) IndexerOption {
	return func(i *Indexer) {
		if dir != "" {
			i.lock = NewFileLock(dir)
		}
	}
}

// NewIndexer creates an indexer writing source records into target.
func NewIndexer(target Target, source RecordSource, opts ...IndexerOption) (*Indexer, error) {
	if target == nil {
		return nil, fmt.Errorf("index target is required")
	}
	if source == nil {
		return nil, fmt.Errorf("record source is required")
	}
	i := &Indexer{
		target:    target,
		source:    source,
		batchSize: DefaultBatchSize,
		workers:   DefaultWorkers,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// EnsureIndexed populates the index when it is empty or its document count
// cannot be read. Only the first call does any work; later calls return
// the first outcome.
func (i *Indexer) EnsureIndexed(ctx context.Context) (*Stats, error) {
	i.once.Do(func() {
		i.stats, i.err = i.ensure(ctx)
	})
	return i.stats, i.err
}

func (i *Indexer) ensure(ctx context.Context) (*Stats, error) {
	count, err := i.target.DocCount()
	if err == nil && count > 0 {
		slog.Debug("index_already_populated", slog.Uint64("documents", count))
		return &Stats{Documents: int(count), Skipped: true}, nil
	}
	if err != nil {
		slog.Warn("index_count_failed", slog.String("error", err.Error()))
	}

	return i.withLock(ctx, func() (*Stats, error) {
		// Another process may have filled the index while we waited.
		if count, err := i.target.DocCount(); err == nil && count > 0 {
			slog.Info("index_populated_elsewhere", slog.Uint64("documents", count))
			return &Stats{Documents: int(count), Skipped: true}, nil
		}
		return i.populate(ctx)
	})
}

// Rebuild clears the index and indexes every shop again.
func (i *Indexer) Rebuild(ctx context.Context) (*Stats, error) {
	return i.withLock(ctx, func() (*Stats, error) {
		if err := i.target.Reset(); err != nil {
			return nil, shoperrors.New(shoperrors.ErrCodeIndexFailed, "failed to clear index", err)
		}
		return i.populate(ctx)
	})
}

func (i *Indexer) withLock(ctx context.Context, fn func() (*Stats, error)) (*Stats, error) {
	if i.lock == nil {
		return fn()
	}
	acquired, err := i.lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !acquired {
		slog.Info("index_lock_waiting", slog.String("path", i.lock.Path()))
		if err := i.lock.Lock(ctx); err != nil {
			return nil, err
		}
	}
	defer func() {
		if err := i.lock.Unlock(); err != nil {
			slog.Warn("index_unlock_failed", slog.String("error", err.Error()))
		}
	}()
	return fn()
}

// populate indexes all shops in fixed-size batches with a bounded worker group.
func (i *Indexer) populate(ctx context.Context) (*Stats, error) {
	start := time.Now()

	ids, err := i.source.AllIDs(ctx)
	if err != nil {
		return nil, shoperrors.New(shoperrors.ErrCodeIndexFailed, "failed to list shops", err)
	}

	batches := splitBatches(ids, i.batchSize)
	var indexed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)
	for _, batch := range batches {
		g.Go(func() error {
			byID, err := i.source.GetByIDs(gctx, batch)
			if err != nil {
				return err
			}
			records := make([]shop.Record, 0, len(byID))
			for _, r := range byID {
				records = append(records, r)
			}
			sort.Slice(records, func(a, b int) bool { return records[a].ID < records[b].ID })

			if err := i.target.Index(gctx, records); err != nil {
				return err
			}
			indexed.Add(int64(len(records)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, shoperrors.New(shoperrors.ErrCodeIndexFailed, "mass indexing failed", err)
	}

	stats := &Stats{
		Documents: int(indexed.Load()),
		Batches:   len(batches),
		Duration:  time.Since(start),
	}
	slog.Info("index_populated",
		slog.Int("documents", stats.Documents),
		slog.Int("batches", stats.Batches),
		slog.Int("workers", i.workers),
		slog.Duration("duration", stats.Duration))
	return stats, nil
}

func splitBatches(ids []int64, size int) [][]int64 {
	var batches [][]int64
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}
	return batches
}
