package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/Aman-CERP/shopsearch/internal/config"
	shoperrors "github.com/Aman-CERP/shopsearch/internal/errors"
	"github.com/Aman-CERP/shopsearch/internal/index"
	"github.com/Aman-CERP/shopsearch/internal/search"
	"github.com/Aman-CERP/shopsearch/internal/shop"
	"github.com/Aman-CERP/shopsearch/internal/store"
	"github.com/Aman-CERP/shopsearch/internal/telemetry"
)

// ErrNilConfig is returned by Open when no configuration is given.
var ErrNilConfig = errors.New("configuration is required")

// Searcher answers shop queries.
type Searcher struct {
	cfg     *config.Config
	store   *store.SQLiteStore
	index   *index.BleveIndex // nil when the index is disabled
	indexer *index.Indexer
	planner *search.Planner
	metrics *telemetry.QueryMetrics
}

// Open builds a Searcher from cfg. With index.reindex_on_startup set, an
// empty index is populated before Open returns; a population failure is
// logged and queries fall back to the store.
func Open(ctx context.Context, cfg *config.Config) (*Searcher, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	st, err := store.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	s := &Searcher{cfg: cfg, store: st}

	opts := []search.PlannerOption{}
	if cfg.Telemetry.Enabled {
		ms, err := telemetry.NewSQLiteMetricsStore(st.DB())
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		s.metrics = telemetry.NewQueryMetricsWithConfig(ms, telemetry.QueryMetricsConfig{
			TopTermsCapacity:    cfg.Telemetry.TopTermsCapacity,
			ZeroResultsCapacity: cfg.Telemetry.ZeroResultsCapacity,
		})
		opts = append(opts, search.WithMetrics(s.metrics))
	}

	if cfg.Index.Enabled {
		if err := s.openIndex(); err != nil {
			_ = st.Close()
			return nil, err
		}
		opts = append(opts, search.WithIndex(s.index))
	}

	s.planner, err = search.NewPlanner(st, st, opts...)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	if s.indexer != nil && cfg.Index.ReindexOnStartup {
		if _, err := s.indexer.EnsureIndexed(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				_ = s.Close()
				return nil, ctxErr
			}
			slog.Warn("startup_index_failed", slog.String("error", err.Error()))
		}
	}
	return s, nil
}

func (s *Searcher) openIndex() error {
	idx, err := index.NewBleveIndex(s.cfg.Index.Path)
	if err != nil {
		return err
	}

	indexerOpts := []index.IndexerOption{
		index.WithBatchSize(s.cfg.Index.BatchSize),
		index.WithWorkers(s.cfg.Index.Workers),
	}
	if s.cfg.Index.Path != "" {
		indexerOpts = append(indexerOpts, index.WithLockDir(filepath.Dir(s.cfg.Index.Path)))
	}
	indexer, err := index.NewIndexer(idx, s.store, indexerOpts...)
	if err != nil {
		_ = idx.Close()
		return err
	}

	s.index = idx
	s.indexer = indexer
	return nil
}

// Page builds a page, using the configured default limit when limit is
// zero and capping it at the configured maximum.
func (s *Searcher) Page(offset, limit int) (shop.Page, error) {
	if limit == 0 {
		limit = s.cfg.Search.DefaultLimit
	}
	limit = min(limit, s.cfg.Search.MaxLimit)
	return shop.NewPage(offset, limit)
}

// Search answers q under the configured query timeout.
func (s *Searcher) Search(ctx context.Context, q shop.Query) (*shop.Result, error) {
	if d := s.cfg.QueryTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return s.planner.Query(ctx, q)
}

// Get returns one shop by id.
func (s *Searcher) Get(ctx context.Context, id int64) (shop.Record, error) {
	byID, err := s.store.GetByIDs(ctx, []int64{id})
	if err != nil {
		return shop.Record{}, err
	}
	r, ok := byID[id]
	if !ok {
		return shop.Record{}, shoperrors.ValidationError(fmt.Sprintf("shop %d does not exist", id), nil)
	}
	return r, nil
}

// IndexEnabled reports whether text queries can use the full-text index.
func (s *Searcher) IndexEnabled() bool {
	return s.index != nil
}

// EnsureIndexed populates the index if it is empty.
func (s *Searcher) EnsureIndexed(ctx context.Context) (*index.Stats, error) {
	if s.indexer == nil {
		return nil, errIndexDisabled()
	}
	return s.indexer.EnsureIndexed(ctx)
}

// Rebuild clears the index and repopulates it from the store.
func (s *Searcher) Rebuild(ctx context.Context) (*index.Stats, error) {
	if s.indexer == nil {
		return nil, errIndexDisabled()
	}
	return s.indexer.Rebuild(ctx)
}

// Seed loads fixture shops into the store and, when the index is enabled,
// indexes the inserted shops.
func (s *Searcher) Seed(ctx context.Context, f *store.Fixture) ([]int64, error) {
	ids, err := s.store.Seed(ctx, f)
	if err != nil {
		return nil, err
	}
	if s.index == nil || len(ids) == 0 {
		return ids, nil
	}

	byID, err := s.store.GetByIDs(ctx, ids)
	if err != nil {
		return ids, err
	}
	records := make([]shop.Record, 0, len(byID))
	for _, r := range byID {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	if err := s.index.Index(ctx, records); err != nil {
		return ids, shoperrors.New(shoperrors.ErrCodeIndexFailed, "seeded shops could not be indexed", err).
			WithSuggestion("Run 'shopsearch index --force' to rebuild the index")
	}
	return ids, nil
}

// DeleteShop removes a shop from the store and the index.
func (s *Searcher) DeleteShop(ctx context.Context, id int64) error {
	if err := s.store.DeleteShop(ctx, id); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.Delete(ctx, []int64{id}); err != nil {
			slog.Warn("index_delete_failed", slog.Int64("id", id), slog.String("error", err.Error()))
		}
	}
	return nil
}

// Metrics returns the telemetry collector, or nil when telemetry is off.
func (s *Searcher) Metrics() *telemetry.QueryMetrics {
	return s.metrics
}

// MetricsStore returns the persisted telemetry of the store database.
func (s *Searcher) MetricsStore() (*telemetry.SQLiteMetricsStore, error) {
	return telemetry.NewSQLiteMetricsStore(s.store.DB())
}

// Close flushes telemetry and releases the index and the store.
func (s *Searcher) Close() error {
	var errs []error
	if s.metrics != nil {
		if err := s.metrics.Close(); err != nil {
			errs = append(errs, fmt.Errorf("flush telemetry: %w", err))
		}
	}
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close index: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

func errIndexDisabled() error {
	return shoperrors.ConfigError("full-text index is disabled", nil).
		WithSuggestion("Set index.enabled: true or SHOPSEARCH_INDEX_ENABLED=true")
}
