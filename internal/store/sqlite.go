// Package store is the relational shop store: the source of truth for shop
// records and the fallback query engine.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3" // CGO SQLite driver, opt-in via storage.driver
	_ "modernc.org/sqlite"          // Pure Go SQLite driver (no CGO)

	shoperrors "github.com/Aman-CERP/shopsearch/internal/errors"
	"github.com/Aman-CERP/shopsearch/internal/shop"
	"github.com/Aman-CERP/shopsearch/internal/telemetry"
)

// Supported database/sql driver names.
const (
	DriverModernc = "sqlite"
	DriverCGO     = "sqlite3"
)

// SQLiteStore holds shops, products and categories in SQLite.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	driver string
	closed bool
}

// validateSQLiteIntegrity checks an existing database file before opening.
// Returns nil if valid or absent, error describing corruption if not.
func validateSQLiteIntegrity(driver, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// Open opens the shop store at path with the given driver, creating the
// schema if needed. If path is empty, an in-memory database is used.
// A corrupted database is reported, never cleared: it holds the only copy
// of the shops.
func Open(driver, path string) (*SQLiteStore, error) {
	if driver == "" {
		driver = DriverModernc
	}
	if driver != DriverModernc && driver != DriverCGO {
		return nil, shoperrors.ConfigError(fmt.Sprintf("unsupported storage driver %q", driver), nil).
			WithSuggestion("Use 'sqlite' or 'sqlite3'")
	}

	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, shoperrors.New(shoperrors.ErrCodeStorageUnavailable,
				fmt.Sprintf("failed to create directory %s", dir), err)
		}
		if err := validateSQLiteIntegrity(driver, path); err != nil {
			return nil, shoperrors.New(shoperrors.ErrCodeStorageUnavailable, "shop database failed integrity check", err).
				WithDetail("path", path)
		}
		dsn = path
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, shoperrors.New(shoperrors.ErrCodeStorageUnavailable, "failed to open database", err)
	}

	// Single connection: one writer, and one shared :memory: database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, shoperrors.New(shoperrors.ErrCodeStorageUnavailable, "failed to set pragma", err).
				WithDetail("pragma", pragma)
		}
	}

	s := &SQLiteStore{db: db, path: path, driver: driver}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, shoperrors.New(shoperrors.ErrCodeStorageUnavailable, "failed to initialize schema", err)
	}

	slog.Debug("store_opened",
		slog.String("driver", driver),
		slog.String("path", dsn))
	return s, nil
}

// initSchema creates the shop tables, the derived-count view and the
// telemetry tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS shops (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL CHECK (length(name) BETWEEN 1 AND 255),
		created_at TEXT NOT NULL,
		in_vacations INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_shops_created_at ON shops(created_at);

	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		shop_id INTEGER NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
		name TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_products_shop ON products(shop_id);

	CREATE TABLE IF NOT EXISTS products_categories (
		product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
		PRIMARY KEY (product_id, category_id)
	);

	-- Derived counts are computed on read, never stored
	CREATE VIEW IF NOT EXISTS shop_records AS
	SELECT
		s.id,
		s.name,
		s.created_at,
		s.in_vacations,
		(SELECT COUNT(*) FROM products p WHERE p.shop_id = s.id) AS nb_products,
		(SELECT COUNT(DISTINCT pc.category_id)
			FROM products_categories pc
			JOIN products p ON pc.product_id = p.id
			WHERE p.shop_id = s.id) AS nb_categories
	FROM shops s;
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return telemetry.InitTelemetrySchema(s.db)
}

// DB returns the underlying connection pool, shared with telemetry.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

const recordColumns = "id, name, created_at, in_vacations, nb_products, nb_categories"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (shop.Record, error) {
	var (
		r         shop.Record
		createdAt string
	)
	if err := row.Scan(&r.ID, &r.Name, &createdAt, &r.InVacations, &r.NbProducts, &r.NbCategories); err != nil {
		return shop.Record{}, err
	}
	d, err := shop.ParseDate(createdAt)
	if err != nil {
		return shop.Record{}, fmt.Errorf("shop %d has malformed created_at %q: %w", r.ID, createdAt, err)
	}
	r.CreatedAt = d
	return r, nil
}

func (s *SQLiteStore) checkOpen() error {
	if s.closed {
		return shoperrors.New(shoperrors.ErrCodeStorageUnavailable, "store is closed", nil)
	}
	return nil
}

// ListByID returns one page of shops in identifier order and the total count.
func (s *SQLiteStore) ListByID(ctx context.Context, page shop.Page) ([]shop.Record, int, error) {
	return s.Filter(ctx, searchCriteriaAll, shop.SortID, page)
}

// GetByIDs returns the shops with the given identifiers. Unknown ids are
// absent from the map.
func (s *SQLiteStore) GetByIDs(ctx context.Context, ids []int64) (map[int64]shop.Record, error) {
	out := make(map[int64]shop.Record, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM shop_records WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, storageErr(ctx, "failed to load shops", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, storageErr(ctx, "failed to scan shop", err)
		}
		out[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(ctx, "failed to load shops", err)
	}
	return out, nil
}

// AllIDs returns every shop identifier in ascending order.
func (s *SQLiteStore) AllIDs(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM shops ORDER BY id")
	if err != nil {
		return nil, storageErr(ctx, "failed to list shop ids", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr(ctx, "failed to scan shop id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(ctx, "failed to list shop ids", err)
	}
	return ids, nil
}

// DeleteShop removes a shop with its products.
func (s *SQLiteStore) DeleteShop(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM shops WHERE id = ?", id)
	if err != nil {
		return storageErr(ctx, "failed to delete shop", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shoperrors.ValidationError(fmt.Sprintf("shop %d does not exist", id), nil)
	}
	return nil
}

// Close checkpoints the WAL and closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.path != "" {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return s.db.Close()
}

// storageErr wraps a database failure. Context errors pass through so
// callers can tell cancellation from failure.
func storageErr(ctx context.Context, msg string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return shoperrors.StorageError(msg, err)
}
