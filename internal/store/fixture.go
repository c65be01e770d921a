package store

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	shoperrors "github.com/Aman-CERP/shopsearch/internal/errors"
	"github.com/Aman-CERP/shopsearch/internal/shop"
)

// Fixture is a YAML document of shops to load into the store.
type Fixture struct {
	Categories []FixtureCategory `yaml:"categories"`
	Shops      []FixtureShop     `yaml:"shops"`
}

// FixtureCategory is a product category.
type FixtureCategory struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// FixtureShop is one shop with its products.
type FixtureShop struct {
	ID          int64            `yaml:"id,omitempty"`
	Name        string           `yaml:"name"`
	CreatedAt   string           `yaml:"created_at"`
	InVacations bool             `yaml:"in_vacations"`
	Products    []FixtureProduct `yaml:"products,omitempty"`
}

// FixtureProduct is a product and the categories it belongs to.
type FixtureProduct struct {
	Name       string  `yaml:"name"`
	Categories []int64 `yaml:"categories,omitempty"`
}

// LoadFixture reads and validates a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, shoperrors.New(shoperrors.ErrCodeFixtureInvalid, "cannot read fixture", err).
			WithDetail("path", path)
	}
	return ParseFixture(data)
}

// ParseFixture decodes and validates fixture YAML.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, shoperrors.New(shoperrors.ErrCodeFixtureInvalid, "invalid fixture YAML", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks names, dates and category references.
func (f *Fixture) Validate() error {
	categories := make(map[int64]bool, len(f.Categories))
	for _, c := range f.Categories {
		if c.ID <= 0 || strings.TrimSpace(c.Name) == "" {
			return fixtureError("category needs a positive id and a name", c.Name)
		}
		categories[c.ID] = true
	}

	for _, s := range f.Shops {
		n := utf8.RuneCountInString(s.Name)
		if strings.TrimSpace(s.Name) == "" || n > shop.MaxNameLength {
			return fixtureError(fmt.Sprintf("shop name must be 1 to %d characters", shop.MaxNameLength), s.Name)
		}
		if _, err := shop.ParseDate(s.CreatedAt); err != nil {
			return fixtureError("shop created_at must be YYYY-MM-DD", s.Name)
		}
		for _, p := range s.Products {
			if strings.TrimSpace(p.Name) == "" {
				return fixtureError("product needs a name", s.Name)
			}
			for _, id := range p.Categories {
				if !categories[id] {
					return fixtureError(fmt.Sprintf("unknown category %d", id), s.Name)
				}
			}
		}
	}
	return nil
}

func fixtureError(msg, name string) error {
	return shoperrors.New(shoperrors.ErrCodeFixtureInvalid, msg, nil).WithDetail("name", name)
}

// Seed loads f in one transaction and returns the ids of the inserted shops.
func (s *SQLiteStore) Seed(ctx context.Context, f *Fixture) ([]int64, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr(ctx, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range f.Categories {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO categories (id, name) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET name = excluded.name",
			c.ID, c.Name); err != nil {
			return nil, storageErr(ctx, "failed to insert category", err)
		}
	}

	ids := make([]int64, 0, len(f.Shops))
	for _, fs := range f.Shops {
		created, _ := shop.ParseDate(fs.CreatedAt)

		var shopID any
		if fs.ID > 0 {
			shopID = fs.ID
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO shops (id, name, created_at, in_vacations) VALUES (?, ?, ?, ?)",
			shopID, fs.Name, shop.FormatDate(created), fs.InVacations)
		if err != nil {
			return nil, storageErr(ctx, fmt.Sprintf("failed to insert shop %q", fs.Name), err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, storageErr(ctx, "failed to read shop id", err)
		}
		ids = append(ids, id)

		for _, p := range fs.Products {
			res, err := tx.ExecContext(ctx, "INSERT INTO products (shop_id, name) VALUES (?, ?)", id, p.Name)
			if err != nil {
				return nil, storageErr(ctx, "failed to insert product", err)
			}
			productID, err := res.LastInsertId()
			if err != nil {
				return nil, storageErr(ctx, "failed to read product id", err)
			}
			for _, cid := range p.Categories {
				if _, err := tx.ExecContext(ctx,
					"INSERT OR IGNORE INTO products_categories (product_id, category_id) VALUES (?, ?)",
					productID, cid); err != nil {
					return nil, storageErr(ctx, "failed to link product category", err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr(ctx, "failed to commit fixture", err)
	}
	return ids, nil
}
