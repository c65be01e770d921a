package store

import (
	"context"
	"database/sql"

	"github.com/Aman-CERP/shopsearch/internal/search"
	"github.com/Aman-CERP/shopsearch/internal/shop"
)

// Filter evaluates criteria with exact and substring predicates and returns
// one page in the requested order plus the total match count. The count and
// the page come from the same read transaction.
func (s *SQLiteStore) Filter(ctx context.Context, criteria search.Criteria, sortKey shop.SortKey, page shop.Page) ([]shop.Record, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, 0, err
	}

	pred := buildPredicate(criteria)
	order, orderArgs := orderBy(sortKey, criteria.NameContains)

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, storageErr(ctx, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var total int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM shop_records"+pred.where(), pred.args...).Scan(&total); err != nil {
		return nil, 0, storageErr(ctx, "failed to count shops", err)
	}

	items := make([]shop.Record, 0, min(page.Limit, max(total-page.Offset, 0)))
	if page.Offset < total {
		args := append(append(append([]any{}, pred.args...), orderArgs...), page.Limit, page.Offset)
		rows, err := tx.QueryContext(ctx,
			"SELECT "+recordColumns+" FROM shop_records"+pred.where()+order+" LIMIT ? OFFSET ?", args...)
		if err != nil {
			return nil, 0, storageErr(ctx, "failed to query shops", err)
		}
		defer rows.Close()

		for rows.Next() {
			r, err := scanRecord(rows)
			if err != nil {
				return nil, 0, storageErr(ctx, "failed to scan shop", err)
			}
			items = append(items, r)
		}
		if err := rows.Err(); err != nil {
			return nil, 0, storageErr(ctx, "failed to query shops", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, storageErr(ctx, "failed to finish read", err)
	}
	return items, total, nil
}

var (
	_ search.FallbackEngine = (*SQLiteStore)(nil)
	_ search.RecordReader   = (*SQLiteStore)(nil)
)
