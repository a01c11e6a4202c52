package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore reads catalog items from Postgres.
type PgStore struct {
	Pool *pgxpool.Pool
}

const itemColumns = `id, sku, name, unit_price, tax_rate_percent, before_tax_price, after_tax_price, active`

// GetItem fetches one item by id.
func (s *PgStore) GetItem(ctx context.Context, id string) (Item, error) {
	q := fmt.Sprintf(`SELECT %s FROM catalog_items WHERE id = $1`, itemColumns)
	return s.scanItem(s.Pool.QueryRow(ctx, q, id))
}

// GetItemBySKU fetches one item by SKU.
func (s *PgStore) GetItemBySKU(ctx context.Context, sku string) (Item, error) {
	q := fmt.Sprintf(`SELECT %s FROM catalog_items WHERE sku = $1`, itemColumns)
	return s.scanItem(s.Pool.QueryRow(ctx, q, sku))
}

// ListItems returns a page of active items, optionally filtered by a
// case-insensitive name or SKU match, together with the total count.
func (s *PgStore) ListItems(ctx context.Context, query string, limit, offset int) ([]Item, int64, error) {
	pattern := "%" + query + "%"
	var total int64
	err := s.Pool.QueryRow(ctx,
		`SELECT count(*) FROM catalog_items WHERE active AND (name ILIKE $1 OR sku ILIKE $1)`,
		pattern,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf(`
		SELECT %s FROM catalog_items
		WHERE active AND (name ILIKE $1 OR sku ILIKE $1)
		ORDER BY name
		LIMIT $2 OFFSET $3`, itemColumns)
	rows, err := s.Pool.Query(ctx, q, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Item, 0, limit)
	for rows.Next() {
		item, err := s.scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PgStore) scanItem(row rowScanner) (Item, error) {
	var item Item
	err := row.Scan(
		&item.ID,
		&item.SKU,
		&item.Name,
		&item.UnitPrice,
		&item.TaxRatePercent,
		&item.BeforeTaxPrice,
		&item.AfterTaxPrice,
		&item.Active,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	if err != nil {
		return Item{}, err
	}
	return item, nil
}
