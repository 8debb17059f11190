package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
	"github.com/vsinha/bomcheck/pkg/domain/repositories"
)

// GetCurrentPrice reads the latest price_master row effective on or before
// date, falling back to items.unit_price
func (s *Store) GetCurrentPrice(ctx context.Context, itemID entities.ItemID, date time.Time) (decimal.Decimal, bool, error) {
	var price decimal.Decimal
	err := s.pool.QueryRow(ctx, `
		SELECT unit_price
		FROM price_master
		WHERE item_id = $1 AND effective_date <= $2
		ORDER BY effective_date DESC
		LIMIT 1
	`, int64(itemID), date).Scan(&price)
	switch {
	case err == nil:
		return price, true, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return decimal.Zero, false, persistenceErr("get price", err)
	}

	var fallback decimal.NullDecimal
	err = s.pool.QueryRow(ctx, `SELECT unit_price FROM items WHERE item_id = $1`, int64(itemID)).Scan(&fallback)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, persistenceErr("get item price", err)
	}
	if !fallback.Valid {
		return decimal.Zero, false, nil
	}
	return fallback.Decimal, true, nil
}

// LoadPrices upserts price master rows keyed by item and effective date
func (s *Store) LoadPrices(ctx context.Context, prices []repositories.PriceEntry) error {
	batch := &pgx.Batch{}
	for _, p := range prices {
		batch.Queue(`
			INSERT INTO price_master (item_id, unit_price, effective_date)
			VALUES ($1,$2,$3)
			ON CONFLICT (item_id, effective_date) DO UPDATE SET unit_price = EXCLUDED.unit_price
		`, int64(p.ItemID), p.UnitPrice, p.EffectiveDate)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return persistenceErr("begin load prices", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return persistenceErr("load prices", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return persistenceErr("commit load prices", err)
	}
	return nil
}
