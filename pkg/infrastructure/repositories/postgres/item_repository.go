package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

const itemColumns = `item_id, item_code, item_name, unit, current_stock, is_active, unit_price`

func scanItem(row pgx.Row) (entities.Item, error) {
	var (
		item entities.Item
		id   int64
	)
	if err := row.Scan(&id, &item.Code, &item.Name, &item.Unit, &item.CurrentStock, &item.IsActive, &item.UnitPrice); err != nil {
		return entities.Item{}, err
	}
	item.ItemID = entities.ItemID(id)
	return item, nil
}

// GetItemsByIDs fetches every existing item among ids in one round trip
func (s *Store) GetItemsByIDs(ctx context.Context, ids []entities.ItemID) ([]entities.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE item_id = ANY($1)
		ORDER BY item_id
	`, toInt64s(ids))
	if err != nil {
		return nil, persistenceErr("get items", err)
	}
	defer rows.Close()

	items := make([]entities.Item, 0, len(ids))
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, persistenceErr("scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("get items", err)
	}
	return items, nil
}

func (s *Store) GetAllItems(ctx context.Context) ([]entities.Item, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+itemColumns+` FROM items ORDER BY item_id`)
	if err != nil {
		return nil, persistenceErr("list items", err)
	}
	defer rows.Close()

	var items []entities.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, persistenceErr("scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("list items", err)
	}
	return items, nil
}

// LoadItems upserts items by id and moves the id sequence past the largest one
func (s *Store) LoadItems(ctx context.Context, items []entities.Item) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return persistenceErr("begin load items", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, item := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO items (item_id, item_code, item_name, unit, current_stock, is_active, unit_price)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (item_id) DO UPDATE SET
				item_code = EXCLUDED.item_code,
				item_name = EXCLUDED.item_name,
				unit = EXCLUDED.unit,
				current_stock = EXCLUDED.current_stock,
				is_active = EXCLUDED.is_active,
				unit_price = EXCLUDED.unit_price,
				updated_at = now()
		`, int64(item.ItemID), item.Code, item.Name, item.Unit, item.CurrentStock, item.IsActive, item.UnitPrice); err != nil {
			return persistenceErr(fmt.Sprintf("upsert item %s", item.Code), err)
		}
	}

	if _, err := tx.Exec(ctx, `
		SELECT setval(pg_get_serial_sequence('items', 'item_id'), COALESCE(MAX(item_id), 1))
		FROM items
	`); err != nil {
		return persistenceErr("advance item sequence", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return persistenceErr("commit load items", err)
	}
	s.logger.Debug("items loaded", zap.Int("count", len(items)))
	return nil
}
