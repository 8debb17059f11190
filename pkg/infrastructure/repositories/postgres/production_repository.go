package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

const txColumns = `transaction_id, item_id, transaction_type, quantity, unit_price, total_amount,
	reference_number, notes, transaction_date, status, created_by, created_at`

type lockedItem struct {
	code     string
	name     string
	stock    decimal.Decimal
	isActive bool
}

// CommitProduction writes a batch in one transaction. Affected item rows are
// locked in id order, then re-validated before anything is written.
func (s *Store) CommitProduction(ctx context.Context, commit entities.ProductionCommit) ([]entities.ProductionTransaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, persistenceErr("begin production", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	locked, err := lockItems(ctx, tx, affectedIDs(commit))
	if err != nil {
		return nil, persistenceErr("lock items", err)
	}

	for i, line := range commit.Transactions {
		item, exists := locked[line.ItemID]
		if !exists {
			return nil, &entities.ItemNotFoundError{Line: i + 1, ItemID: line.ItemID}
		}
		if !item.isActive {
			return nil, &entities.InactiveItemError{Line: i + 1, ItemID: line.ItemID}
		}
	}

	var shortages []entities.MaterialShortage
	for _, c := range commit.Consumption {
		item, exists := locked[c.ItemID]
		if !exists {
			return nil, fmt.Errorf("consumed material %d: %w", c.ItemID, entities.ErrNotFound)
		}
		available := item.stock
		if available.IsNegative() {
			available = decimal.Zero
		}
		if available.LessThan(c.Quantity) {
			shortages = append(shortages, entities.MaterialShortage{
				ItemID:    c.ItemID,
				Code:      item.code,
				Name:      item.name,
				Required:  c.Quantity,
				Available: available,
				Shortage:  c.Quantity.Sub(available),
			})
		}
	}
	if len(shortages) > 0 {
		return nil, &entities.InsufficientStockError{Shortages: shortages}
	}

	written := make([]entities.ProductionTransaction, 0, len(commit.Transactions))
	for _, line := range commit.Transactions {
		date, err := time.Parse(entities.DateLayout, line.TransactionDate)
		if err != nil {
			return nil, &entities.ValidationError{
				Message: "invalid transaction date",
				Details: []string{fmt.Sprintf("transaction_date %q must be formatted as YYYY-MM-DD", line.TransactionDate)},
			}
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO inventory_transactions
				(item_id, transaction_type, quantity, unit_price, total_amount,
				 reference_number, notes, transaction_date, status, created_by)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			RETURNING transaction_id, created_at
		`, int64(line.ItemID), line.TransactionType, line.Quantity, line.UnitPrice, line.TotalAmount,
			line.ReferenceNo, line.Notes, date, line.Status, line.CreatedBy,
		).Scan(&line.TransactionID, &line.CreatedAt)
		if err != nil {
			return nil, persistenceErr("insert production transaction", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE items SET current_stock = current_stock + $2, updated_at = now()
			WHERE item_id = $1
		`, int64(line.ItemID), line.Quantity); err != nil {
			return nil, persistenceErr("increment stock", err)
		}
		written = append(written, line)
	}

	for _, c := range commit.Consumption {
		if _, err := tx.Exec(ctx, `
			UPDATE items SET current_stock = current_stock - $2, updated_at = now()
			WHERE item_id = $1
		`, int64(c.ItemID), c.Quantity); err != nil {
			return nil, persistenceErr("consume material", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistenceErr("commit production", err)
	}

	s.logger.Info("production committed",
		zap.Int("transactions", len(written)),
		zap.Int("materials", len(commit.Consumption)),
	)
	return written, nil
}

func affectedIDs(commit entities.ProductionCommit) []int64 {
	seen := make(map[entities.ItemID]bool)
	var ids []int64
	add := func(id entities.ItemID) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, int64(id))
		}
	}
	for _, t := range commit.Transactions {
		add(t.ItemID)
	}
	for _, c := range commit.Consumption {
		add(c.ItemID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func lockItems(ctx context.Context, tx pgx.Tx, ids []int64) (map[entities.ItemID]lockedItem, error) {
	rows, err := tx.Query(ctx, `
		SELECT item_id, item_code, item_name, current_stock, is_active
		FROM items
		WHERE item_id = ANY($1)
		ORDER BY item_id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locked := make(map[entities.ItemID]lockedItem, len(ids))
	for rows.Next() {
		var (
			id   int64
			item lockedItem
		)
		if err := rows.Scan(&id, &item.code, &item.name, &item.stock, &item.isActive); err != nil {
			return nil, err
		}
		locked[entities.ItemID(id)] = item
	}
	return locked, rows.Err()
}

// ListTransactions returns the newest production transactions first
func (s *Store) ListTransactions(ctx context.Context, limit int) ([]entities.ProductionTransaction, error) {
	query := `SELECT ` + txColumns + ` FROM inventory_transactions
		WHERE transaction_type = $1
		ORDER BY transaction_id DESC`
	args := []any{entities.TxTypeProductionIn}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, persistenceErr("list transactions", err)
	}
	defer rows.Close()

	var txs []entities.ProductionTransaction
	for rows.Next() {
		var (
			t      entities.ProductionTransaction
			itemID int64
			date   time.Time
		)
		if err := rows.Scan(&t.TransactionID, &itemID, &t.TransactionType, &t.Quantity, &t.UnitPrice, &t.TotalAmount,
			&t.ReferenceNo, &t.Notes, &date, &t.Status, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, persistenceErr("scan transaction", err)
		}
		t.ItemID = entities.ItemID(itemID)
		t.TransactionDate = date.Format(entities.DateLayout)
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("list transactions", err)
	}
	return txs, nil
}
