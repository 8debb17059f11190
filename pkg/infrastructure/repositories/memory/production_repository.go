package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

// CommitProduction applies a production batch under the write lock. Every
// check runs before the first mutation, so a failed commit changes nothing.
func (s *Store) CommitProduction(ctx context.Context, commit entities.ProductionCommit) ([]entities.ProductionTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, tx := range commit.Transactions {
		index, exists := s.itemsMap[tx.ItemID]
		if !exists {
			return nil, &entities.ItemNotFoundError{Line: i + 1, ItemID: tx.ItemID}
		}
		if !s.items[index].IsActive {
			return nil, &entities.InactiveItemError{Line: i + 1, ItemID: tx.ItemID}
		}
	}

	var shortages []entities.MaterialShortage
	for _, consumption := range commit.Consumption {
		index, exists := s.itemsMap[consumption.ItemID]
		if !exists {
			return nil, fmt.Errorf("consumed material %d: %w", consumption.ItemID, entities.ErrNotFound)
		}
		material := s.items[index]
		available := material.AvailableStock()
		if available.LessThan(consumption.Quantity) {
			shortages = append(shortages, entities.MaterialShortage{
				ItemID:    material.ItemID,
				Code:      material.Code,
				Name:      material.Name,
				Required:  consumption.Quantity,
				Available: available,
				Shortage:  consumption.Quantity.Sub(available),
			})
		}
	}
	if len(shortages) > 0 {
		return nil, &entities.InsufficientStockError{Shortages: shortages}
	}

	now := time.Now().UTC()
	written := make([]entities.ProductionTransaction, 0, len(commit.Transactions))
	for _, tx := range commit.Transactions {
		s.nextTxID++
		tx.TransactionID = s.nextTxID
		tx.CreatedAt = now
		s.transactions = append(s.transactions, tx)
		written = append(written, tx)

		index := s.itemsMap[tx.ItemID]
		s.items[index].CurrentStock = s.items[index].CurrentStock.Add(tx.Quantity)
	}
	for _, consumption := range commit.Consumption {
		index := s.itemsMap[consumption.ItemID]
		s.items[index].CurrentStock = s.items[index].CurrentStock.Sub(consumption.Quantity)
	}

	return written, nil
}

// ListTransactions returns committed transactions newest first
func (s *Store) ListTransactions(ctx context.Context, limit int) ([]entities.ProductionTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := make([]entities.ProductionTransaction, len(s.transactions))
	copy(txs, s.transactions)
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].TransactionID > txs[j].TransactionID })
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}
