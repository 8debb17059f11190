package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
	"github.com/vsinha/bomcheck/pkg/domain/repositories"
)

// LoadPrices loads price master rows, keeping each item's history sorted by date
func (s *Store) LoadPrices(ctx context.Context, prices []repositories.PriceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[entities.ItemID]bool)
	for _, price := range prices {
		s.prices[price.ItemID] = append(s.prices[price.ItemID], price)
		touched[price.ItemID] = true
	}
	for id := range touched {
		history := s.prices[id]
		sort.SliceStable(history, func(i, j int) bool {
			return history[i].EffectiveDate.Before(history[j].EffectiveDate)
		})
	}
	return nil
}

// GetCurrentPrice returns the latest price effective on or before date,
// falling back to the item's own unit price
func (s *Store) GetCurrentPrice(ctx context.Context, itemID entities.ItemID, date time.Time) (decimal.Decimal, bool, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.prices[itemID]
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].EffectiveDate.After(date) {
			return history[i].UnitPrice, true, nil
		}
	}

	if index, exists := s.itemsMap[itemID]; exists && s.items[index].UnitPrice.Valid {
		return s.items[index].UnitPrice.Decimal, true, nil
	}
	return decimal.Zero, false, nil
}
