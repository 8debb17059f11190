package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

// PriceEntry is one effective-dated price master row
type PriceEntry struct {
	ItemID        entities.ItemID
	UnitPrice     decimal.Decimal
	EffectiveDate time.Time
}

// PriceRepository provides effective-dated unit prices
type PriceRepository interface {
	// GetCurrentPrice returns the most recent price effective on or before
	// date. ok is false when the item has no such price.
	GetCurrentPrice(ctx context.Context, itemID entities.ItemID, date time.Time) (price decimal.Decimal, ok bool, err error)
	LoadPrices(ctx context.Context, prices []PriceEntry) error
}
