package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ItemID identifies an item in the item master
type ItemID int64

// Item represents an item master record as seen by the BOM engine
type Item struct {
	ItemID       ItemID              `json:"item_id"`
	Code         string              `json:"item_code"`
	Name         string              `json:"item_name"`
	Unit         string              `json:"unit"`
	CurrentStock decimal.Decimal     `json:"current_stock"`
	IsActive     bool                `json:"is_active"`
	UnitPrice    decimal.NullDecimal `json:"unit_price"`
}

// NewItem creates a validated Item
func NewItem(id ItemID, code, name, unit string, currentStock decimal.Decimal, isActive bool) (*Item, error) {
	if id <= 0 {
		return nil, fmt.Errorf("item id must be positive, got %d", id)
	}
	if code == "" {
		return nil, fmt.Errorf("item code cannot be empty")
	}
	if currentStock.IsNegative() {
		return nil, fmt.Errorf("current stock cannot be negative, got %s", currentStock)
	}
	if unit == "" {
		unit = "EA"
	}

	return &Item{
		ItemID:       id,
		Code:         code,
		Name:         name,
		Unit:         unit,
		CurrentStock: currentStock,
		IsActive:     isActive,
	}, nil
}

// WithUnitPrice returns a copy of the item carrying the given unit price
func (i Item) WithUnitPrice(price decimal.Decimal) Item {
	i.UnitPrice = decimal.NewNullDecimal(price)
	return i
}

// AvailableStock returns the current stock clamped at zero
func (i Item) AvailableStock() decimal.Decimal {
	if i.CurrentStock.IsNegative() {
		return decimal.Zero
	}
	return i.CurrentStock
}

// ItemIndex maps item ids to items
type ItemIndex map[ItemID]Item

// NewItemIndex builds an index from a slice of items
func NewItemIndex(items []Item) ItemIndex {
	index := make(ItemIndex, len(items))
	for _, item := range items {
		index[item.ItemID] = item
	}
	return index
}
