package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BOMEdge represents one parent -> child line of a Bill of Materials:
// producing one unit of the parent consumes QuantityPerUnit units of the child.
type BOMEdge struct {
	BOMID           int64           `json:"bom_id"`
	ParentItemID    ItemID          `json:"parent_item_id"`
	ChildItemID     ItemID          `json:"child_item_id"`
	QuantityPerUnit decimal.Decimal `json:"quantity_required"`
	IsActive        bool            `json:"is_active"`

	// Child and Parent are the joined items, when the store provides them
	Child  *Item `json:"child_item,omitempty"`
	Parent *Item `json:"parent_item,omitempty"`
}

// NewBOMEdge creates a validated, active BOMEdge
func NewBOMEdge(parentID, childID ItemID, qtyPer decimal.Decimal) (*BOMEdge, error) {
	if parentID <= 0 {
		return nil, fmt.Errorf("parent item id must be positive, got %d", parentID)
	}
	if childID <= 0 {
		return nil, fmt.Errorf("child item id must be positive, got %d", childID)
	}
	if parentID == childID {
		return nil, fmt.Errorf("parent and child items cannot be the same: %d", parentID)
	}
	if !qtyPer.IsPositive() {
		return nil, fmt.Errorf("quantity per unit must be positive, got %s", qtyPer)
	}

	return &BOMEdge{
		ParentItemID:    parentID,
		ChildItemID:     childID,
		QuantityPerUnit: qtyPer,
		IsActive:        true,
	}, nil
}
