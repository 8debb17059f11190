package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Surcharge rates applied once at the root of a cost roll-up
var (
	LaborRate    = decimal.RequireFromString("0.10")
	OverheadRate = decimal.RequireFromString("0.05")
)

// CostNode is one node of a priced BOM tree
type CostNode struct {
	ItemID       ItemID              `json:"item_id"`
	Code         string              `json:"item_code"`
	Name         string              `json:"item_name"`
	Unit         string              `json:"unit"`
	Level        int                 `json:"level"`
	Quantity     decimal.Decimal     `json:"quantity"`
	UnitPrice    decimal.NullDecimal `json:"unit_price"`
	SubtotalCost decimal.Decimal     `json:"subtotal_cost"`
	Children     []*CostNode         `json:"children,omitempty"`
}

// IsLeaf reports whether the node has no components
func (n *CostNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// Walk visits the node and its descendants depth-first, pre-order
func (n *CostNode) Walk(fn func(*CostNode)) {
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// MissingPrice records a component without a price on the effective date
type MissingPrice struct {
	ItemID ItemID `json:"item_id"`
	Code   string `json:"item_code"`
	Name   string `json:"item_name"`
	Level  int    `json:"level"`
}

// CostTree is the result of a bottom-up cost roll-up
type CostTree struct {
	ItemID          ItemID          `json:"item_id"`
	Code            string          `json:"item_code"`
	Name            string          `json:"item_name"`
	Root            *CostNode       `json:"bom_tree"`
	EffectiveDate   string          `json:"effective_date"`
	MaterialCost    decimal.Decimal `json:"total_material_cost"`
	LaborCost       decimal.Decimal `json:"total_labor_cost"`
	OverheadCost    decimal.Decimal `json:"total_overhead_cost"`
	CalculatedPrice decimal.Decimal `json:"calculated_price"`
	MissingPrices   []MissingPrice  `json:"missing_prices"`
	// IsLowerBound is set when missing prices were counted as zero
	IsLowerBound bool      `json:"is_lower_bound"`
	CalculatedAt time.Time `json:"calculation_date"`
}

// ApplySurcharges sets material, labor, overhead and calculated price from the root subtotal
func (t *CostTree) ApplySurcharges(includeLabor, includeOverhead bool) {
	t.MaterialCost = t.Root.SubtotalCost
	t.LaborCost = decimal.Zero
	t.OverheadCost = decimal.Zero
	if includeLabor {
		t.LaborCost = t.MaterialCost.Mul(LaborRate)
	}
	if includeOverhead {
		t.OverheadCost = t.MaterialCost.Mul(OverheadRate)
	}
	t.CalculatedPrice = t.MaterialCost.Add(t.LaborCost).Add(t.OverheadCost)
	t.IsLowerBound = len(t.MissingPrices) > 0
}
