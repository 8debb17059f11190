package entities

import (
	"github.com/shopspring/decimal"
)

// MaterialFeasibility compares one leaf material's requirement with its stock
type MaterialFeasibility struct {
	ItemID             ItemID          `json:"child_item_id"`
	Code               string          `json:"item_code"`
	Name               string          `json:"item_name"`
	Unit               string          `json:"unit"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	PerUnitRequirement decimal.Decimal `json:"bom_quantity_per_unit"`
	RequiredQuantity   decimal.Decimal `json:"required_quantity"`
	AvailableStock     decimal.Decimal `json:"available_stock"`
	Shortage           decimal.Decimal `json:"shortage"`
	Sufficient         bool            `json:"sufficient"`
	RequiredValue      decimal.Decimal `json:"required_value"`
	AvailableValue     decimal.Decimal `json:"available_value"`

	// MaxProducibleByThisItem is nil when the material does not limit production
	MaxProducibleByThisItem *decimal.Decimal `json:"max_producible_by_this_item"`
}

// NewMaterialFeasibility evaluates a material for the given production quantity
func NewMaterialFeasibility(material Item, perUnit, quantity decimal.Decimal) MaterialFeasibility {
	available := material.AvailableStock()
	required := perUnit.Mul(quantity)
	price := decimal.Zero
	if material.UnitPrice.Valid {
		price = material.UnitPrice.Decimal
	}

	return MaterialFeasibility{
		ItemID:                  material.ItemID,
		Code:                    material.Code,
		Name:                    material.Name,
		Unit:                    material.Unit,
		UnitPrice:               price,
		PerUnitRequirement:      perUnit,
		RequiredQuantity:        required,
		AvailableStock:          available,
		Shortage:                NonNegative(required.Sub(available)),
		Sufficient:              available.GreaterThanOrEqual(required),
		RequiredValue:           required.Mul(price),
		AvailableValue:          decimal.Min(required, available).Mul(price),
		MaxProducibleByThisItem: MaxProducible(available, perUnit),
	}
}

// MaxProducible returns floor(available / perUnit), or nil (unbounded) when
// perUnit is not positive
func MaxProducible(available, perUnit decimal.Decimal) *decimal.Decimal {
	if !perUnit.IsPositive() {
		return nil
	}
	count := NonNegative(available).Div(perUnit).Floor()
	return &count
}

// NonNegative clamps a value at zero
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// LessProducible reports whether a is a tighter limit than b. Nil means unbounded.
func LessProducible(a, b *decimal.Decimal) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.LessThan(*b)
}

// FeasibilityReport is the stock check of one finished item at one quantity
type FeasibilityReport struct {
	ItemID                ItemID                `json:"product_item_id"`
	Code                  string                `json:"item_code"`
	Name                  string                `json:"item_name"`
	Quantity              decimal.Decimal       `json:"production_quantity"`
	HasBOM                bool                  `json:"has_bom"`
	CanProduce            bool                  `json:"can_produce"`
	Materials             []MaterialFeasibility `json:"bom_items"`
	MaxProducibleQuantity *decimal.Decimal      `json:"max_producible_quantity"`
	Bottleneck            *MaterialFeasibility  `json:"bottleneck_item"`
	Summary               FeasibilitySummary    `json:"summary"`
}

// FeasibilitySummary carries the value-level totals of a feasibility report
type FeasibilitySummary struct {
	TotalItems          int             `json:"total_bom_items"`
	SufficientItems     int             `json:"sufficient_items"`
	InsufficientItems   int             `json:"insufficient_items"`
	TotalShortage       decimal.Decimal `json:"total_shortage"`
	TotalRequiredValue  decimal.Decimal `json:"total_required_value"`
	TotalAvailableValue decimal.Decimal `json:"total_available_value"`
	FulfillmentRate     decimal.Decimal `json:"fulfillment_rate"`
}

// AggregatedMaterial merges one leaf material across every line of a batch
type AggregatedMaterial struct {
	ItemID           ItemID          `json:"item_id"`
	Code             string          `json:"item_code"`
	Name             string          `json:"item_name"`
	Unit             string          `json:"unit"`
	RequiredQuantity decimal.Decimal `json:"required_quantity"`
	AvailableStock   decimal.Decimal `json:"available_stock"`
	// Shortage is the sum of the per-line shortages
	Shortage decimal.Decimal `json:"shortage"`
	// AggregateShortage is the shortfall of the summed requirement against
	// the one shared stock figure
	AggregateShortage       decimal.Decimal  `json:"aggregate_shortage"`
	MaxProducibleByThisItem *decimal.Decimal `json:"max_producible_by_this_item"`
	LineIndexes             []int            `json:"line_indexes"`
}

// Insufficient reports whether the batch as a whole overdraws this material
func (m AggregatedMaterial) Insufficient() bool {
	return m.AggregateShortage.IsPositive()
}

// AggregatedFeasibilityReport is the stock check of a whole production batch
type AggregatedFeasibilityReport struct {
	Lines      []FeasibilityReport  `json:"lines"`
	Materials  []AggregatedMaterial `json:"materials"`
	CanProduce bool                 `json:"can_produce"`
	Bottleneck *AggregatedMaterial  `json:"bottleneck_item"`
}

// InsufficientMaterials returns the merged materials the batch overdraws
func (r *AggregatedFeasibilityReport) InsufficientMaterials() []AggregatedMaterial {
	var short []AggregatedMaterial
	for _, m := range r.Materials {
		if m.Insufficient() {
			short = append(short, m)
		}
	}
	return short
}
