package entities

import (
	"sort"

	"github.com/shopspring/decimal"
)

// RequirementVector maps leaf items to the quantity needed for one unit of a
// root item. It depends only on the BOM graph, never on a production quantity.
type RequirementVector map[ItemID]decimal.Decimal

// UnitRequirement returns the vector of an item with no BOM: one unit of itself
func UnitRequirement(id ItemID) RequirementVector {
	return RequirementVector{id: decimal.NewFromInt(1)}
}

// Get returns the per-unit requirement for an item, zero if absent
func (v RequirementVector) Get(id ItemID) decimal.Decimal {
	if qty, ok := v[id]; ok {
		return qty
	}
	return decimal.Zero
}

// ItemIDs returns the leaf ids in ascending order
func (v RequirementVector) ItemIDs() []ItemID {
	ids := make([]ItemID, 0, len(v))
	for id := range v {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Scale returns a new vector with every requirement multiplied by quantity
func (v RequirementVector) Scale(quantity decimal.Decimal) RequirementVector {
	scaled := make(RequirementVector, len(v))
	for id, qty := range v {
		scaled[id] = qty.Mul(quantity)
	}
	return scaled
}

// AddScaled accumulates other * factor into v
func (v RequirementVector) AddScaled(other RequirementVector, factor decimal.Decimal) {
	for id, qty := range other {
		v[id] = v.Get(id).Add(qty.Mul(factor))
	}
}

// Clone returns an independent copy of the vector
func (v RequirementVector) Clone() RequirementVector {
	return v.Scale(decimal.NewFromInt(1))
}

// Equal reports whether both vectors hold the same leaves and quantities
func (v RequirementVector) Equal(other RequirementVector) bool {
	if len(v) != len(other) {
		return false
	}
	for id, qty := range v {
		otherQty, ok := other[id]
		if !ok || !qty.Equal(otherQty) {
			return false
		}
	}
	return true
}

// IsSelfOnly reports whether the vector is the unit requirement of root,
// i.e. root has no BOM of its own
func (v RequirementVector) IsSelfOnly(root ItemID) bool {
	return len(v) == 1 && v.Get(root).Equal(decimal.NewFromInt(1))
}
