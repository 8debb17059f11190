package entities

import (
	"github.com/shopspring/decimal"
)

// WhereUsedEntry is one ancestor usage. QuantityPerUnit is the cumulative
// quantity of the child consumed by one unit of the ancestor.
type WhereUsedEntry struct {
	BOMID           int64           `json:"bom_id"`
	ParentItemID    ItemID          `json:"parent_item_id"`
	ParentCode      string          `json:"parent_item_code"`
	ParentName      string          `json:"parent_item_name"`
	QuantityPerUnit decimal.Decimal `json:"quantity_required"`
	Level           int             `json:"level_no"`
	UsagePath       string          `json:"usage_path"`
}

// WhereUsedSummary counts the ancestors of an item
type WhereUsedSummary struct {
	DirectParents  int `json:"direct_parents"`
	TotalAncestors int `json:"total_ancestors"`
	MaxLevel       int `json:"max_level"`
}

// WhereUsedResult is the reverse BOM of an item
type WhereUsedResult struct {
	Child     Item             `json:"child_item"`
	WhereUsed []WhereUsedEntry `json:"where_used"`
	Summary   WhereUsedSummary `json:"summary"`
}

// Summarize fills the summary from the entries
func (r *WhereUsedResult) Summarize() {
	ancestors := make(map[ItemID]bool)
	direct := make(map[ItemID]bool)
	r.Summary = WhereUsedSummary{}
	for _, entry := range r.WhereUsed {
		if entry.Level == 1 {
			direct[entry.ParentItemID] = true
		}
		ancestors[entry.ParentItemID] = true
		if entry.Level > r.Summary.MaxLevel {
			r.Summary.MaxLevel = entry.Level
		}
	}
	r.Summary.DirectParents = len(direct)
	r.Summary.TotalAncestors = len(ancestors)
}
