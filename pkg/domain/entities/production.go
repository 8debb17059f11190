package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types and statuses written by production commits
const (
	TxTypeProductionIn = "PRODUCTION_IN"
	TxStatusCompleted  = "COMPLETED"
)

// DateLayout is the wire format of transaction and effective dates
const DateLayout = "2006-01-02"

// ProductionLine is one finished item requested in a production batch
type ProductionLine struct {
	ItemID    ItemID          `json:"item_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Amount returns quantity * unit price
func (l ProductionLine) Amount() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// ProductionBatchRequest is a multi-item production registration
type ProductionBatchRequest struct {
	TransactionDate string
	Lines           []ProductionLine
	ReferenceNo     string
	Notes           string
	UseBOM          bool
	CreatedBy       int64
}

// ItemIDs returns the distinct item ids referenced by the batch, in line order
func (r ProductionBatchRequest) ItemIDs() []ItemID {
	seen := make(map[ItemID]bool, len(r.Lines))
	ids := make([]ItemID, 0, len(r.Lines))
	for _, line := range r.Lines {
		if seen[line.ItemID] {
			continue
		}
		seen[line.ItemID] = true
		ids = append(ids, line.ItemID)
	}
	return ids
}

// ProductionTransaction is one persisted production-in row
type ProductionTransaction struct {
	TransactionID   int64           `json:"transaction_id"`
	ItemID          ItemID          `json:"item_id"`
	TransactionType string          `json:"transaction_type"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ReferenceNo     string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	TransactionDate string          `json:"transaction_date"`
	Status          string          `json:"status"`
	CreatedBy       int64           `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewProductionTransaction builds the row for a batch line
func NewProductionTransaction(req ProductionBatchRequest, line ProductionLine) ProductionTransaction {
	return ProductionTransaction{
		ItemID:          line.ItemID,
		TransactionType: TxTypeProductionIn,
		Quantity:        line.Quantity,
		UnitPrice:       line.UnitPrice,
		TotalAmount:     line.Amount(),
		ReferenceNo:     req.ReferenceNo,
		Notes:           req.Notes,
		TransactionDate: req.TransactionDate,
		Status:          TxStatusCompleted,
		CreatedBy:       req.CreatedBy,
	}
}

// MaterialConsumption is the total quantity of a leaf material a batch consumes
type MaterialConsumption struct {
	ItemID   ItemID          `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ProductionCommit is everything the store must persist atomically for a batch
type ProductionCommit struct {
	Transactions []ProductionTransaction
	// Consumption lists the leaf materials to deduct. The store re-validates
	// them under lock and fails the whole commit on any shortfall.
	Consumption []MaterialConsumption
}

// BatchSummary totals a production batch
type BatchSummary struct {
	TotalCount    int             `json:"total_count"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// Summarize totals the lines of a batch. Duplicate items are counted per line.
func Summarize(lines []ProductionLine) BatchSummary {
	summary := BatchSummary{
		TotalCount:    len(lines),
		TotalQuantity: decimal.Zero,
		TotalValue:    decimal.Zero,
	}
	for _, line := range lines {
		summary.TotalQuantity = summary.TotalQuantity.Add(line.Quantity)
		summary.TotalValue = summary.TotalValue.Add(line.Amount())
	}
	return summary
}

// BatchResult is the outcome of a committed production batch
type BatchResult struct {
	BatchID        string                       `json:"batch_id"`
	Transactions   []ProductionTransaction      `json:"transactions"`
	Items          []Item                       `json:"items"`
	BOMValidations *AggregatedFeasibilityReport `json:"bom_validations"`
	Summary        BatchSummary                 `json:"summary"`
}
