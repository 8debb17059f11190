package events

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

// Production batch lifecycle event types
const (
	BatchReceivedEvent           = "production.batch.received"
	BatchValidatedEvent          = "production.batch.validated"
	BatchFeasibilityCheckedEvent = "production.batch.feasibility_checked"
	BatchCommittedEvent          = "production.batch.committed"
	BatchSummarizedEvent         = "production.batch.summarized"
	BatchRejectedEvent           = "production.batch.rejected"
	BatchFailedEvent             = "production.batch.failed"
)

// BatchEventTypes lists every production batch event type
var BatchEventTypes = []string{
	BatchReceivedEvent,
	BatchValidatedEvent,
	BatchFeasibilityCheckedEvent,
	BatchCommittedEvent,
	BatchSummarizedEvent,
	BatchRejectedEvent,
	BatchFailedEvent,
}

type BatchReceived struct {
	TransactionDate string `json:"transaction_date"`
	LineCount       int    `json:"line_count"`
	UseBOM          bool   `json:"use_bom"`
	CreatedBy       int64  `json:"created_by"`
}

type BatchValidated struct {
	ItemIDs []entities.ItemID `json:"item_ids"`
}

type BatchFeasibilityChecked struct {
	CanProduce            bool              `json:"can_produce"`
	MaterialCount         int               `json:"material_count"`
	InsufficientMaterials []entities.ItemID `json:"insufficient_materials,omitempty"`
}

type BatchCommitted struct {
	TransactionIDs []int64                        `json:"transaction_ids"`
	Consumption    []entities.MaterialConsumption `json:"consumption,omitempty"`
}

type BatchSummarized struct {
	TotalCount    int             `json:"total_count"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

type BatchRejected struct {
	Stage   string   `json:"stage"`
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type BatchFailed struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}

func NewBatchReceivedEvent(batchID string, req entities.ProductionBatchRequest) Event {
	return New(BatchReceivedEvent, batchID, BatchReceived{
		TransactionDate: req.TransactionDate,
		LineCount:       len(req.Lines),
		UseBOM:          req.UseBOM,
		CreatedBy:       req.CreatedBy,
	})
}

func NewBatchValidatedEvent(batchID string, ids []entities.ItemID) Event {
	return New(BatchValidatedEvent, batchID, BatchValidated{ItemIDs: ids})
}

func NewBatchFeasibilityCheckedEvent(batchID string, report *entities.AggregatedFeasibilityReport) Event {
	data := BatchFeasibilityChecked{
		CanProduce:    report.CanProduce,
		MaterialCount: len(report.Materials),
	}
	for _, m := range report.InsufficientMaterials() {
		data.InsufficientMaterials = append(data.InsufficientMaterials, m.ItemID)
	}
	return New(BatchFeasibilityCheckedEvent, batchID, data)
}

func NewBatchCommittedEvent(batchID string, txs []entities.ProductionTransaction, consumption []entities.MaterialConsumption) Event {
	ids := make([]int64, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.TransactionID)
	}
	return New(BatchCommittedEvent, batchID, BatchCommitted{TransactionIDs: ids, Consumption: consumption})
}

func NewBatchSummarizedEvent(batchID string, summary entities.BatchSummary) Event {
	return New(BatchSummarizedEvent, batchID, BatchSummarized{
		TotalCount:    summary.TotalCount,
		TotalQuantity: summary.TotalQuantity,
		TotalValue:    summary.TotalValue,
	})
}

func NewBatchRejectedEvent(batchID, stage string, err error, details []string) Event {
	return New(BatchRejectedEvent, batchID, BatchRejected{Stage: stage, Error: err.Error(), Details: details})
}

func NewBatchFailedEvent(batchID, stage string, err error) Event {
	return New(BatchFailedEvent, batchID, BatchFailed{Stage: stage, Error: err.Error()})
}
