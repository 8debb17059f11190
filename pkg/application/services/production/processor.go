package production

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vsinha/bomcheck/pkg/application/services/feasibility"
	"github.com/vsinha/bomcheck/pkg/domain/entities"
	"github.com/vsinha/bomcheck/pkg/domain/repositories"
	"github.com/vsinha/bomcheck/pkg/infrastructure/events"
)

const (
	msgValidationFailed = "validation failed"
	msgCommitFailed     = "failed to register production batch"
	msgInternal         = "internal error while processing production batch"
)

// Recorder receives batch metrics
type Recorder interface {
	BatchProcessed(outcome string, lines int, d time.Duration)
}

// Processor validates, checks and commits multi-item production batches as
// one all-or-nothing unit
type Processor struct {
	items      repositories.ItemRepository
	production repositories.ProductionRepository
	analyzer   *feasibility.Analyzer
	eventLog   events.Log
	recorder   Recorder
	logger     *zap.Logger
}

// NewProcessor creates a batch processor. eventLog and recorder are optional.
func NewProcessor(
	items repositories.ItemRepository,
	production repositories.ProductionRepository,
	analyzer *feasibility.Analyzer,
	eventLog events.Log,
	recorder Recorder,
	logger *zap.Logger,
) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		items:      items,
		production: production,
		analyzer:   analyzer,
		eventLog:   eventLog,
		recorder:   recorder,
		logger:     logger,
	}
}

// batchRun carries one batch through the state machine
type batchRun struct {
	id     string
	state  State
	req    entities.ProductionBatchRequest
	logger *zap.Logger
}

// Process runs a batch through Received, Validated, FeasibilityChecked,
// Committed and Summarized. Any failure before the commit rejects the whole
// batch and writes nothing.
func (p *Processor) Process(ctx context.Context, req entities.ProductionBatchRequest) Outcome {
	start := time.Now()
	id := uuid.NewString()
	run := &batchRun{
		id:     id,
		req:    req,
		logger: p.logger.With(zap.String("batch_id", id)),
	}

	outcome := p.process(ctx, run)

	if p.recorder != nil {
		p.recorder.BatchProcessed(Label(outcome), len(req.Lines), time.Since(start))
	}
	run.logger.Info("production batch processed",
		zap.String("state", string(outcome.State())),
		zap.Int("lines", len(req.Lines)),
		zap.Duration("duration", time.Since(start)),
	)
	return outcome
}

func (p *Processor) process(ctx context.Context, run *batchRun) Outcome {
	req := run.req
	p.transition(run, StateReceived, events.NewBatchReceivedEvent(run.id, req))

	if details := validateRequest(req); len(details) > 0 {
		return p.reject(run, "validate", &entities.ValidationError{Message: msgValidationFailed, Details: details}, nil)
	}

	ids := req.ItemIDs()
	items, err := p.items.GetItemsByIDs(ctx, ids)
	if err != nil {
		return p.fail(run, "lookup", &entities.PersistenceError{Op: "load batch items", Err: err})
	}
	if details := checkItems(req.Lines, entities.NewItemIndex(items)); len(details) > 0 {
		return p.reject(run, "lookup", &entities.ValidationError{Message: msgValidationFailed, Details: details}, nil)
	}
	p.transition(run, StateValidated, events.NewBatchValidatedEvent(run.id, ids))

	var report *entities.AggregatedFeasibilityReport
	var consumption []entities.MaterialConsumption
	if req.UseBOM {
		report, err = p.analyzer.CheckBatch(ctx, req.Lines)
		if err != nil {
			if entities.IsClientError(err) {
				return p.reject(run, "feasibility", err, nil)
			}
			return p.fail(run, "feasibility", err)
		}
		p.transition(run, StateFeasibilityChecked, events.NewBatchFeasibilityCheckedEvent(run.id, report))

		if !report.CanProduce {
			return p.reject(run, "feasibility", shortageError(report), report)
		}
		consumption = consumptionOf(report)
	} else {
		p.transition(run, StateFeasibilityChecked, nil)
	}

	commit := entities.ProductionCommit{
		Transactions: make([]entities.ProductionTransaction, 0, len(req.Lines)),
		Consumption:  consumption,
	}
	for _, line := range req.Lines {
		commit.Transactions = append(commit.Transactions, entities.NewProductionTransaction(req, line))
	}

	written, err := p.production.CommitProduction(ctx, commit)
	if err != nil {
		if entities.IsClientError(err) {
			return p.reject(run, "commit", err, report)
		}
		return p.fail(run, "commit", err)
	}
	p.transition(run, StateCommitted, events.NewBatchCommittedEvent(run.id, written, consumption))

	result := &entities.BatchResult{
		BatchID:        run.id,
		Transactions:   written,
		Items:          p.reloadItems(ctx, run, ids),
		BOMValidations: report,
		Summary:        entities.Summarize(req.Lines),
	}
	p.transition(run, StateSummarized, events.NewBatchSummarizedEvent(run.id, result.Summary))

	return Committed{Result: result}
}

// reloadItems re-reads produced items after commit. A failure here does not
// undo the committed batch.
func (p *Processor) reloadItems(ctx context.Context, run *batchRun, ids []entities.ItemID) []entities.Item {
	items, err := p.items.GetItemsByIDs(ctx, ids)
	if err != nil {
		run.logger.Warn("failed to reload produced items", zap.Error(err))
		return []entities.Item{}
	}
	return items
}

func (p *Processor) transition(run *batchRun, next State, event events.Event) {
	run.logger.Debug("batch state change", zap.String("from", string(run.state)), zap.String("to", string(next)))
	run.state = next
	p.publish(run, event)
}

func (p *Processor) publish(run *batchRun, event events.Event) {
	if p.eventLog == nil || event == nil {
		return
	}
	if err := p.eventLog.Append(run.id, event); err != nil {
		run.logger.Warn("failed to append batch event", zap.String("type", event.Type()), zap.Error(err))
	}
}

func (p *Processor) reject(run *batchRun, stage string, err error, report *entities.AggregatedFeasibilityReport) Outcome {
	outcome := ValidationFailed{Error: msgValidationFailed, Details: detailsOf(err), Feasibility: report}
	run.logger.Info("production batch rejected", zap.String("stage", stage), zap.Strings("details", outcome.Details))
	run.state = StateRejected
	p.publish(run, events.NewBatchRejectedEvent(run.id, stage, err, outcome.Details))
	return outcome
}

func (p *Processor) fail(run *batchRun, stage string, err error) Outcome {
	message := msgInternal
	var persistenceErr *entities.PersistenceError
	if stage == "commit" || errors.As(err, &persistenceErr) {
		message = msgCommitFailed
	}
	run.logger.Error("production batch failed", zap.String("stage", stage), zap.Error(err))
	run.state = StateFailed
	p.publish(run, events.NewBatchFailedEvent(run.id, stage, err))
	return PersistenceFailed{Error: message, Cause: err}
}

// validateRequest returns one message per structural problem, lines 1-based
func validateRequest(req entities.ProductionBatchRequest) []string {
	var details []string
	if req.TransactionDate == "" {
		details = append(details, "transaction_date is required")
	} else if _, err := time.Parse(entities.DateLayout, req.TransactionDate); err != nil {
		details = append(details, "transaction_date must be formatted as YYYY-MM-DD")
	}
	if len(req.Lines) == 0 {
		details = append(details, "at least one item is required")
	}
	for i, line := range req.Lines {
		if line.ItemID <= 0 {
			details = append(details, fmt.Sprintf("item %d: item_id is required", i+1))
		}
		if !line.Quantity.IsPositive() {
			details = append(details, fmt.Sprintf("item %d: quantity must be greater than 0", i+1))
		}
		if line.UnitPrice.IsNegative() {
			details = append(details, fmt.Sprintf("item %d: unit_price cannot be negative", i+1))
		}
	}
	return details
}

// checkItems reports missing and inactive items for every line
func checkItems(lines []entities.ProductionLine, index entities.ItemIndex) []string {
	var details []string
	for i, line := range lines {
		item, ok := index[line.ItemID]
		switch {
		case !ok:
			details = append(details, (&entities.ItemNotFoundError{Line: i + 1, ItemID: line.ItemID}).Error())
		case !item.IsActive:
			details = append(details, (&entities.InactiveItemError{Line: i + 1, ItemID: line.ItemID}).Error())
		}
	}
	return details
}

// shortageError names every leaf the batch as a whole overdraws
func shortageError(report *entities.AggregatedFeasibilityReport) *entities.InsufficientStockError {
	short := report.InsufficientMaterials()
	stockErr := &entities.InsufficientStockError{Shortages: make([]entities.MaterialShortage, 0, len(short))}
	for _, m := range short {
		stockErr.Shortages = append(stockErr.Shortages, entities.MaterialShortage{
			ItemID:    m.ItemID,
			Code:      m.Code,
			Name:      m.Name,
			Required:  m.RequiredQuantity,
			Available: m.AvailableStock,
			Shortage:  m.AggregateShortage,
		})
	}
	return stockErr
}

// consumptionOf lists the merged leaf quantities to deduct at commit
func consumptionOf(report *entities.AggregatedFeasibilityReport) []entities.MaterialConsumption {
	consumption := make([]entities.MaterialConsumption, 0, len(report.Materials))
	for _, m := range report.Materials {
		if m.RequiredQuantity.IsPositive() {
			consumption = append(consumption, entities.MaterialConsumption{ItemID: m.ItemID, Quantity: m.RequiredQuantity})
		}
	}
	return consumption
}

// detailsOf flattens a client error into response details
func detailsOf(err error) []string {
	var (
		validationErr *entities.ValidationError
		stockErr      *entities.InsufficientStockError
	)
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Details
	case errors.As(err, &stockErr):
		return stockErr.Details()
	default:
		return []string{err.Error()}
	}
}
