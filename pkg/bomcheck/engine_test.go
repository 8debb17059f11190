package bomcheck

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/bomcheck/pkg/application/services/production"
	"github.com/vsinha/bomcheck/pkg/domain/entities"
	"github.com/vsinha/bomcheck/pkg/infrastructure/events"
)

const workshopDir = "../../scenarios/workshop"

func newWorkshopEngine(t *testing.T) *Engine {
	t.Helper()
	engine := NewEngine()
	require.NoError(t, engine.LoadScenario(context.Background(), workshopDir))
	return engine
}

func TestEngine_CheckAndResolve(t *testing.T) {
	ctx := context.Background()
	engine := newWorkshopEngine(t)

	report, err := engine.Check(ctx, "FG-WIDGET", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.False(t, report.CanProduce)
	require.NotNil(t, report.MaxProducibleQuantity)
	assert.Equal(t, "6", report.MaxProducibleQuantity.String())

	explosion, err := engine.Resolve(ctx, "FG-BIKE", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, 2, explosion.MaxLevel)
	assert.Len(t, explosion.Requirements, 5)
}

func TestEngine_CostAndWhereUsed(t *testing.T) {
	ctx := context.Background()
	engine := newWorkshopEngine(t)

	tree, err := engine.Cost(ctx, "FG-BIKE", "2024-06-01", false, false)
	require.NoError(t, err)
	assert.Equal(t, "49.4", tree.CalculatedPrice.String())
	assert.True(t, tree.IsLowerBound)

	used, err := engine.WhereUsed(ctx, "RM-STEEL")
	require.NoError(t, err)
	assert.Equal(t, 2, used.Summary.DirectParents)
}

func TestEngine_TreeBudget(t *testing.T) {
	ctx := context.Background()
	engine := NewEngineWithConfig(EngineConfig{MaxTreeNodes: 4})
	require.NoError(t, engine.LoadScenario(ctx, workshopDir))

	_, err := engine.Resolve(ctx, "FG-BIKE", decimal.NewFromInt(1))
	assert.True(t, errors.Is(err, entities.ErrTreeTooLarge), "got %v", err)

	_, err = engine.Cost(ctx, "FG-BIKE", "2024-06-01", false, false)
	assert.True(t, errors.Is(err, entities.ErrTreeTooLarge), "got %v", err)

	report, err := engine.Check(ctx, "FG-BIKE", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.NotEmpty(t, report.Materials)
}

func TestEngine_ProduceDeductsMaterials(t *testing.T) {
	ctx := context.Background()
	engine := newWorkshopEngine(t)

	outcome := engine.Produce(ctx, entities.ProductionBatchRequest{
		TransactionDate: "2024-06-01",
		Lines: []entities.ProductionLine{
			{ItemID: 20, Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(10)},
		},
		UseBOM:    true,
		CreatedBy: 1,
	})
	committed, ok := outcome.(production.Committed)
	require.True(t, ok, "outcome %T", outcome)
	assert.Len(t, committed.Result.Transactions, 1)

	steel, err := engine.Item(ctx, "RM-STEEL")
	require.NoError(t, err)
	assert.Equal(t, "20", steel.CurrentStock.String())

	widget, err := engine.Item(ctx, "FG-WIDGET")
	require.NoError(t, err)
	assert.Equal(t, "2", widget.CurrentStock.String())

	txs, err := engine.Transactions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestEngine_ProduceRejectsShortage(t *testing.T) {
	ctx := context.Background()
	engine := newWorkshopEngine(t)

	outcome := engine.Produce(ctx, entities.ProductionBatchRequest{
		TransactionDate: "2024-06-01",
		Lines:           []entities.ProductionLine{{ItemID: 20, Quantity: decimal.NewFromInt(7)}},
		UseBOM:          true,
		CreatedBy:       1,
	})
	rejected, ok := outcome.(production.ValidationFailed)
	require.True(t, ok, "outcome %T", outcome)
	require.NotNil(t, rejected.Feasibility)
	assert.False(t, rejected.Feasibility.CanProduce)

	steel, err := engine.Item(ctx, "RM-STEEL")
	require.NoError(t, err)
	assert.Equal(t, "30", steel.CurrentStock.String())
}

type committedHandler struct {
	seen chan events.Event
}

func (h committedHandler) Handle(e events.Event) error {
	h.seen <- e
	return nil
}

func (h committedHandler) Accepts(eventType string) bool {
	return eventType == events.BatchCommittedEvent
}

func TestEngine_SubscribeReceivesCommittedBatches(t *testing.T) {
	ctx := context.Background()
	engine := newWorkshopEngine(t)

	handler := committedHandler{seen: make(chan events.Event, 1)}
	require.NoError(t, engine.Subscribe([]string{events.BatchCommittedEvent}, handler))

	outcome := engine.Produce(ctx, entities.ProductionBatchRequest{
		TransactionDate: "2024-06-01",
		Lines:           []entities.ProductionLine{{ItemID: 30, Quantity: decimal.NewFromInt(1)}},
		UseBOM:          true,
		CreatedBy:       1,
	})
	require.Equal(t, production.StateSummarized, outcome.State())

	select {
	case e := <-handler.seen:
		assert.Equal(t, events.BatchCommittedEvent, e.Type())
	case <-time.After(2 * time.Second):
		t.Fatal("no committed event received")
	}
}

func TestEngine_LoadRejectsCycleAcrossLoads(t *testing.T) {
	ctx := context.Background()
	engine := newWorkshopEngine(t)

	back, err := entities.NewBOMEdge(10, 2, decimal.NewFromInt(1))
	require.NoError(t, err)

	err = engine.Load(ctx, nil, []entities.BOMEdge{*back}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOM cycle detected")
}

func TestEngine_UnknownCode(t *testing.T) {
	engine := newWorkshopEngine(t)

	_, err := engine.Check(context.Background(), "NOPE", decimal.NewFromInt(1))
	assert.True(t, errors.Is(err, entities.ErrNotFound))
}
