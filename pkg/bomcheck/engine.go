// Package bomcheck is the embeddable entry point of the BOM engine. An
// Engine owns an in-memory store and exposes resolution, feasibility, cost
// and batch production by item code.
package bomcheck

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/bomcheck/pkg/application/services/bom"
	"github.com/vsinha/bomcheck/pkg/application/services/costing"
	"github.com/vsinha/bomcheck/pkg/application/services/feasibility"
	"github.com/vsinha/bomcheck/pkg/application/services/production"
	"github.com/vsinha/bomcheck/pkg/domain/entities"
	"github.com/vsinha/bomcheck/pkg/domain/repositories"
	domainservices "github.com/vsinha/bomcheck/pkg/domain/services"
	"github.com/vsinha/bomcheck/pkg/infrastructure/cache"
	"github.com/vsinha/bomcheck/pkg/infrastructure/events"
	"github.com/vsinha/bomcheck/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/bomcheck/pkg/infrastructure/repositories/memory"
)

// EngineConfig holds engine tuning
type EngineConfig struct {
	// MaxDepth bounds BOM traversal (0 = bom.DefaultMaxDepth)
	MaxDepth int
	// MaxTreeNodes bounds explosion and cost trees (0 = bom.DefaultMaxTreeNodes)
	MaxTreeNodes int
	// CostCacheTTL is how long cost roll-ups are reused (0 = costing.DefaultCacheTTL)
	CostCacheTTL time.Duration
	Logger       *zap.Logger
}

// Engine wires the BOM services over one in-memory store
type Engine struct {
	store      *memory.Store
	resolver   *bom.Resolver
	analyzer   *feasibility.Analyzer
	calculator *costing.Calculator
	processor  *production.Processor
	events     *events.MemoryLog

	mu     sync.RWMutex
	byCode map[string]entities.ItemID
}

// NewEngine creates an empty engine with default configuration
func NewEngine() *Engine {
	return NewEngineWithConfig(EngineConfig{})
}

// NewEngineWithConfig creates an empty engine
func NewEngineWithConfig(config EngineConfig) *Engine {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store := memory.NewStore(0, 0)
	resolver := bom.NewResolver(store, config.MaxDepth, logger).WithMaxTreeNodes(config.MaxTreeNodes)
	analyzer := feasibility.NewAnalyzer(resolver, store, logger)
	eventLog := events.NewMemoryLog(logger)

	return &Engine{
		store:      store,
		resolver:   resolver,
		analyzer:   analyzer,
		calculator: costing.NewCalculator(resolver, store, store, cache.NewMemoryCache(), config.CostCacheTTL, logger),
		processor:  production.NewProcessor(store, store, analyzer, eventLog, nil, logger),
		events:     eventLog,
		byCode:     make(map[string]entities.ItemID),
	}
}

// Load adds items, BOM edges and prices. The edges are checked for cycles
// and duplicates against everything already loaded.
func (e *Engine) Load(ctx context.Context, items []entities.Item, edges []entities.BOMEdge, prices []repositories.PriceEntry) error {
	existing, err := e.store.GetAllBOMEdges(ctx)
	if err != nil {
		return err
	}
	validation := domainservices.NewBOMValidator().ValidateBOM(append(existing, edges...))
	if !validation.Valid() {
		return fmt.Errorf("BOM validation failed: %s", strings.Join(validation.Errors, "; "))
	}

	scenario := csv.Scenario{Items: items, Edges: edges, Prices: prices}
	if err := scenario.Populate(ctx, e.store); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, item := range items {
		e.byCode[item.Code] = item.ItemID
	}
	return nil
}

// LoadScenario loads items.csv, bom.csv and the optional prices.csv from dir
func (e *Engine) LoadScenario(ctx context.Context, dir string) error {
	scenario, err := csv.NewLoader().LoadScenario(dir)
	if err != nil {
		return err
	}
	return e.Load(ctx, scenario.Items, scenario.Edges, scenario.Prices)
}

// ItemID resolves an item code
func (e *Engine) ItemID(code string) (entities.ItemID, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok := e.byCode[code]
	if !ok {
		return 0, fmt.Errorf("item %s: %w", code, entities.ErrNotFound)
	}
	return id, nil
}

// Item returns the current state of an item, including its stock
func (e *Engine) Item(ctx context.Context, code string) (entities.Item, error) {
	id, err := e.ItemID(code)
	if err != nil {
		return entities.Item{}, err
	}
	items, err := e.store.GetItemsByIDs(ctx, []entities.ItemID{id})
	if err != nil {
		return entities.Item{}, err
	}
	if len(items) == 0 {
		return entities.Item{}, fmt.Errorf("item %s: %w", code, entities.ErrNotFound)
	}
	return items[0], nil
}

// Resolve explodes the BOM of code for quantity units
func (e *Engine) Resolve(ctx context.Context, code string, quantity decimal.Decimal) (*bom.Explosion, error) {
	id, err := e.ItemID(code)
	if err != nil {
		return nil, err
	}
	return e.resolver.NewSession().Explode(ctx, id, quantity)
}

// Check reports whether quantity units of code can be produced from stock
func (e *Engine) Check(ctx context.Context, code string, quantity decimal.Decimal) (*entities.FeasibilityReport, error) {
	id, err := e.ItemID(code)
	if err != nil {
		return nil, err
	}
	return e.analyzer.CheckSingle(ctx, id, quantity)
}

// CheckBatch runs the aggregated stock check over several lines without
// committing anything
func (e *Engine) CheckBatch(ctx context.Context, lines []entities.ProductionLine) (*entities.AggregatedFeasibilityReport, error) {
	return e.analyzer.CheckBatch(ctx, lines)
}

// Cost rolls prices up the BOM of code on effectiveDate (YYYY-MM-DD, empty
// for today)
func (e *Engine) Cost(ctx context.Context, code, effectiveDate string, includeLabor, includeOverhead bool) (*entities.CostTree, error) {
	id, err := e.ItemID(code)
	if err != nil {
		return nil, err
	}
	return e.calculator.Calculate(ctx, costing.Request{
		ItemID:          id,
		EffectiveDate:   effectiveDate,
		IncludeLabor:    includeLabor,
		IncludeOverhead: includeOverhead,
	})
}

// WhereUsed lists every assembly that consumes code
func (e *Engine) WhereUsed(ctx context.Context, code string) (*entities.WhereUsedResult, error) {
	id, err := e.ItemID(code)
	if err != nil {
		return nil, err
	}
	return e.resolver.WhereUsed(ctx, id)
}

// Produce registers a production batch all-or-nothing
func (e *Engine) Produce(ctx context.Context, req entities.ProductionBatchRequest) production.Outcome {
	return e.processor.Process(ctx, req)
}

// Transactions returns committed production transactions, newest first
func (e *Engine) Transactions(ctx context.Context, limit int) ([]entities.ProductionTransaction, error) {
	return e.store.ListTransactions(ctx, limit)
}

// Subscribe registers handler for batch lifecycle events (see
// events.BatchEventTypes)
func (e *Engine) Subscribe(eventTypes []string, handler events.Handler) error {
	return e.events.Subscribe(eventTypes, handler)
}
