package feasibility

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/bomcheck/pkg/application/services/bom"
	"github.com/vsinha/bomcheck/pkg/domain/entities"
	"github.com/vsinha/bomcheck/pkg/domain/repositories"
)

var hundred = decimal.NewFromInt(100)

// Analyzer compares resolved material requirements with current stock. It
// reports and never reserves: stock is re-checked when a batch commits.
type Analyzer struct {
	resolver *bom.Resolver
	items    repositories.ItemRepository
	logger   *zap.Logger
}

// NewAnalyzer creates a stock feasibility analyzer
func NewAnalyzer(resolver *bom.Resolver, items repositories.ItemRepository, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		resolver: resolver,
		items:    items,
		logger:   logger,
	}
}

// CheckSingle reports whether quantity units of itemID can be produced from current stock
func (a *Analyzer) CheckSingle(ctx context.Context, itemID entities.ItemID, quantity decimal.Decimal) (*entities.FeasibilityReport, error) {
	if itemID <= 0 {
		return nil, &entities.ValidationError{Message: "invalid request", Details: []string{"item_id must be a positive integer"}}
	}
	if !quantity.IsPositive() {
		return nil, &entities.ValidationError{Message: "invalid request", Details: []string{"quantity must be greater than 0"}}
	}

	session := a.resolver.NewSession()
	plan, err := a.plan(ctx, session, []entities.ProductionLine{{ItemID: itemID, Quantity: quantity}})
	if err != nil {
		return nil, err
	}

	root, ok := plan.index[itemID]
	if !ok || !root.IsActive {
		return nil, fmt.Errorf("item %d: %w", itemID, entities.ErrNotFound)
	}

	report := a.buildReport(root, quantity, plan.lines[0], plan.index)
	return &report, nil
}

// CheckBatch evaluates every line of a batch in one resolver session and one
// stock read, then merges the materials the lines share
func (a *Analyzer) CheckBatch(ctx context.Context, lines []entities.ProductionLine) (*entities.AggregatedFeasibilityReport, error) {
	return a.CheckBatchInSession(ctx, a.resolver.NewSession(), lines)
}

// CheckBatchInSession is CheckBatch on a caller-owned session
func (a *Analyzer) CheckBatchInSession(ctx context.Context, session *bom.Session, lines []entities.ProductionLine) (*entities.AggregatedFeasibilityReport, error) {
	plan, err := a.plan(ctx, session, lines)
	if err != nil {
		return nil, err
	}

	report := &entities.AggregatedFeasibilityReport{
		Lines:      make([]entities.FeasibilityReport, 0, len(lines)),
		CanProduce: true,
	}

	for i, line := range lines {
		root, ok := plan.index[line.ItemID]
		if !ok {
			return nil, &entities.ItemNotFoundError{Line: i + 1, ItemID: line.ItemID}
		}
		lineReport := a.buildReport(root, line.Quantity, plan.lines[i], plan.index)
		if !lineReport.CanProduce {
			report.CanProduce = false
		}
		report.Lines = append(report.Lines, lineReport)
	}

	report.Materials = mergeMaterials(report.Lines)
	for i := range report.Materials {
		material := &report.Materials[i]
		if material.Insufficient() {
			report.CanProduce = false
		}
		if report.Bottleneck == nil || tighter(material.MaxProducibleByThisItem, material.Code,
			report.Bottleneck.MaxProducibleByThisItem, report.Bottleneck.Code) {
			report.Bottleneck = material
		}
	}
	if report.Bottleneck != nil && report.Bottleneck.MaxProducibleByThisItem == nil {
		report.Bottleneck = nil
	}

	a.logger.Debug("batch feasibility checked",
		zap.Int("lines", len(lines)),
		zap.Int("materials", len(report.Materials)),
		zap.Bool("can_produce", report.CanProduce),
	)
	return report, nil
}

// linePlan is the resolved BOM of one line
type linePlan struct {
	hasBOM bool
	vector entities.RequirementVector
}

type batchPlan struct {
	lines []linePlan
	index entities.ItemIndex
}

// plan resolves every line and loads roots and leaves in one stock read
func (a *Analyzer) plan(ctx context.Context, session *bom.Session, lines []entities.ProductionLine) (*batchPlan, error) {
	plan := &batchPlan{lines: make([]linePlan, 0, len(lines))}
	ids := make([]entities.ItemID, 0, len(lines))

	for _, line := range lines {
		hasBOM, err := session.HasBOM(ctx, line.ItemID)
		if err != nil {
			return nil, err
		}
		lp := linePlan{hasBOM: hasBOM}
		ids = append(ids, line.ItemID)
		if hasBOM {
			vector, err := session.Resolve(ctx, line.ItemID)
			if err != nil {
				return nil, err
			}
			lp.vector = vector
			ids = append(ids, vector.ItemIDs()...)
		}
		plan.lines = append(plan.lines, lp)
	}

	items, err := a.items.GetItemsByIDs(ctx, ids)
	if err != nil {
		return nil, &entities.PersistenceError{Op: "load item stock", Err: err}
	}
	plan.index = entities.NewItemIndex(items)
	return plan, nil
}

// buildReport evaluates one line against the shared stock snapshot
func (a *Analyzer) buildReport(root entities.Item, quantity decimal.Decimal, lp linePlan, index entities.ItemIndex) entities.FeasibilityReport {
	report := entities.FeasibilityReport{
		ItemID:     root.ItemID,
		Code:       root.Code,
		Name:       root.Name,
		Quantity:   quantity,
		HasBOM:     lp.hasBOM,
		CanProduce: true,
		Materials:  make([]entities.MaterialFeasibility, 0, len(lp.vector)),
		Summary: entities.FeasibilitySummary{
			TotalShortage:       decimal.Zero,
			TotalRequiredValue:  decimal.Zero,
			TotalAvailableValue: decimal.Zero,
			FulfillmentRate:     decimal.Zero,
		},
	}
	if !lp.hasBOM {
		return report
	}

	for _, id := range lp.vector.ItemIDs() {
		material, ok := index[id]
		if !ok {
			a.logger.Warn("BOM references unknown item; treating stock as zero",
				zap.Int64("item_id", int64(id)),
				zap.Int64("root_item_id", int64(root.ItemID)),
			)
			material = entities.Item{ItemID: id}
		}

		mf := entities.NewMaterialFeasibility(material, lp.vector.Get(id), quantity)
		report.Materials = append(report.Materials, mf)

		report.Summary.TotalItems++
		if mf.Sufficient {
			report.Summary.SufficientItems++
		} else {
			report.Summary.InsufficientItems++
			report.CanProduce = false
		}
		report.Summary.TotalShortage = report.Summary.TotalShortage.Add(mf.Shortage)
		report.Summary.TotalRequiredValue = report.Summary.TotalRequiredValue.Add(mf.RequiredValue)
		report.Summary.TotalAvailableValue = report.Summary.TotalAvailableValue.Add(mf.AvailableValue)
	}

	for i := range report.Materials {
		mf := &report.Materials[i]
		if mf.MaxProducibleByThisItem == nil {
			continue
		}
		if report.Bottleneck == nil || tighter(mf.MaxProducibleByThisItem, mf.Code,
			report.Bottleneck.MaxProducibleByThisItem, report.Bottleneck.Code) {
			report.Bottleneck = mf
		}
	}
	if report.Bottleneck != nil {
		report.MaxProducibleQuantity = report.Bottleneck.MaxProducibleByThisItem
	}

	if report.Summary.TotalRequiredValue.IsPositive() {
		report.Summary.FulfillmentRate = report.Summary.TotalAvailableValue.
			Div(report.Summary.TotalRequiredValue).Mul(hundred).Round(2)
	}
	return report
}

// tighter reports whether limit a (with item code codeA) beats b as a
// bottleneck. Equal limits go to the lower item code.
func tighter(a *decimal.Decimal, codeA string, b *decimal.Decimal, codeB string) bool {
	if entities.LessProducible(a, b) {
		return true
	}
	if entities.LessProducible(b, a) {
		return false
	}
	return codeA < codeB
}

// mergeMaterials combines every line's materials per leaf item, ordered by item id
func mergeMaterials(lines []entities.FeasibilityReport) []entities.AggregatedMaterial {
	merged := make(map[entities.ItemID]*entities.AggregatedMaterial)

	for lineIndex, line := range lines {
		for _, mf := range line.Materials {
			agg, ok := merged[mf.ItemID]
			if !ok {
				agg = &entities.AggregatedMaterial{
					ItemID:                  mf.ItemID,
					Code:                    mf.Code,
					Name:                    mf.Name,
					Unit:                    mf.Unit,
					RequiredQuantity:        decimal.Zero,
					AvailableStock:          mf.AvailableStock,
					Shortage:                decimal.Zero,
					MaxProducibleByThisItem: mf.MaxProducibleByThisItem,
				}
				merged[mf.ItemID] = agg
			} else if entities.LessProducible(mf.MaxProducibleByThisItem, agg.MaxProducibleByThisItem) {
				agg.MaxProducibleByThisItem = mf.MaxProducibleByThisItem
			}
			agg.RequiredQuantity = agg.RequiredQuantity.Add(mf.RequiredQuantity)
			agg.Shortage = agg.Shortage.Add(mf.Shortage)
			agg.LineIndexes = append(agg.LineIndexes, lineIndex)
		}
	}

	materials := make([]entities.AggregatedMaterial, 0, len(merged))
	for _, agg := range merged {
		agg.AggregateShortage = entities.NonNegative(agg.RequiredQuantity.Sub(agg.AvailableStock))
		materials = append(materials, *agg)
	}
	sort.Slice(materials, func(i, j int) bool { return materials[i].ItemID < materials[j].ItemID })
	return materials
}
