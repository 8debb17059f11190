package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/bomcheck/pkg/application/services/production"
	"github.com/vsinha/bomcheck/pkg/bomcheck"
	"github.com/vsinha/bomcheck/pkg/domain/entities"
	"github.com/vsinha/bomcheck/pkg/domain/repositories"
)

func main() {
	ctx := context.Background()

	engine := bomcheck.NewEngine()
	if err := setupPumpBOM(ctx, engine); err != nil {
		fmt.Printf("❌ Setup failed: %v\n", err)
		return
	}

	quantity := decimal.NewFromInt(12)
	fmt.Printf("🔧 Checking %s pumps...\n\n", quantity)

	report, err := engine.Check(ctx, "PUMP", quantity)
	if err != nil {
		fmt.Printf("❌ Check failed: %v\n", err)
		return
	}

	fmt.Println("📊 Feasibility:")
	for _, m := range report.Materials {
		status := "✅"
		if !m.Sufficient {
			status = "⚠️ "
		}
		fmt.Printf("  %s %-10s need %-6s have %-6s short %s\n",
			status, m.Code, m.RequiredQuantity, m.AvailableStock, m.Shortage)
	}
	if report.MaxProducibleQuantity != nil {
		fmt.Printf("  Max producible: %s\n", report.MaxProducibleQuantity)
	}
	fmt.Println()

	tree, err := engine.Cost(ctx, "PUMP", "", true, true)
	if err != nil {
		fmt.Printf("❌ Cost failed: %v\n", err)
		return
	}
	fmt.Println("💰 Cost per pump:")
	fmt.Printf("  Material: %s\n", tree.MaterialCost.StringFixed(2))
	fmt.Printf("  Labor:    %s\n", tree.LaborCost.StringFixed(2))
	fmt.Printf("  Overhead: %s\n", tree.OverheadCost.StringFixed(2))
	fmt.Printf("  Price:    %s\n\n", tree.CalculatedPrice.StringFixed(2))

	producible := decimal.NewFromInt(1)
	if report.MaxProducibleQuantity != nil && report.MaxProducibleQuantity.IsPositive() {
		producible = *report.MaxProducibleQuantity
	}
	pumpID, _ := engine.ItemID("PUMP")

	outcome := engine.Produce(ctx, entities.ProductionBatchRequest{
		TransactionDate: time.Now().Format(entities.DateLayout),
		Lines: []entities.ProductionLine{
			{ItemID: pumpID, Quantity: producible, UnitPrice: tree.CalculatedPrice},
		},
		ReferenceNo: "EXAMPLE-001",
		UseBOM:      true,
		CreatedBy:   1,
	})

	switch o := outcome.(type) {
	case production.Committed:
		fmt.Printf("🏭 Produced %s pumps, batch value %s\n",
			o.Result.Summary.TotalQuantity, o.Result.Summary.TotalValue.StringFixed(2))
	case production.ValidationFailed:
		fmt.Printf("❌ Batch rejected: %s %v\n", o.Error, o.Details)
	case production.PersistenceFailed:
		fmt.Printf("❌ Batch failed: %s\n", o.Error)
	}
}

// setupPumpBOM loads a two-level pump:
//
//	PUMP -> MOTOR x1, HOUSING x1, BOLT x8
//	MOTOR -> WIRE x20, MAGNET x4
func setupPumpBOM(ctx context.Context, engine *bomcheck.Engine) error {
	type part struct {
		id    entities.ItemID
		code  string
		stock int64
		price string
	}
	parts := []part{
		{1, "PUMP", 0, ""},
		{2, "MOTOR", 0, ""},
		{3, "HOUSING", 15, "42.50"},
		{4, "BOLT", 500, "0.12"},
		{5, "WIRE", 300, "0.35"},
		{6, "MAGNET", 40, "3.10"},
	}

	items := make([]entities.Item, 0, len(parts))
	var prices []repositories.PriceEntry
	for _, s := range parts {
		item, err := entities.NewItem(s.id, s.code, s.code, "EA", decimal.NewFromInt(s.stock), true)
		if err != nil {
			return err
		}
		items = append(items, *item)
		if s.price != "" {
			prices = append(prices, repositories.PriceEntry{
				ItemID:        s.id,
				UnitPrice:     decimal.RequireFromString(s.price),
				EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			})
		}
	}

	var edges []entities.BOMEdge
	for _, e := range []struct {
		parent, child entities.ItemID
		qty           int64
	}{
		{1, 2, 1}, {1, 3, 1}, {1, 4, 8},
		{2, 5, 20}, {2, 6, 4},
	} {
		edge, err := entities.NewBOMEdge(e.parent, e.child, decimal.NewFromInt(e.qty))
		if err != nil {
			return err
		}
		edges = append(edges, *edge)
	}

	return engine.Load(ctx, items, edges, prices)
}
