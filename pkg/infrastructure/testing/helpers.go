package testing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
	"github.com/vsinha/bomcheck/pkg/domain/repositories"
	"github.com/vsinha/bomcheck/pkg/infrastructure/repositories/memory"
)

// Item ids of the workshop scenario
const (
	Bike     entities.ItemID = 1
	Frame    entities.ItemID = 2
	Wheel    entities.ItemID = 3
	Steel    entities.ItemID = 10
	Spoke    entities.ItemID = 11
	Rim      entities.ItemID = 12
	Paint    entities.ItemID = 13
	Bolt     entities.ItemID = 14
	Widget   entities.ItemID = 20
	Loose    entities.ItemID = 30
	Inactive entities.ItemID = 31
)

// PriceDate is the effective date of every price in the workshop scenario
var PriceDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Dec parses a decimal literal, panicking on malformed input
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// mustCreateItem is a helper for tests - panics on validation error
func mustCreateItem(id entities.ItemID, code, name string, stock string, active bool) entities.Item {
	item, err := entities.NewItem(id, code, name, "EA", Dec(stock), active)
	if err != nil {
		panic(err)
	}
	return *item
}

// mustCreateEdge is a helper for tests - panics on validation error
func mustCreateEdge(parent, child entities.ItemID, qtyPer string) entities.BOMEdge {
	edge, err := entities.NewBOMEdge(parent, child, Dec(qtyPer))
	if err != nil {
		panic(err)
	}
	return *edge
}

// BuildWorkshopStore builds a small bicycle workshop:
//
//	BIKE -> FRAME x1, WHEEL x2, BOLT x4
//	FRAME -> STEEL x5, PAINT x0.5, BOLT x2
//	WHEEL -> RIM x1, SPOKE x32
//	WIDGET -> STEEL x5
//
// One bike needs STEEL 5, PAINT 0.5, BOLT 6, RIM 2 and SPOKE 64. BOLT is
// reached through two paths. PAINT has no price.
func BuildWorkshopStore() *memory.Store {
	ctx := context.Background()
	store := memory.NewStore(16, 16)

	items := []entities.Item{
		mustCreateItem(Bike, "FG-BIKE", "Bicycle", "0", true),
		mustCreateItem(Frame, "SA-FRAME", "Frame", "0", true),
		mustCreateItem(Wheel, "SA-WHEEL", "Wheel", "0", true),
		mustCreateItem(Steel, "RM-STEEL", "Steel Tube", "30", true),
		mustCreateItem(Spoke, "RM-SPOKE", "Spoke", "400", true),
		mustCreateItem(Rim, "RM-RIM", "Rim", "40", true),
		mustCreateItem(Paint, "RM-PAINT", "Paint", "5", true),
		mustCreateItem(Bolt, "RM-BOLT", "Bolt", "100", true),
		mustCreateItem(Widget, "FG-WIDGET", "Widget", "0", true),
		mustCreateItem(Loose, "FG-LOOSE", "Loose Part", "7", true),
		mustCreateItem(Inactive, "FG-OLD", "Retired Part", "0", false),
	}
	edges := []entities.BOMEdge{
		mustCreateEdge(Bike, Frame, "1"),
		mustCreateEdge(Bike, Wheel, "2"),
		mustCreateEdge(Bike, Bolt, "4"),
		mustCreateEdge(Frame, Steel, "5"),
		mustCreateEdge(Frame, Paint, "0.5"),
		mustCreateEdge(Frame, Bolt, "2"),
		mustCreateEdge(Wheel, Rim, "1"),
		mustCreateEdge(Wheel, Spoke, "32"),
		mustCreateEdge(Widget, Steel, "5"),
	}
	prices := []repositories.PriceEntry{
		{ItemID: Steel, UnitPrice: Dec("2"), EffectiveDate: PriceDate},
		{ItemID: Spoke, UnitPrice: Dec("0.1"), EffectiveDate: PriceDate},
		{ItemID: Rim, UnitPrice: Dec("15"), EffectiveDate: PriceDate},
		{ItemID: Bolt, UnitPrice: Dec("0.5"), EffectiveDate: PriceDate},
	}

	if err := store.LoadItems(ctx, items); err != nil {
		panic(err)
	}
	if err := store.LoadBOMEdges(ctx, edges); err != nil {
		panic(err)
	}
	if err := store.LoadPrices(ctx, prices); err != nil {
		panic(err)
	}
	return store
}

// Stock returns the current stock of an item in the store
func Stock(store repositories.ItemRepository, id entities.ItemID) decimal.Decimal {
	items, err := store.GetItemsByIDs(context.Background(), []entities.ItemID{id})
	if err != nil || len(items) == 0 {
		panic("item not in store")
	}
	return items[0].CurrentStock
}
