package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
	"github.com/vsinha/bomcheck/pkg/domain/repositories"
	"github.com/vsinha/bomcheck/pkg/infrastructure/repositories/postgres"
	testhelpers "github.com/vsinha/bomcheck/pkg/infrastructure/testing"
)

// openTestStore connects to BOMCHECK_TEST_DATABASE_DSN, migrates, and seeds
// the workshop scenario into empty tables
func openTestStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("BOMCHECK_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("BOMCHECK_TEST_DATABASE_DSN not set")
	}

	ctx := context.Background()
	require.NoError(t, postgres.Migrate(dsn))

	pool, err := postgres.Connect(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE inventory_transactions, price_master, bom, items RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	fixture := testhelpers.BuildWorkshopStore()
	items, err := fixture.GetAllItems(ctx)
	require.NoError(t, err)
	edges, err := fixture.GetAllBOMEdges(ctx)
	require.NoError(t, err)

	store := postgres.NewStore(pool, zap.NewNop())
	require.NoError(t, store.LoadItems(ctx, items))
	require.NoError(t, store.LoadBOMEdges(ctx, edges))
	require.NoError(t, store.LoadPrices(ctx, []repositories.PriceEntry{
		{ItemID: testhelpers.Steel, UnitPrice: testhelpers.Dec("2"), EffectiveDate: testhelpers.PriceDate},
		{ItemID: testhelpers.Steel, UnitPrice: testhelpers.Dec("3"), EffectiveDate: testhelpers.PriceDate.AddDate(0, 6, 0)},
	}))
	return store
}

func TestStore_ReadsGraph(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	edges, err := store.GetBOMEdges(ctx, testhelpers.Frame)
	require.NoError(t, err)
	require.Len(t, edges, 3)
	assert.Equal(t, testhelpers.Steel, edges[0].ChildItemID)
	require.NotNil(t, edges[0].Child)
	assert.Equal(t, "RM-STEEL", edges[0].Child.Code)
	assert.True(t, edges[1].QuantityPerUnit.Equal(testhelpers.Dec("0.5")))

	parents, err := store.GetParentEdges(ctx, testhelpers.Bolt)
	require.NoError(t, err)
	require.Len(t, parents, 2)
	require.NotNil(t, parents[1].Parent)
	assert.Equal(t, "Frame", parents[1].Parent.Name)

	items, err := store.GetItemsByIDs(ctx, []entities.ItemID{testhelpers.Steel, 999})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].CurrentStock.Equal(testhelpers.Dec("30")))
}

func TestStore_GetCurrentPrice(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		item   entities.ItemID
		date   time.Time
		want   string
		wantOK bool
	}{
		{"first price", testhelpers.Steel, testhelpers.PriceDate.AddDate(0, 1, 0), "2", true},
		{"later price", testhelpers.Steel, testhelpers.PriceDate.AddDate(1, 0, 0), "3", true},
		{"before any price", testhelpers.Steel, testhelpers.PriceDate.AddDate(0, 0, -1), "0", false},
		{"no price", testhelpers.Paint, testhelpers.PriceDate, "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, ok, err := store.GetCurrentPrice(ctx, tt.item, tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, price.Equal(testhelpers.Dec(tt.want)), "got %s", price)
		})
	}
}

func TestStore_CommitProduction(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	commit := entities.ProductionCommit{
		Transactions: []entities.ProductionTransaction{{
			ItemID:          testhelpers.Widget,
			TransactionType: entities.TxTypeProductionIn,
			Quantity:        testhelpers.Dec("4"),
			UnitPrice:       testhelpers.Dec("10"),
			TotalAmount:     testhelpers.Dec("40"),
			TransactionDate: "2024-03-01",
			Status:          entities.TxStatusCompleted,
			CreatedBy:       1,
		}},
		Consumption: []entities.MaterialConsumption{{ItemID: testhelpers.Steel, Quantity: testhelpers.Dec("20")}},
	}

	written, err := store.CommitProduction(ctx, commit)
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.NotZero(t, written[0].TransactionID)
	assert.False(t, written[0].CreatedAt.IsZero())

	assert.True(t, testhelpers.Stock(store, testhelpers.Widget).Equal(testhelpers.Dec("4")))
	assert.True(t, testhelpers.Stock(store, testhelpers.Steel).Equal(testhelpers.Dec("10")))

	listed, err := store.ListTransactions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "2024-03-01", listed[0].TransactionDate)

	// a second identical commit needs 20 steel with 10 left
	_, err = store.CommitProduction(ctx, commit)
	var stockErr *entities.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	require.Len(t, stockErr.Shortages, 1)
	assert.True(t, stockErr.Shortages[0].Shortage.Equal(testhelpers.Dec("10")))
	assert.True(t, testhelpers.Stock(store, testhelpers.Widget).Equal(testhelpers.Dec("4")))
}

func widgetCommit(steel string) entities.ProductionCommit {
	return entities.ProductionCommit{
		Transactions: []entities.ProductionTransaction{{
			ItemID:          testhelpers.Widget,
			TransactionType: entities.TxTypeProductionIn,
			Quantity:        testhelpers.Dec("2"),
			TransactionDate: "2024-03-01",
			Status:          entities.TxStatusCompleted,
			CreatedBy:       1,
		}},
		Consumption: []entities.MaterialConsumption{{ItemID: testhelpers.Steel, Quantity: testhelpers.Dec(steel)}},
	}
}

func TestStore_CommitProduction_ShortageUnderLock(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.CommitProduction(ctx, widgetCommit("31"))

	var stockErr *entities.InsufficientStockError
	require.True(t, errors.As(err, &stockErr), "got %v", err)
	require.Len(t, stockErr.Shortages, 1)
	assert.Equal(t, "RM-STEEL", stockErr.Shortages[0].Code)
	assert.True(t, stockErr.Shortages[0].Shortage.Equal(testhelpers.Dec("1")))

	listed, err := store.ListTransactions(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, listed)
	assert.True(t, testhelpers.Stock(store, testhelpers.Steel).Equal(testhelpers.Dec("30")))
	assert.True(t, testhelpers.Stock(store, testhelpers.Widget).IsZero())
}

func TestStore_CommitProduction_ConcurrentCommitsNeverOverdraw(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// 30 steel in stock, 10 per commit
	const workers = 12
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.CommitProduction(ctx, widgetCommit("10"))
		}(i)
	}
	wg.Wait()

	committed := 0
	for _, err := range errs {
		if err == nil {
			committed++
			continue
		}
		var stockErr *entities.InsufficientStockError
		assert.True(t, errors.As(err, &stockErr), "got %v", err)
	}
	assert.Equal(t, 3, committed)

	listed, err := store.ListTransactions(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
	assert.True(t, testhelpers.Stock(store, testhelpers.Steel).IsZero())
	assert.True(t, testhelpers.Stock(store, testhelpers.Widget).Equal(testhelpers.Dec("6")))
}

func TestStore_CommitProduction_InactiveItem(t *testing.T) {
	store := openTestStore(t)

	_, err := store.CommitProduction(context.Background(), entities.ProductionCommit{
		Transactions: []entities.ProductionTransaction{{
			ItemID:          testhelpers.Inactive,
			Quantity:        testhelpers.Dec("1"),
			TransactionDate: "2024-03-01",
		}},
	})

	var inactiveErr *entities.InactiveItemError
	require.True(t, errors.As(err, &inactiveErr))
	assert.Equal(t, 1, inactiveErr.Line)
}
