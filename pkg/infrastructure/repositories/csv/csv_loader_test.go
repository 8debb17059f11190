package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
	"github.com/vsinha/bomcheck/pkg/infrastructure/repositories/memory"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_LoadScenario_Workshop(t *testing.T) {
	scenario, err := NewLoader().LoadScenario("../../../../scenarios/workshop")
	require.NoError(t, err)

	assert.Len(t, scenario.Items, 11)
	assert.Len(t, scenario.Edges, 9)
	assert.Len(t, scenario.Prices, 3)

	store := memory.NewStore(len(scenario.Items), len(scenario.Edges))
	require.NoError(t, scenario.Populate(context.Background(), store))

	edges, err := store.GetBOMEdges(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, edges, 3)
	assert.True(t, edges[1].QuantityPerUnit.Equal(decimal.RequireFromString("0.5")))
}

func TestLoader_LoadItems(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "items.csv", `item_id,item_code,item_name,unit,current_stock,unit_price,is_active
1,FG-A,Assembly,,0,,
2,RM-B,Bar,KG,12.5,3.25,false
`)

	items, err := NewLoader().LoadItems(path)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, entities.ItemID(1), items[0].ItemID)
	assert.Equal(t, "EA", items[0].Unit)
	assert.True(t, items[0].IsActive)
	assert.False(t, items[0].UnitPrice.Valid)

	assert.Equal(t, "KG", items[1].Unit)
	assert.False(t, items[1].IsActive)
	assert.True(t, items[1].CurrentStock.Equal(decimal.RequireFromString("12.5")))
	require.True(t, items[1].UnitPrice.Valid)
	assert.True(t, items[1].UnitPrice.Decimal.Equal(decimal.RequireFromString("3.25")))
}

func TestLoader_Errors(t *testing.T) {
	const header = "item_id,item_code,item_name,unit,current_stock,unit_price,is_active\n"

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty", "", "must have header"},
		{"header only", header, "must have header"},
		{"bad header", "id,code\n1,A\n", "header mismatch"},
		{"bad id", header + "x,A,A,EA,0,,true\n", "invalid item_id"},
		{"negative stock", header + "1,A,A,EA,-1,,true\n", "current stock cannot be negative"},
		{"bad active", header + "1,A,A,EA,0,,maybe\n", "invalid is_active"},
		{"duplicate code", header + "1,A,A,EA,0,,true\n2,A,B,EA,0,,true\n", "duplicate item_code"},
		{"column count", header + "1,A,A,EA,0,true\n", "wrong number of fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "items.csv", tt.content)
			_, err := NewLoader().LoadItems(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoader_LoadBOM_ResolvesCodes(t *testing.T) {
	items := []entities.Item{
		{ItemID: 1, Code: "FG-A", IsActive: true},
		{ItemID: 2, Code: "RM-B", IsActive: true},
	}

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown child", "parent_code,child_code,quantity_required,is_active\nFG-A,RM-X,1,true\n", "unknown child_code"},
		{"self reference", "parent_code,child_code,quantity_required,is_active\nFG-A,FG-A,1,true\n", "cannot be the same"},
		{"zero quantity", "parent_code,child_code,quantity_required,is_active\nFG-A,RM-B,0,true\n", "must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "bom.csv", tt.content)
			_, err := NewLoader().LoadBOM(path, items)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	path := writeFile(t, t.TempDir(), "bom.csv", "parent_code,child_code,quantity_required,is_active\nFG-A,RM-B,2.5,false\n")
	edges, err := NewLoader().LoadBOM(path, items)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, entities.ItemID(1), edges[0].ParentItemID)
	assert.Equal(t, entities.ItemID(2), edges[0].ChildItemID)
	assert.False(t, edges[0].IsActive)
}

func TestLoader_LoadScenario_PricesOptional(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "items.csv", "item_id,item_code,item_name,unit,current_stock,unit_price,is_active\n1,FG-A,A,EA,0,,true\n2,RM-B,B,EA,5,,true\n")
	writeFile(t, dir, "bom.csv", "parent_code,child_code,quantity_required,is_active\nFG-A,RM-B,1,true\n")

	scenario, err := NewLoader().LoadScenario(dir)
	require.NoError(t, err)
	assert.Empty(t, scenario.Prices)

	writeFile(t, dir, "prices.csv", "item_code,unit_price,effective_date\nRM-B,4,2024/01/01\n")
	_, err = NewLoader().LoadScenario(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid effective_date")
}
