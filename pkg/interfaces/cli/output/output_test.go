package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

func whereUsedFixture() *entities.WhereUsedResult {
	return &entities.WhereUsedResult{
		Child: entities.Item{ItemID: 14, Code: "RM-BOLT", Name: "Bolt", Unit: "EA", IsActive: true},
		WhereUsed: []entities.WhereUsedEntry{
			{ParentItemID: 1, ParentCode: "FG-BIKE", ParentName: "Bicycle", QuantityPerUnit: decimal.NewFromInt(4), Level: 1, UsagePath: "FG-BIKE > RM-BOLT"},
			{ParentItemID: 2, ParentCode: "SA-FRAME", ParentName: "Frame", QuantityPerUnit: decimal.NewFromInt(2), Level: 1, UsagePath: "SA-FRAME > RM-BOLT"},
		},
		Summary: entities.WhereUsedSummary{DirectParents: 2, TotalAncestors: 2, MaxLevel: 1},
	}
}

func TestGenerate_CSVToWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, WhereUsed(whereUsedFixture()), Config{Format: "csv"}))

	want := "level_no,parent_item_code,parent_item_name,quantity_required,usage_path\n" +
		"1,FG-BIKE,Bicycle,4,FG-BIKE > RM-BOLT\n" +
		"1,SA-FRAME,Frame,2,SA-FRAME > RM-BOLT\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("csv output mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate_TextSavedToDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, WhereUsed(whereUsedFixture()), Config{Format: "text", OutputDir: dir, Verbose: true}))

	assert.Contains(t, buf.String(), "Where Used: RM-BOLT (Bolt)")
	assert.Contains(t, buf.String(), "Results saved to")

	saved, err := os.ReadFile(filepath.Join(dir, "where_used.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), string(saved)))
}

func TestGenerate_JSONToDir(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, WhereUsed(whereUsedFixture()), Config{Format: "json", OutputDir: dir}))
	assert.Empty(t, buf.String())

	data, err := os.ReadFile(filepath.Join(dir, "where_used.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"direct_parents": 2`)
}

func TestGenerate_UnsupportedFormat(t *testing.T) {
	err := Generate(&bytes.Buffer{}, WhereUsed(whereUsedFixture()), Config{Format: "yaml"})
	assert.EqualError(t, err, "unsupported output format: yaml")
}

func TestFeasibilityText_UnboundedLimit(t *testing.T) {
	report := &entities.FeasibilityReport{
		Code:       "FG-KIT",
		Name:       "Kit",
		Quantity:   decimal.NewFromInt(3),
		CanProduce: true,
		Materials: []entities.MaterialFeasibility{
			{Code: "RM-AIR", PerUnitRequirement: decimal.Zero, RequiredQuantity: decimal.Zero},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, Feasibility(report), Config{}))
	assert.Contains(t, buf.String(), "Max producible: unbounded")
	assert.Contains(t, buf.String(), "✅ can produce")
}
