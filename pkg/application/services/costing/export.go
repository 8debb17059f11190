package costing

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

const costSheet = "Cost"

var costHeaders = []string{"Level", "Item Code", "Item Name", "Unit", "Quantity", "Unit Price", "Subtotal", "Price Missing"}

// ExportXLSX renders a cost tree as a workbook with one row per tree node,
// indented by level, followed by the cost summary
func ExportXLSX(tree *entities.CostTree) (*excelize.File, string, error) {
	if tree == nil || tree.Root == nil {
		return nil, "", fmt.Errorf("cost tree is empty")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", costSheet); err != nil {
		return nil, "", err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	for i, h := range costHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(costSheet, cell, h)
		f.SetCellStyle(costSheet, cell, cell, headerStyle)
	}

	missing := make(map[entities.ItemID]bool, len(tree.MissingPrices))
	for _, m := range tree.MissingPrices {
		missing[m.ItemID] = true
	}

	row := 2
	tree.Root.Walk(func(node *entities.CostNode) {
		f.SetCellValue(costSheet, fmt.Sprintf("A%d", row), node.Level)
		f.SetCellValue(costSheet, fmt.Sprintf("B%d", row), strings.Repeat("  ", node.Level)+node.Code)
		f.SetCellValue(costSheet, fmt.Sprintf("C%d", row), node.Name)
		f.SetCellValue(costSheet, fmt.Sprintf("D%d", row), node.Unit)
		f.SetCellValue(costSheet, fmt.Sprintf("E%d", row), node.Quantity.InexactFloat64())
		if node.UnitPrice.Valid {
			f.SetCellValue(costSheet, fmt.Sprintf("F%d", row), node.UnitPrice.Decimal.InexactFloat64())
		}
		f.SetCellValue(costSheet, fmt.Sprintf("G%d", row), node.SubtotalCost.InexactFloat64())
		if node.Level > 0 && missing[node.ItemID] {
			f.SetCellValue(costSheet, fmt.Sprintf("H%d", row), "Y")
		}
		row++
	})

	summaryStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	row++
	summary := []struct {
		label string
		value float64
	}{
		{"Material Cost", tree.MaterialCost.InexactFloat64()},
		{"Labor Cost", tree.LaborCost.InexactFloat64()},
		{"Overhead Cost", tree.OverheadCost.InexactFloat64()},
		{"Calculated Price", tree.CalculatedPrice.InexactFloat64()},
	}
	for _, s := range summary {
		f.SetCellValue(costSheet, fmt.Sprintf("F%d", row), s.label)
		f.SetCellValue(costSheet, fmt.Sprintf("G%d", row), s.value)
		f.SetCellStyle(costSheet, fmt.Sprintf("F%d", row), fmt.Sprintf("G%d", row), summaryStyle)
		row++
	}
	if tree.IsLowerBound {
		f.SetCellValue(costSheet, fmt.Sprintf("F%d", row), "Lower bound: some prices are missing")
	}

	widths := []float64{8, 22, 30, 8, 12, 12, 14, 14}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(costSheet, col, col, w)
	}

	filename := fmt.Sprintf("BOM_Cost_%s_%s.xlsx", tree.Code, tree.EffectiveDate)
	return f, filename, nil
}
