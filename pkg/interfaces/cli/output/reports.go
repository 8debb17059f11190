package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/bomcheck/pkg/application/services/bom"
	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

func indent(level int) string {
	return strings.Repeat("  ", level)
}

func formatLimit(limit *decimal.Decimal) string {
	if limit == nil {
		return "unbounded"
	}
	return limit.String()
}

func formatPrice(price decimal.NullDecimal) string {
	if !price.Valid {
		return ""
	}
	return price.Decimal.String()
}

type explosionReport struct {
	item      entities.Item
	explosion *bom.Explosion
}

// Explosion wraps a flattened BOM of item
func Explosion(item entities.Item, explosion *bom.Explosion) Report {
	return explosionReport{item: item, explosion: explosion}
}

func (r explosionReport) name() string { return "explosion" }

func (r explosionReport) payload() interface{} { return r.explosion }

func (r explosionReport) writeText(w io.Writer) {
	fmt.Fprintf(w, "📦 BOM Explosion: %s (%s) x %s\n", r.item.Code, r.item.Name, r.explosion.Quantity)
	fmt.Fprintf(w, "======================\n\n")

	if len(r.explosion.Lines) == 0 {
		fmt.Fprintf(w, "No BOM: the item is its own material.\n\n")
	} else {
		fmt.Fprintf(w, "%-30s %-8s %-12s %-12s\n", "Item", "Unit", "Qty Per", "Total Qty")
		fmt.Fprintf(w, "%-30s %-8s %-12s %-12s\n",
			"------------------------------", "--------", "------------", "------------")
		for _, line := range r.explosion.Lines {
			fmt.Fprintf(w, "%-30s %-8s %-12s %-12s\n",
				indent(line.Level-1)+line.Code,
				line.Unit,
				line.QuantityPerUnit.String(),
				line.CumulativeQuantity.String())
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "🧾 Leaf Materials:\n")
	fmt.Fprintf(w, "%-15s %-25s %-12s\n", "Item Code", "Name", "Quantity")
	fmt.Fprintf(w, "%-15s %-25s %-12s\n", "---------------", "-------------------------", "------------")
	for _, req := range r.explosion.Requirements {
		fmt.Fprintf(w, "%-15s %-25s %-12s\n", req.Code, req.Name, req.Quantity.String())
	}
}

func (r explosionReport) header() []string {
	return []string{"level", "parent_item_id", "item_code", "item_name", "unit", "quantity_required", "cumulative_quantity", "is_leaf"}
}

func (r explosionReport) rows() [][]string {
	rows := make([][]string, 0, len(r.explosion.Lines))
	for _, line := range r.explosion.Lines {
		rows = append(rows, []string{
			strconv.Itoa(line.Level),
			strconv.FormatInt(int64(line.ParentItemID), 10),
			line.Code,
			line.Name,
			line.Unit,
			line.QuantityPerUnit.String(),
			line.CumulativeQuantity.String(),
			strconv.FormatBool(line.IsLeaf),
		})
	}
	return rows
}

type feasibilityReport struct {
	report *entities.FeasibilityReport
}

// Feasibility wraps a single-item stock check
func Feasibility(report *entities.FeasibilityReport) Report {
	return feasibilityReport{report: report}
}

func (r feasibilityReport) name() string { return "feasibility" }

func (r feasibilityReport) payload() interface{} { return r.report }

func (r feasibilityReport) writeText(w io.Writer) {
	rep := r.report
	verdict := "✅ can produce"
	if !rep.CanProduce {
		verdict = "⚠️  cannot produce"
	}
	fmt.Fprintf(w, "📊 Feasibility: %s (%s) x %s\n", rep.Code, rep.Name, rep.Quantity)
	fmt.Fprintf(w, "======================\n\n")
	fmt.Fprintf(w, "Result: %s\n", verdict)
	fmt.Fprintf(w, "Max producible: %s\n", formatLimit(rep.MaxProducibleQuantity))
	if rep.Bottleneck != nil {
		fmt.Fprintf(w, "Bottleneck: %s (%s)\n", rep.Bottleneck.Code, rep.Bottleneck.Name)
	}
	fmt.Fprintf(w, "Fulfillment rate: %s%%\n\n", rep.Summary.FulfillmentRate)

	fmt.Fprintf(w, "%-15s %-10s %-10s %-10s %-10s %-10s\n",
		"Item Code", "Per Unit", "Required", "Available", "Shortage", "Max Prod")
	fmt.Fprintf(w, "%-15s %-10s %-10s %-10s %-10s %-10s\n",
		"---------------", "----------", "----------", "----------", "----------", "----------")
	for _, m := range rep.Materials {
		fmt.Fprintf(w, "%-15s %-10s %-10s %-10s %-10s %-10s\n",
			m.Code,
			m.PerUnitRequirement.String(),
			m.RequiredQuantity.String(),
			m.AvailableStock.String(),
			m.Shortage.String(),
			formatLimit(m.MaxProducibleByThisItem))
	}
}

func (r feasibilityReport) header() []string {
	return []string{"item_code", "item_name", "unit", "bom_quantity_per_unit", "required_quantity", "available_stock", "shortage", "sufficient", "max_producible_by_this_item"}
}

func (r feasibilityReport) rows() [][]string {
	rows := make([][]string, 0, len(r.report.Materials))
	for _, m := range r.report.Materials {
		limit := ""
		if m.MaxProducibleByThisItem != nil {
			limit = m.MaxProducibleByThisItem.String()
		}
		rows = append(rows, []string{
			m.Code,
			m.Name,
			m.Unit,
			m.PerUnitRequirement.String(),
			m.RequiredQuantity.String(),
			m.AvailableStock.String(),
			m.Shortage.String(),
			strconv.FormatBool(m.Sufficient),
			limit,
		})
	}
	return rows
}

type costReport struct {
	tree *entities.CostTree
}

// Cost wraps a cost roll-up
func Cost(tree *entities.CostTree) Report {
	return costReport{tree: tree}
}

func (r costReport) name() string { return "cost" }

func (r costReport) payload() interface{} { return r.tree }

func (r costReport) writeText(w io.Writer) {
	tree := r.tree
	fmt.Fprintf(w, "💰 Cost Roll-up: %s (%s) on %s\n", tree.Code, tree.Name, tree.EffectiveDate)
	fmt.Fprintf(w, "======================\n\n")

	fmt.Fprintf(w, "%-30s %-10s %-12s %-12s\n", "Item", "Qty", "Unit Price", "Subtotal")
	fmt.Fprintf(w, "%-30s %-10s %-12s %-12s\n",
		"------------------------------", "----------", "------------", "------------")
	tree.Root.Walk(func(node *entities.CostNode) {
		price := formatPrice(node.UnitPrice)
		if price == "" && node.IsLeaf() {
			price = "-"
		}
		fmt.Fprintf(w, "%-30s %-10s %-12s %-12s\n",
			indent(node.Level)+node.Code,
			node.Quantity.String(),
			price,
			node.SubtotalCost.String())
	})
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Material: %s\n", tree.MaterialCost)
	fmt.Fprintf(w, "Labor:    %s\n", tree.LaborCost)
	fmt.Fprintf(w, "Overhead: %s\n", tree.OverheadCost)
	fmt.Fprintf(w, "Price:    %s\n", tree.CalculatedPrice)

	if tree.IsLowerBound {
		fmt.Fprintf(w, "\n⚠️  %d component(s) without price, the price is a lower bound:\n", len(tree.MissingPrices))
		for _, m := range tree.MissingPrices {
			fmt.Fprintf(w, "  %s (%s) at level %d\n", m.Code, m.Name, m.Level)
		}
	}
}

func (r costReport) header() []string {
	return []string{"level", "item_code", "item_name", "unit", "quantity", "unit_price", "subtotal_cost"}
}

func (r costReport) rows() [][]string {
	var rows [][]string
	r.tree.Root.Walk(func(node *entities.CostNode) {
		rows = append(rows, []string{
			strconv.Itoa(node.Level),
			node.Code,
			node.Name,
			node.Unit,
			node.Quantity.String(),
			formatPrice(node.UnitPrice),
			node.SubtotalCost.String(),
		})
	})
	return rows
}

type whereUsedReport struct {
	result *entities.WhereUsedResult
}

// WhereUsed wraps a reverse BOM lookup
func WhereUsed(result *entities.WhereUsedResult) Report {
	return whereUsedReport{result: result}
}

func (r whereUsedReport) name() string { return "where_used" }

func (r whereUsedReport) payload() interface{} { return r.result }

func (r whereUsedReport) writeText(w io.Writer) {
	res := r.result
	fmt.Fprintf(w, "🔍 Where Used: %s (%s)\n", res.Child.Code, res.Child.Name)
	fmt.Fprintf(w, "======================\n\n")
	fmt.Fprintf(w, "Direct parents: %d\n", res.Summary.DirectParents)
	fmt.Fprintf(w, "Total ancestors: %d\n", res.Summary.TotalAncestors)
	fmt.Fprintf(w, "Max level: %d\n\n", res.Summary.MaxLevel)

	if len(res.WhereUsed) == 0 {
		fmt.Fprintf(w, "Not used in any BOM.\n")
		return
	}
	fmt.Fprintf(w, "%-6s %-15s %-25s %-10s %s\n", "Level", "Parent Code", "Parent Name", "Qty Per", "Path")
	fmt.Fprintf(w, "%-6s %-15s %-25s %-10s %s\n",
		"------", "---------------", "-------------------------", "----------", "----")
	for _, e := range res.WhereUsed {
		fmt.Fprintf(w, "%-6d %-15s %-25s %-10s %s\n",
			e.Level, e.ParentCode, e.ParentName, e.QuantityPerUnit.String(), e.UsagePath)
	}
}

func (r whereUsedReport) header() []string {
	return []string{"level_no", "parent_item_code", "parent_item_name", "quantity_required", "usage_path"}
}

func (r whereUsedReport) rows() [][]string {
	rows := make([][]string, 0, len(r.result.WhereUsed))
	for _, e := range r.result.WhereUsed {
		rows = append(rows, []string{
			strconv.Itoa(e.Level),
			e.ParentCode,
			e.ParentName,
			e.QuantityPerUnit.String(),
			e.UsagePath,
		})
	}
	return rows
}
