package commands

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// GenerateConfig holds configuration for scenario generation
type GenerateConfig struct {
	Items     int     // Total number of items to generate
	MaxDepth  int     // Maximum depth of BOM tree
	Stock     float64 // Stock multiplier over one unit of every root (0.5 = half coverage)
	OutputDir string  // Output directory for generated files
	Seed      int64   // Random seed for reproducible generation
	Help      bool
	Verbose   bool
	Out       io.Writer
}

// GenerateCommand writes a synthetic items/bom/prices scenario
type GenerateCommand struct {
	config GenerateConfig
	rand   *rand.Rand
	out    io.Writer
}

// NewGenerateCommand creates a new generate command
func NewGenerateCommand(config GenerateConfig) *GenerateCommand {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	out := config.Out
	if out == nil {
		out = os.Stdout
	}

	return &GenerateCommand{
		config: config,
		rand:   rand.New(rand.NewSource(seed)),
		out:    out,
	}
}

// genNode is one generated item. Nodes are kept in creation order so a
// fixed seed always yields the same files.
type genNode struct {
	id       int64
	code     string
	level    int
	isRoot   bool
	children []genLink
	parents  []*genNode
}

type genLink struct {
	child    *genNode
	quantity int
}

// Execute runs the generate command
func (cmd *GenerateCommand) Execute(ctx context.Context) error {
	if cmd.config.Help {
		cmd.printHelp()
		return nil
	}
	if cmd.config.Items <= 0 || cmd.config.MaxDepth <= 0 {
		return fmt.Errorf("validation error: -items and -max-depth must be positive")
	}
	if cmd.config.OutputDir == "" {
		return fmt.Errorf("validation error: -output is required")
	}

	if cmd.config.Verbose {
		fmt.Fprintf(cmd.out,
			"🔧 Generating scenario with %d items, max depth %d, %.1fx stock\n",
			cmd.config.Items, cmd.config.MaxDepth, cmd.config.Stock)
		fmt.Fprintf(cmd.out, "📁 Output directory: %s\n", cmd.config.OutputDir)
	}

	if err := os.MkdirAll(cmd.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	nodes := cmd.generateBOMTree()

	if err := cmd.generateItems(nodes); err != nil {
		return fmt.Errorf("failed to generate items: %w", err)
	}
	if err := cmd.generateBOM(nodes); err != nil {
		return fmt.Errorf("failed to generate BOM: %w", err)
	}
	if err := cmd.generatePrices(nodes); err != nil {
		return fmt.Errorf("failed to generate prices: %w", err)
	}

	if cmd.config.Verbose {
		fmt.Fprintf(cmd.out, "✅ Scenario generated successfully in %s\n", cmd.config.OutputDir)
	}
	return nil
}

// generateBOMTree builds a layered DAG where about one child in five is an
// existing part shared with another parent
func (cmd *GenerateCommand) generateBOMTree() []*genNode {
	var nodes []*genNode
	newNode := func(code string, level int) *genNode {
		node := &genNode{id: int64(len(nodes) + 1), code: code, level: level}
		nodes = append(nodes, node)
		return node
	}

	numRoots := max(1, cmd.config.Items/50+cmd.rand.Intn(3))
	if numRoots > cmd.config.Items {
		numRoots = cmd.config.Items
	}
	var currentLevel []*genNode
	for i := 0; i < numRoots; i++ {
		root := newNode(fmt.Sprintf("FG-%03d", i+1), 0)
		root.isRoot = true
		currentLevel = append(currentLevel, root)
	}

	level := 0
	for level < cmd.config.MaxDepth && len(nodes) < cmd.config.Items {
		level++
		var nextLevel []*genNode

		for _, parent := range currentLevel {
			numChildren := 2 + cmd.rand.Intn(7)

			for c := 0; c < numChildren && len(nodes) < cmd.config.Items; c++ {
				var child *genNode
				if level > 1 && cmd.rand.Float64() < 0.2 {
					candidates := cmd.findShareableParts(nodes, level, parent)
					if len(candidates) > 0 {
						child = candidates[cmd.rand.Intn(len(candidates))]
					}
				}
				if child == nil {
					child = newNode(fmt.Sprintf("PT-L%d-%04d", level, len(nodes)+1), level)
					nextLevel = append(nextLevel, child)
				}

				qty := 1 + cmd.rand.Intn(5)
				if level > 2 {
					qty += cmd.rand.Intn(5)
				}
				parent.children = append(parent.children, genLink{child: child, quantity: qty})
				child.parents = append(child.parents, parent)
			}
		}

		if len(nextLevel) == 0 {
			break
		}
		currentLevel = nextLevel
	}

	// Leftover items hang off the deepest level as raw materials
	for len(nodes) < cmd.config.Items && len(currentLevel) > 0 {
		parent := currentLevel[cmd.rand.Intn(len(currentLevel))]
		node := newNode(fmt.Sprintf("RM-%04d", len(nodes)+1), parent.level+1)
		parent.children = append(parent.children, genLink{child: node, quantity: 1 + cmd.rand.Intn(10)})
		node.parents = append(node.parents, parent)
	}

	return nodes
}

// findShareableParts lists existing parts that can take parent as one more
// consumer without closing a cycle or duplicating an edge
func (cmd *GenerateCommand) findShareableParts(nodes []*genNode, level int, parent *genNode) []*genNode {
	var candidates []*genNode
	for _, node := range nodes {
		if node.isRoot || node == parent || node.level < level-1 || len(node.parents) >= 3 {
			continue
		}
		if isAncestor(node, parent) || hasChild(parent, node) {
			continue
		}
		candidates = append(candidates, node)
	}
	return candidates
}

// isAncestor reports whether candidate is reachable upward from node
func isAncestor(candidate, node *genNode) bool {
	visited := make(map[*genNode]bool)
	var walk func(n *genNode) bool
	walk = func(n *genNode) bool {
		if visited[n] {
			return false
		}
		visited[n] = true
		for _, p := range n.parents {
			if p == candidate || walk(p) {
				return true
			}
		}
		return false
	}
	return walk(node)
}

func hasChild(parent, child *genNode) bool {
	for _, link := range parent.children {
		if link.child == child {
			return true
		}
	}
	return false
}

// writeCSVFile creates name under the output directory and writes rows
func (cmd *GenerateCommand) writeCSVFile(name string, rows [][]string) error {
	file, err := os.Create(filepath.Join(cmd.config.OutputDir, name))
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	if cmd.config.Verbose {
		fmt.Fprintf(cmd.out, "📦 Wrote %s (%d rows)\n", name, len(rows)-1)
	}
	return nil
}

// generateItems writes items.csv. Stock covers Stock times the requirement
// of one unit of every root; assemblies start empty.
func (cmd *GenerateCommand) generateItems(nodes []*genNode) error {
	needed := cmd.calculatePartCounts(nodes)
	multiplier := decimal.NewFromFloat(cmd.config.Stock)

	rows := [][]string{{"item_id", "item_code", "item_name", "unit", "current_stock", "unit_price", "is_active"}}
	for _, node := range nodes {
		stock := decimal.Zero
		if len(node.children) == 0 {
			stock = decimal.NewFromInt(needed[node]).Mul(multiplier).Floor()
		}
		rows = append(rows, []string{
			strconv.FormatInt(node.id, 10),
			node.code,
			cmd.generateDescription(node),
			"EA",
			stock.String(),
			"",
			"true",
		})
	}
	return cmd.writeCSVFile("items.csv", rows)
}

// generateDescription creates a readable item name
func (cmd *GenerateCommand) generateDescription(node *genNode) string {
	switch {
	case node.isRoot:
		return fmt.Sprintf("%s Complete Assembly", node.code)
	case len(node.children) == 0:
		kinds := []string{"Sheet", "Bar", "Fastener", "Cable", "Resin", "Gasket"}
		return fmt.Sprintf("%s %s", node.code, kinds[cmd.rand.Intn(len(kinds))])
	case node.level <= 2:
		return fmt.Sprintf("%s Subassembly", node.code)
	default:
		kinds := []string{"Component", "Module", "Unit", "Block", "Element"}
		return fmt.Sprintf("%s %s", node.code, kinds[cmd.rand.Intn(len(kinds))])
	}
}

// generateBOM writes bom.csv
func (cmd *GenerateCommand) generateBOM(nodes []*genNode) error {
	rows := [][]string{{"parent_code", "child_code", "quantity_required", "is_active"}}
	for _, parent := range nodes {
		for _, link := range parent.children {
			rows = append(rows, []string{parent.code, link.child.code, strconv.Itoa(link.quantity), "true"})
		}
	}
	return cmd.writeCSVFile("bom.csv", rows)
}

// generatePrices writes prices.csv with one 2024-01-01 price per raw material
func (cmd *GenerateCommand) generatePrices(nodes []*genNode) error {
	rows := [][]string{{"item_code", "unit_price", "effective_date"}}
	for _, node := range nodes {
		if len(node.children) > 0 {
			continue
		}
		price := decimal.New(int64(50+cmd.rand.Intn(4950)), -2)
		rows = append(rows, []string{node.code, price.StringFixed(2), "2024-01-01"})
	}
	return cmd.writeCSVFile("prices.csv", rows)
}

// calculatePartCounts totals how many of each part one unit of every root
// consumes, following every path through shared parts
func (cmd *GenerateCommand) calculatePartCounts(nodes []*genNode) map[*genNode]int64 {
	counts := make(map[*genNode]int64)
	var explode func(node *genNode, qty int64)
	explode = func(node *genNode, qty int64) {
		counts[node] += qty
		for _, link := range node.children {
			explode(link.child, qty*int64(link.quantity))
		}
	}
	for _, node := range nodes {
		if node.isRoot {
			explode(node, 1)
		}
	}
	return counts
}

// printHelp shows usage information
func (cmd *GenerateCommand) printHelp() {
	fmt.Fprintln(cmd.out, `BOM Scenario Generator

USAGE:
    bomcheck generate [OPTIONS]

OPTIONS:
    -items <N>          Number of items to generate (required)
    -max-depth <N>      Maximum depth of BOM tree (required)
    -stock <F>          Stock multiplier over one unit of every root (default 1.0)
    -output <DIR>       Output directory for generated files (required)
    -seed <N>           Random seed for reproducible generation (optional)
    -verbose            Enable verbose output
    -help               Show this help message

EXAMPLES:
    # Generate a small scenario with half the stock one unit of each root needs
    bomcheck generate -items 100 -max-depth 5 -stock 0.5 -output ./small

    # Generate a reproducible large scenario
    bomcheck generate -items 20000 -max-depth 8 -stock 1.2 -output ./large -seed 12345`)
}
