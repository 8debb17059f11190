package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/bomcheck/pkg/application/services/bom"
	"github.com/vsinha/bomcheck/pkg/application/services/costing"
	"github.com/vsinha/bomcheck/pkg/application/services/feasibility"
	"github.com/vsinha/bomcheck/pkg/config"
	"github.com/vsinha/bomcheck/pkg/domain/entities"
	domainservices "github.com/vsinha/bomcheck/pkg/domain/services"
	"github.com/vsinha/bomcheck/pkg/infrastructure/logger"
	"github.com/vsinha/bomcheck/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/bomcheck/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/bomcheck/pkg/interfaces/cli/output"
)

// Analysis commands
const (
	CommandResolve   = "resolve"
	CommandCheck     = "check"
	CommandCost      = "cost"
	CommandWhereUsed = "where-used"
)

// Config holds configuration for the bomcheck analysis command
type Config struct {
	Command     string
	ScenarioDir string
	ItemsFile   string
	BOMFile     string
	PricesFile  string
	Item        string // item code
	Quantity    string
	Date        string
	Labor       bool
	Overhead    bool
	MaxDepth    int
	MaxNodes    int // tree node budget for explosion and costing
	OutputDir   string
	Format      string
	Verbose     bool
	Help        bool
	Out         io.Writer
}

// BOMCheckCommand runs one offline analysis over a CSV scenario
type BOMCheckCommand struct {
	config Config
	out    io.Writer
}

// NewBOMCheckCommand creates a new analysis command with the given configuration
func NewBOMCheckCommand(config Config) *BOMCheckCommand {
	out := config.Out
	if out == nil {
		out = os.Stdout
	}
	return &BOMCheckCommand{config: config, out: out}
}

// Execute loads the scenario into an in-memory store and runs the command
func (c *BOMCheckCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	files, err := c.resolveInputFiles()
	if err != nil {
		return fmt.Errorf("failed to resolve input files: %w", err)
	}

	if c.config.Verbose {
		c.printHeader(files)
	}

	log := zap.NewNop()
	if c.config.Verbose {
		log, err = logger.New(config.LogConfig{Level: "debug", Format: "console"})
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
	}

	scenario, err := c.loadScenario(files)
	if err != nil {
		return err
	}

	validation := domainservices.NewBOMValidator().ValidateBOM(scenario.Edges)
	if !validation.Valid() {
		return fmt.Errorf("BOM validation failed: %s", strings.Join(validation.Errors, "; "))
	}

	store := memory.NewStore(len(scenario.Items), len(scenario.Edges))
	if err := scenario.Populate(ctx, store); err != nil {
		return err
	}

	if c.config.Verbose {
		fmt.Fprintf(c.out, "✅ Data loaded successfully:\n")
		fmt.Fprintf(c.out, "  Items: %d\n", len(scenario.Items))
		fmt.Fprintf(c.out, "  BOM Edges: %d\n", len(scenario.Edges))
		fmt.Fprintf(c.out, "  Prices: %d\n\n", len(scenario.Prices))
	}

	item, err := findItem(scenario.Items, c.config.Item)
	if err != nil {
		return err
	}

	resolver := bom.NewResolver(store, c.config.MaxDepth, log).WithMaxTreeNodes(c.config.MaxNodes)

	startTime := time.Now()
	report, err := c.run(ctx, item, resolver, store, log)
	if err != nil || report == nil {
		return err
	}

	return output.Generate(c.out, report, output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
		Elapsed:   time.Since(startTime),
	})
}

func (c *BOMCheckCommand) run(
	ctx context.Context,
	item entities.Item,
	resolver *bom.Resolver,
	store *memory.Store,
	log *zap.Logger,
) (output.Report, error) {
	switch c.config.Command {
	case CommandResolve:
		quantity, err := c.quantity()
		if err != nil {
			return nil, err
		}
		explosion, err := resolver.NewSession().Explode(ctx, item.ItemID, quantity)
		if err != nil {
			return nil, fmt.Errorf("error resolving BOM: %w", err)
		}
		return output.Explosion(item, explosion), nil

	case CommandCheck:
		quantity, err := c.quantity()
		if err != nil {
			return nil, err
		}
		report, err := feasibility.NewAnalyzer(resolver, store, log).CheckSingle(ctx, item.ItemID, quantity)
		if err != nil {
			return nil, fmt.Errorf("error checking feasibility: %w", err)
		}
		return output.Feasibility(report), nil

	case CommandCost:
		calc := costing.NewCalculator(resolver, store, store, nil, 0, log)
		tree, err := calc.Calculate(ctx, costing.Request{
			ItemID:          item.ItemID,
			EffectiveDate:   c.config.Date,
			IncludeLabor:    c.config.Labor,
			IncludeOverhead: c.config.Overhead,
		})
		if err != nil {
			return nil, fmt.Errorf("error calculating cost: %w", err)
		}
		if c.config.Format == "xlsx" {
			return nil, c.saveWorkbook(tree)
		}
		return output.Cost(tree), nil

	case CommandWhereUsed:
		result, err := resolver.WhereUsed(ctx, item.ItemID)
		if err != nil {
			return nil, fmt.Errorf("error finding where used: %w", err)
		}
		return output.WhereUsed(result), nil
	}
	return nil, fmt.Errorf("unknown command: %s", c.config.Command)
}

func (c *BOMCheckCommand) saveWorkbook(tree *entities.CostTree) error {
	f, filename, err := costing.ExportXLSX(tree)
	if err != nil {
		return fmt.Errorf("error exporting cost workbook: %w", err)
	}
	defer f.Close()

	dir := c.config.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, filename)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	fmt.Fprintf(c.out, "💾 Cost workbook saved to: %s\n", path)
	return nil
}

func (c *BOMCheckCommand) quantity() (decimal.Decimal, error) {
	if c.config.Quantity == "" {
		return decimal.NewFromInt(1), nil
	}
	quantity, err := decimal.NewFromString(c.config.Quantity)
	if err != nil || !quantity.IsPositive() {
		return decimal.Zero, fmt.Errorf("validation error: -quantity must be a number greater than 0")
	}
	return quantity, nil
}

func findItem(items []entities.Item, code string) (entities.Item, error) {
	for _, item := range items {
		if item.Code == code {
			return item, nil
		}
	}
	return entities.Item{}, fmt.Errorf("item %s: %w", code, entities.ErrNotFound)
}

// loadScenario reads the resolved CSV files; prices are optional
func (c *BOMCheckCommand) loadScenario(files map[string]string) (*csv.Scenario, error) {
	loader := csv.NewLoader()

	items, err := loader.LoadItems(files["Items"])
	if err != nil {
		return nil, fmt.Errorf("error loading items: %w", err)
	}
	edges, err := loader.LoadBOM(files["BOM"], items)
	if err != nil {
		return nil, fmt.Errorf("error loading BOM: %w", err)
	}
	scenario := &csv.Scenario{Items: items, Edges: edges}

	if path, ok := files["Prices"]; ok {
		prices, err := loader.LoadPrices(path, items)
		if err != nil {
			return nil, fmt.Errorf("error loading prices: %w", err)
		}
		scenario.Prices = prices
	}
	return scenario, nil
}

// validateInputs validates the command configuration
func (c *BOMCheckCommand) validateInputs() error {
	switch c.config.Command {
	case CommandResolve, CommandCheck, CommandCost, CommandWhereUsed:
	case "":
		return fmt.Errorf("a command is required: resolve, check, cost or where-used")
	default:
		return fmt.Errorf("unknown command %q", c.config.Command)
	}
	if c.config.Item == "" {
		return fmt.Errorf("-item is required")
	}
	if c.config.ScenarioDir == "" && (c.config.BOMFile == "" || c.config.ItemsFile == "") {
		return fmt.Errorf("must specify either -scenario directory or -items and -bom files")
	}
	if c.config.Format == "xlsx" && c.config.Command != CommandCost {
		return fmt.Errorf("xlsx output is only available for cost")
	}
	return nil
}

// resolveInputFiles determines the actual file paths to use
func (c *BOMCheckCommand) resolveInputFiles() (map[string]string, error) {
	files := map[string]string{
		"Items": c.config.ItemsFile,
		"BOM":   c.config.BOMFile,
	}
	pricesPath := c.config.PricesFile
	if c.config.ScenarioDir != "" {
		files["Items"] = filepath.Join(c.config.ScenarioDir, "items.csv")
		files["BOM"] = filepath.Join(c.config.ScenarioDir, "bom.csv")
		candidate := filepath.Join(c.config.ScenarioDir, "prices.csv")
		if _, err := os.Stat(candidate); err == nil {
			pricesPath = candidate
		}
	}
	if pricesPath != "" {
		files["Prices"] = pricesPath
	}

	for name, path := range files {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s file not found: %s", name, path)
		}
	}
	return files, nil
}

// printHeader prints the command header information
func (c *BOMCheckCommand) printHeader(files map[string]string) {
	fmt.Fprintf(c.out, "🚀 bomcheck %s %s\n", c.config.Command, c.config.Item)
	fmt.Fprintf(c.out, "Input files:\n")
	fmt.Fprintf(c.out, "  Items: %s\n", files["Items"])
	fmt.Fprintf(c.out, "  BOM: %s\n", files["BOM"])
	if path, ok := files["Prices"]; ok {
		fmt.Fprintf(c.out, "  Prices: %s\n", path)
	}
	fmt.Fprintf(c.out, "Output format: %s\n", c.config.Format)
	if c.config.OutputDir != "" {
		fmt.Fprintf(c.out, "Output directory: %s\n", c.config.OutputDir)
	}
	fmt.Fprintln(c.out)
}

// showHelp displays the help message
func (c *BOMCheckCommand) showHelp() {
	fmt.Fprint(c.out, `bomcheck - BOM resolution, feasibility and cost analysis

USAGE:
    bomcheck <command> -scenario <directory> -item <code> [OPTIONS]
    bomcheck <command> -items <file> -bom <file> [-prices <file>] -item <code> [OPTIONS]
    bomcheck generate [OPTIONS]

COMMANDS:
    resolve             Explode the BOM and total the leaf materials
    check               Check whether stock covers a production quantity
    cost                Roll component prices up the BOM
    where-used          List every assembly that consumes the item
    generate            Write a synthetic scenario (see bomcheck generate -help)

OPTIONS:
    -scenario <dir>     Directory with items.csv, bom.csv and optional prices.csv
    -items <file>       Path to items CSV file
    -bom <file>         Path to BOM CSV file
    -prices <file>      Path to prices CSV file (optional)
    -item <code>        Item code to analyze
    -quantity <n>       Production quantity for resolve and check (default: 1)
    -date <YYYY-MM-DD>  Price effective date for cost (default: today)
    -labor              Add the labor surcharge to cost
    -overhead           Add the overhead surcharge to cost
    -max-depth <n>      Maximum BOM depth (default: 64)
    -max-tree-nodes <n> Maximum nodes in an explosion or cost tree (default: 250000)
    -output <dir>       Output directory for results (optional)
    -format <fmt>       Output format: text, json, csv, xlsx (cost only) (default: text)
    -verbose            Enable verbose output
    -help               Show this help message

CSV FILE FORMATS:

items.csv:
    item_id,item_code,item_name,unit,current_stock,unit_price,is_active
    10,RM-STEEL,Steel Tube,M,30,,true

bom.csv:
    parent_code,child_code,quantity_required,is_active
    SA-FRAME,RM-STEEL,5,true

prices.csv:
    item_code,unit_price,effective_date
    RM-STEEL,2,2024-01-01

EXAMPLES:
    bomcheck check -scenario scenarios/workshop -item FG-BIKE -quantity 10
    bomcheck cost -scenario scenarios/workshop -item FG-BIKE -labor -overhead -format xlsx -output out/
    bomcheck where-used -scenario scenarios/workshop -item RM-BOLT -format json
`)
}
