package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vsinha/bomcheck/pkg/interfaces/cli/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	command := ""
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	if command == "generate" {
		return runGenerate(ctx, args)
	}

	fs := flag.NewFlagSet("bomcheck", flag.ExitOnError)
	var (
		scenarioDir = fs.String("scenario", "", "Path to scenario directory containing CSV files")
		itemsFile   = fs.String("items", "", "Path to items CSV file")
		bomFile     = fs.String("bom", "", "Path to BOM CSV file")
		pricesFile  = fs.String("prices", "", "Path to prices CSV file (optional)")
		item        = fs.String("item", "", "Item code to analyze")
		quantity    = fs.String("quantity", "", "Production quantity (default 1)")
		date        = fs.String("date", "", "Price effective date, YYYY-MM-DD (default today)")
		labor       = fs.Bool("labor", false, "Include the labor surcharge in cost")
		overhead    = fs.Bool("overhead", false, "Include the overhead surcharge in cost")
		maxDepth    = fs.Int("max-depth", 64, "Maximum BOM depth")
		maxNodes    = fs.Int("max-tree-nodes", 250000, "Maximum nodes in an explosion or cost tree")
		outputDir   = fs.String("output", "", "Output directory for results (optional)")
		format      = fs.String("format", "text", "Output format: text, json, csv, xlsx")
		verbose     = fs.Bool("verbose", false, "Enable verbose output")
		help        = fs.Bool("help", false, "Show help message")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := commands.NewBOMCheckCommand(commands.Config{
		Command:     command,
		ScenarioDir: *scenarioDir,
		ItemsFile:   *itemsFile,
		BOMFile:     *bomFile,
		PricesFile:  *pricesFile,
		Item:        *item,
		Quantity:    *quantity,
		Date:        *date,
		Labor:       *labor,
		Overhead:    *overhead,
		MaxDepth:    *maxDepth,
		MaxNodes:    *maxNodes,
		OutputDir:   *outputDir,
		Format:      *format,
		Verbose:     *verbose,
		Help:        *help || command == "help",
	})
	return cmd.Execute(ctx)
}

func runGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bomcheck generate", flag.ExitOnError)
	var (
		items     = fs.Int("items", 0, "Number of items to generate")
		maxDepth  = fs.Int("max-depth", 0, "Maximum depth of BOM tree")
		stock     = fs.Float64("stock", 1.0, "Stock multiplier over one unit of every root")
		outputDir = fs.String("output", "", "Output directory for generated files")
		seed      = fs.Int64("seed", 0, "Random seed for reproducible generation")
		verbose   = fs.Bool("verbose", false, "Enable verbose output")
		help      = fs.Bool("help", false, "Show help message")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := commands.NewGenerateCommand(commands.GenerateConfig{
		Items:     *items,
		MaxDepth:  *maxDepth,
		Stock:     *stock,
		OutputDir: *outputDir,
		Seed:      *seed,
		Verbose:   *verbose,
		Help:      *help,
	})
	return cmd.Execute(ctx)
}
