package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
	"github.com/vsinha/bomcheck/pkg/domain/repositories"
)

var (
	itemsHeader  = []string{"item_id", "item_code", "item_name", "unit", "current_stock", "unit_price", "is_active"}
	bomHeader    = []string{"parent_code", "child_code", "quantity_required", "is_active"}
	pricesHeader = []string{"item_code", "unit_price", "effective_date"}
)

// Loader handles loading BOM scenarios from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// Scenario is a complete item master, BOM and price list read from CSV
type Scenario struct {
	Items  []entities.Item
	Edges  []entities.BOMEdge
	Prices []repositories.PriceEntry
}

// ScenarioStore is what a scenario can be loaded into
type ScenarioStore interface {
	repositories.ItemRepository
	repositories.BOMRepository
	repositories.PriceRepository
}

// LoadScenario reads items.csv, bom.csv and the optional prices.csv from dir
func (l *Loader) LoadScenario(dir string) (*Scenario, error) {
	items, err := l.LoadItems(filepath.Join(dir, "items.csv"))
	if err != nil {
		return nil, err
	}

	edges, err := l.LoadBOM(filepath.Join(dir, "bom.csv"), items)
	if err != nil {
		return nil, err
	}

	var prices []repositories.PriceEntry
	pricesPath := filepath.Join(dir, "prices.csv")
	if _, err := os.Stat(pricesPath); err == nil {
		prices, err = l.LoadPrices(pricesPath, items)
		if err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat prices file %s: %w", pricesPath, err)
	}

	return &Scenario{Items: items, Edges: edges, Prices: prices}, nil
}

// Populate loads the scenario into a store
func (s *Scenario) Populate(ctx context.Context, store ScenarioStore) error {
	if err := store.LoadItems(ctx, s.Items); err != nil {
		return fmt.Errorf("failed to load items into store: %w", err)
	}
	if err := store.LoadBOMEdges(ctx, s.Edges); err != nil {
		return fmt.Errorf("failed to load BOM edges into store: %w", err)
	}
	if len(s.Prices) > 0 {
		if err := store.LoadPrices(ctx, s.Prices); err != nil {
			return fmt.Errorf("failed to load prices into store: %w", err)
		}
	}
	return nil
}

// LoadItems loads the item master from a CSV file
func (l *Loader) LoadItems(filename string) ([]entities.Item, error) {
	records, err := readRecords(filename, "items", itemsHeader, true)
	if err != nil {
		return nil, err
	}

	items := make([]entities.Item, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, record := range records {
		item, err := parseItem(record)
		if err != nil {
			return nil, fmt.Errorf("items CSV row %d: %w", i+2, err)
		}
		if seen[item.Code] {
			return nil, fmt.Errorf("items CSV row %d: duplicate item_code %s", i+2, item.Code)
		}
		seen[item.Code] = true
		items = append(items, item)
	}

	return items, nil
}

// LoadBOM loads BOM edges from a CSV file, resolving item codes against items
func (l *Loader) LoadBOM(filename string, items []entities.Item) ([]entities.BOMEdge, error) {
	records, err := readRecords(filename, "BOM", bomHeader, true)
	if err != nil {
		return nil, err
	}

	byCode := codeIndex(items)
	edges := make([]entities.BOMEdge, 0, len(records))
	for i, record := range records {
		edge, err := parseBOMEdge(record, byCode)
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, err)
		}
		edges = append(edges, edge)
	}

	return edges, nil
}

// LoadPrices loads effective-dated prices from a CSV file
func (l *Loader) LoadPrices(filename string, items []entities.Item) ([]repositories.PriceEntry, error) {
	records, err := readRecords(filename, "prices", pricesHeader, false)
	if err != nil {
		return nil, err
	}

	byCode := codeIndex(items)
	prices := make([]repositories.PriceEntry, 0, len(records))
	for i, record := range records {
		price, err := parsePrice(record, byCode)
		if err != nil {
			return nil, fmt.Errorf("prices CSV row %d: %w", i+2, err)
		}
		prices = append(prices, price)
	}

	return prices, nil
}

// Helper functions for parsing CSV records

// readRecords reads a CSV file, checks its header and returns the data rows
func readRecords(filename, kind string, expectedHeader []string, requireRows bool) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) == 0 || (requireRows && len(records) < 2) {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}

	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, records[0])
	}

	rows := records[1:]
	for i, record := range rows {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
	}
	return rows, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func codeIndex(items []entities.Item) map[string]entities.ItemID {
	index := make(map[string]entities.ItemID, len(items))
	for _, item := range items {
		index[item.Code] = item.ItemID
	}
	return index
}

func parseItem(record []string) (entities.Item, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	if err != nil {
		return entities.Item{}, fmt.Errorf("invalid item_id: %s", record[0])
	}

	stock, err := decimal.NewFromString(strings.TrimSpace(record[4]))
	if err != nil {
		return entities.Item{}, fmt.Errorf("invalid current_stock: %s", record[4])
	}

	active, err := parseActive(record[6])
	if err != nil {
		return entities.Item{}, err
	}

	item, err := entities.NewItem(entities.ItemID(id), strings.TrimSpace(record[1]), record[2], strings.TrimSpace(record[3]), stock, active)
	if err != nil {
		return entities.Item{}, err
	}

	if raw := strings.TrimSpace(record[5]); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return entities.Item{}, fmt.Errorf("invalid unit_price: %s", record[5])
		}
		if price.IsNegative() {
			return entities.Item{}, fmt.Errorf("unit_price cannot be negative: %s", record[5])
		}
		return item.WithUnitPrice(price), nil
	}

	return *item, nil
}

func parseBOMEdge(record []string, byCode map[string]entities.ItemID) (entities.BOMEdge, error) {
	parentID, ok := byCode[strings.TrimSpace(record[0])]
	if !ok {
		return entities.BOMEdge{}, fmt.Errorf("unknown parent_code: %s", record[0])
	}
	childID, ok := byCode[strings.TrimSpace(record[1])]
	if !ok {
		return entities.BOMEdge{}, fmt.Errorf("unknown child_code: %s", record[1])
	}

	qtyPer, err := decimal.NewFromString(strings.TrimSpace(record[2]))
	if err != nil {
		return entities.BOMEdge{}, fmt.Errorf("invalid quantity_required: %s", record[2])
	}

	active, err := parseActive(record[3])
	if err != nil {
		return entities.BOMEdge{}, err
	}

	edge, err := entities.NewBOMEdge(parentID, childID, qtyPer)
	if err != nil {
		return entities.BOMEdge{}, err
	}
	edge.IsActive = active
	return *edge, nil
}

func parsePrice(record []string, byCode map[string]entities.ItemID) (repositories.PriceEntry, error) {
	itemID, ok := byCode[strings.TrimSpace(record[0])]
	if !ok {
		return repositories.PriceEntry{}, fmt.Errorf("unknown item_code: %s", record[0])
	}

	price, err := decimal.NewFromString(strings.TrimSpace(record[1]))
	if err != nil || price.IsNegative() {
		return repositories.PriceEntry{}, fmt.Errorf("invalid unit_price: %s", record[1])
	}

	date, err := time.Parse(entities.DateLayout, strings.TrimSpace(record[2]))
	if err != nil {
		return repositories.PriceEntry{}, fmt.Errorf("invalid effective_date format: %s (expected YYYY-MM-DD)", record[2])
	}

	return repositories.PriceEntry{ItemID: itemID, UnitPrice: price, EffectiveDate: date}, nil
}

// parseActive treats an empty column as active
func parseActive(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return true, nil
	}
	active, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid is_active: %s (expected true or false)", s)
	}
	return active, nil
}
