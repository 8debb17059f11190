package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	Elapsed   time.Duration
}

// Report is a printable analysis result. Implementations live in this
// package; use Explosion, Feasibility, Cost or WhereUsed to build one.
type Report interface {
	// name is the base file name used when saving to OutputDir
	name() string
	payload() interface{}
	writeText(w io.Writer)
	header() []string
	rows() [][]string
}

// Generate writes the report to w, or to OutputDir when one is set, in the
// configured format
func Generate(w io.Writer, report Report, config Config) error {
	switch config.Format {
	case "", "text":
		return generateTextOutput(w, report, config)
	case "json":
		return generateJSONOutput(w, report, config)
	case "csv":
		return generateCSVOutput(w, report, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput creates human-readable text output
func generateTextOutput(w io.Writer, report Report, config Config) error {
	report.writeText(w)
	if config.Verbose && config.Elapsed > 0 {
		fmt.Fprintf(w, "\nCompleted in %v\n", config.Elapsed)
	}

	if config.OutputDir == "" {
		return nil
	}
	filename, err := outputPath(config.OutputDir, report.name()+".txt")
	if err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create text file: %w", err)
	}
	defer f.Close()
	report.writeText(f)

	if config.Verbose {
		fmt.Fprintf(w, "💾 Results saved to: %s\n", filename)
	}
	return nil
}

// generateJSONOutput creates JSON output
func generateJSONOutput(w io.Writer, report Report, config Config) error {
	jsonData, err := json.MarshalIndent(report.payload(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		fmt.Fprintln(w, string(jsonData))
		return nil
	}

	filename, err := outputPath(config.OutputDir, report.name()+".json")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(w, "💾 JSON results saved to: %s\n", filename)
	}
	return nil
}

// generateCSVOutput writes one CSV row per report line
func generateCSVOutput(w io.Writer, report Report, config Config) error {
	if config.OutputDir == "" {
		return writeCSV(w, report)
	}

	filename, err := outputPath(config.OutputDir, report.name()+".csv")
	if err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer f.Close()

	if err := writeCSV(f, report); err != nil {
		return err
	}
	if config.Verbose {
		fmt.Fprintf(w, "💾 CSV results saved to: %s\n", filename)
	}
	return nil
}

func writeCSV(w io.Writer, report Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(report.header()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writer.WriteAll(report.rows()); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

// outputPath creates dir if needed and joins file onto it
func outputPath(dir, file string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(dir, file), nil
}
