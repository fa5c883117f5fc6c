// Package reporter renders reconciliation results for people and programs.
//
// Supported output formats:
//   - Console: human-readable sections per discrepancy category
//   - JSON: structured output for programmatic consumption
//   - CSV: flat per-record rows for spreadsheet review
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"settlement-reconciler/internal/classifier"
	"settlement-reconciler/internal/reconciler"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation.
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeMatched  bool `json:"include_matched"`
	IncludeWarnings bool `json:"include_warnings"`

	// Console formatting options
	MaxRecordsPerCategory int `json:"max_records_per_category"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration.
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:                FormatConsole,
		IncludeMatched:        false,
		IncludeWarnings:       true,
		MaxRecordsPerCategory: 10,
		CSVDelimiter:          ',',
		CSVHeaders:            true,
	}
}

// Validate validates the report configuration.
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.MaxRecordsPerCategory < 1 {
		return fmt.Errorf("max records per category must be at least 1, got %d", c.MaxRecordsPerCategory)
	}

	return nil
}

// ReportGenerator renders reconciliation results in the configured format.
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a report generator with the specified configuration.
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{config: config}, nil
}

// GenerateReport renders the result to the provided writer.
func (rg *ReportGenerator) GenerateReport(result *reconciler.ReconciliationResult, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("reconciliation result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	case FormatCSV:
		return rg.generateCSVReport(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateConsoleReport(result *reconciler.ReconciliationResult, writer io.Writer) error {
	fmt.Fprintf(writer, "SETTLEMENT RECONCILIATION REPORT\n")
	if result.RunID != "" {
		fmt.Fprintf(writer, "Run ID:    %s\n", result.RunID)
	}
	fmt.Fprintf(writer, "Generated: %s\n\n", result.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	fmt.Fprintf(writer, "Total Records:       %d\n", result.TotalRecords)
	fmt.Fprintf(writer, "Discrepancies:       %d\n", result.DiscrepancyCount())
	fmt.Fprintf(writer, "Total Discrepancy:   %s\n\n", result.TotalDiscrepancy.StringFixed(2))

	for _, group := range result.Groups {
		fmt.Fprintf(writer, "%-22s %d", categoryLabel(group.Category)+":", group.Count)
		if group.Category.IsDiscrepancy() && !group.TotalDiscrepancy.IsZero() {
			fmt.Fprintf(writer, " (total %s)", group.TotalDiscrepancy.StringFixed(2))
		}
		fmt.Fprintf(writer, "\n")
	}
	fmt.Fprintf(writer, "\n")

	for _, group := range result.Groups {
		if group.Count == 0 {
			continue
		}
		if group.Category == classifier.Matched && !rg.config.IncludeMatched {
			continue
		}

		fmt.Fprintf(writer, "=== %s (%d) ===\n", categoryHeader(group.Category), group.Count)
		for i, record := range group.Records {
			if i >= rg.config.MaxRecordsPerCategory {
				fmt.Fprintf(writer, "  ... and %d more\n", group.Count-rg.config.MaxRecordsPerCategory)
				break
			}
			fmt.Fprintf(writer, "  %d. %s: %s\n", i+1, record.Record.ID, record.Detail)
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeWarnings && result.Report != nil && result.Report.HasWarnings() {
		fmt.Fprintf(writer, "=== DATA QUALITY WARNINGS ===\n")
		for _, recordErr := range result.Report.RecordErrors {
			fmt.Fprintf(writer, "  - %s\n", recordErr.Error())
		}
		for _, warning := range result.Report.DuplicateWarnings {
			fmt.Fprintf(writer, "  - %s\n", warning.Error())
		}
		fmt.Fprintf(writer, "\n")
	}

	return nil
}

func (rg *ReportGenerator) generateJSONReport(result *reconciler.ReconciliationResult, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(rg.filterResultForOutput(result))
}

func (rg *ReportGenerator) generateCSVReport(result *reconciler.ReconciliationResult, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"Category",
			"Transaction_ID",
			"Sales_Amount",
			"Processor_Amount",
			"Processor_Status",
			"Detail",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, group := range result.Groups {
		if group.Category == classifier.Matched && !rg.config.IncludeMatched {
			continue
		}

		for _, record := range group.Records {
			row := []string{
				string(group.Category),
				record.Record.ID,
				"",
				"",
				"",
				record.Detail,
			}
			if record.Record.Sales != nil {
				row[2] = record.Record.Sales.Amount.StringFixed(2)
			}
			if record.Record.Processor != nil {
				row[3] = record.Record.Processor.Amount.StringFixed(2)
				row[4] = string(record.Record.Processor.Status)
			}
			if err := csvWriter.Write(row); err != nil {
				return fmt.Errorf("failed to write record row: %w", err)
			}
		}
	}

	return csvWriter.Error()
}

func (rg *ReportGenerator) filterResultForOutput(result *reconciler.ReconciliationResult) map[string]interface{} {
	groups := result.Groups
	if !rg.config.IncludeMatched {
		filtered := make([]*reconciler.CategoryGroup, 0, len(groups))
		for _, group := range groups {
			if group.Category == classifier.Matched {
				continue
			}
			filtered = append(filtered, group)
		}
		groups = filtered
	}

	output := map[string]interface{}{
		"run_id":            result.RunID,
		"generated_at":      result.GeneratedAt,
		"total_records":     result.TotalRecords,
		"discrepancies":     result.DiscrepancyCount(),
		"total_discrepancy": result.TotalDiscrepancy,
		"groups":            groups,
	}

	if rg.config.IncludeWarnings && result.Report != nil {
		output["report"] = result.Report
	}

	return output
}

// UpdateConfiguration replaces the generator configuration.
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}

	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration.
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}

func categoryLabel(category classifier.Category) string {
	switch category {
	case classifier.MissingInProcessor:
		return "Missing in Processor"
	case classifier.MissingInSales:
		return "Missing in Sales"
	case classifier.FailedPayment:
		return "Failed Payments"
	case classifier.AmountMismatch:
		return "Amount Mismatches"
	case classifier.Matched:
		return "Matched"
	default:
		return string(category)
	}
}

func categoryHeader(category classifier.Category) string {
	switch category {
	case classifier.MissingInProcessor:
		return "MISSING IN PROCESSOR"
	case classifier.MissingInSales:
		return "MISSING IN SALES"
	case classifier.FailedPayment:
		return "FAILED PAYMENTS"
	case classifier.AmountMismatch:
		return "AMOUNT MISMATCHES"
	case classifier.Matched:
		return "MATCHED"
	default:
		return string(category)
	}
}
