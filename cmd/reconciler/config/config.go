// Package config translates CLI flags into the configurations of the
// engine and its collaborators.
package config

import (
	"fmt"

	"settlement-reconciler/internal/classifier"
	"settlement-reconciler/internal/generator"
	"settlement-reconciler/internal/reconciler"
	"settlement-reconciler/internal/reporter"

	"github.com/shopspring/decimal"
)

// CreateEngineConfig builds the engine configuration from CLI values. The
// tolerance arrives as a string and is parsed to a fixed-precision decimal;
// floats never enter the comparison path.
func CreateEngineConfig(tolerance string, workers int, runID string) (*reconciler.Config, error) {
	config := reconciler.DefaultConfig()
	config.RunID = runID
	config.ClassifyWorkers = workers

	if tolerance != "" {
		value, err := decimal.NewFromString(tolerance)
		if err != nil {
			return nil, fmt.Errorf("invalid amount tolerance %q: %w", tolerance, err)
		}
		config.Classifier = &classifier.Config{
			AmountTolerance: value,
			DefaultCurrency: config.Classifier.DefaultCurrency,
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// CreateReportConfig builds a report configuration for the requested format.
func CreateReportConfig(format string, includeMatched bool) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()
	config.IncludeMatched = includeMatched

	switch format {
	case "json":
		config.Format = reporter.FormatJSON
	case "csv":
		config.Format = reporter.FormatCSV
		config.CSVHeaders = true
		config.CSVDelimiter = ','
		// Warnings live in the console and JSON reports; CSV stays flat.
		config.IncludeWarnings = false
	default:
		config.Format = reporter.FormatConsole
	}

	return config
}

// CreateGeneratorConfig builds the fixture generator configuration.
func CreateGeneratorConfig(count int, seed int64) (*generator.Config, error) {
	config := generator.DefaultConfig()
	config.SalesCount = count
	config.Seed = seed

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
