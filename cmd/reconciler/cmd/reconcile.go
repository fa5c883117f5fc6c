package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"settlement-reconciler/cmd/reconciler/config"
	"settlement-reconciler/internal/alerting"
	"settlement-reconciler/internal/loader"
	"settlement-reconciler/internal/reconciler"
	"settlement-reconciler/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	salesDB         string
	salesTable      string
	processorCSV    string
	csvDelimiter    string
	amountTolerance string
	outputFormat    string
	outputFile      string
	includeMatched  bool
	classifyWorkers int
	runID           string
	alertThreshold  int
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile the sales ledger with a settlement report",
	Long: `Reconcile joins the internal sales ledger against the payment
processor's settlement report by transaction identifier and classifies every
record.

This command requires:
- A SQLite sales database (--sales-db)
- A settlement report CSV (--processor-csv)

Examples:
  # Basic reconciliation
  reconciler reconcile --sales-db internal_sales.db --processor-csv settlement.csv

  # Allow one cent of settlement drift and write a JSON report
  reconciler reconcile --sales-db sales.db --processor-csv report.csv \
    --tolerance 0.01 --output-format json --output-file report.json

  # Parallel classification for large batches
  reconciler reconcile --sales-db sales.db --processor-csv report.csv --workers 8`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&salesDB, "sales-db", "s", "", "path to the SQLite sales database (required)")
	reconcileCmd.Flags().StringVarP(&processorCSV, "processor-csv", "p", "", "path to the settlement report CSV (required)")

	// Input flags
	reconcileCmd.Flags().StringVar(&salesTable, "sales-table", "sales", "sales table name in the database")
	reconcileCmd.Flags().StringVar(&csvDelimiter, "csv-delimiter", ",", "settlement CSV field delimiter")

	// Matching configuration flags
	reconcileCmd.Flags().StringVarP(&amountTolerance, "tolerance", "t", "0", "absolute amount tolerance, e.g. 0.01")
	reconcileCmd.Flags().IntVarP(&classifyWorkers, "workers", "w", 1, "classification worker count")
	reconcileCmd.Flags().StringVar(&runID, "run-id", "", "run identifier for audit trails (default: generated)")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	reconcileCmd.Flags().BoolVar(&includeMatched, "include-matched", false, "include matched records in the report")

	// Alerting flags
	reconcileCmd.Flags().IntVar(&alertThreshold, "alert-threshold", 1, "minimum discrepancy count that raises an alert")

	reconcileCmd.MarkFlagRequired("sales-db")
	reconcileCmd.MarkFlagRequired("processor-csv")

	viper.BindPFlag("sales-db", reconcileCmd.Flags().Lookup("sales-db"))
	viper.BindPFlag("processor-csv", reconcileCmd.Flags().Lookup("processor-csv"))
	viper.BindPFlag("sales-table", reconcileCmd.Flags().Lookup("sales-table"))
	viper.BindPFlag("csv-delimiter", reconcileCmd.Flags().Lookup("csv-delimiter"))
	viper.BindPFlag("tolerance", reconcileCmd.Flags().Lookup("tolerance"))
	viper.BindPFlag("workers", reconcileCmd.Flags().Lookup("workers"))
	viper.BindPFlag("run-id", reconcileCmd.Flags().Lookup("run-id"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("include-matched", reconcileCmd.Flags().Lookup("include-matched"))
	viper.BindPFlag("alert-threshold", reconcileCmd.Flags().Lookup("alert-threshold"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	salesDB = viper.GetString("sales-db")
	processorCSV = viper.GetString("processor-csv")
	salesTable = viper.GetString("sales-table")
	csvDelimiter = viper.GetString("csv-delimiter")
	amountTolerance = viper.GetString("tolerance")
	classifyWorkers = viper.GetInt("workers")
	runID = viper.GetString("run-id")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	includeMatched = viper.GetBool("include-matched")
	alertThreshold = viper.GetInt("alert-threshold")

	if salesDB == "" {
		return fmt.Errorf("sales-db is required")
	}
	if processorCSV == "" {
		return fmt.Errorf("processor-csv is required")
	}

	if err := validateFileExists(salesDB, "sales database"); err != nil {
		return err
	}
	if err := validateFileExists(processorCSV, "settlement report"); err != nil {
		return err
	}

	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	if len([]rune(csvDelimiter)) != 1 {
		return fmt.Errorf("csv-delimiter must be a single character, got %q", csvDelimiter)
	}

	if classifyWorkers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	if alertThreshold < 0 {
		return fmt.Errorf("alert-threshold cannot be negative")
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	engineConfig, err := config.CreateEngineConfig(amountTolerance, classifyWorkers, runID)
	if err != nil {
		return err
	}

	engine, err := reconciler.NewEngine(engineConfig)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	salesLoader, err := loader.NewSQLiteLoader(salesDB, salesTable)
	if err != nil {
		return err
	}
	processorLoader := loader.NewCSVLoader(processorCSV).WithDelimiter([]rune(csvDelimiter)[0])

	salesRecords, err := salesLoader.Load(ctx)
	if err != nil {
		return err
	}
	processorRecords, err := processorLoader.Load(ctx)
	if err != nil {
		return err
	}

	result, err := engine.Run(ctx, salesRecords, processorRecords)
	if err != nil {
		return err
	}

	reportGenerator, err := reporter.NewReportGenerator(config.CreateReportConfig(outputFormat, includeMatched))
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	output := os.Stdout
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	}

	if err := reportGenerator.GenerateReport(result, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	alerter := alerting.NewLogAlerter(alertThreshold)
	if err := alerter.Notify(ctx, result); err != nil {
		return fmt.Errorf("failed to deliver alert: %w", err)
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nReconciliation completed.\n")
		fmt.Fprintf(os.Stderr, "Processed %d ledger records and %d settlement records.\n",
			result.Report.SalesRecordsIn, result.Report.ProcessorRecordsIn)
		fmt.Fprintf(os.Stderr, "Found %d distinct transactions, %d discrepancies.\n",
			result.TotalRecords, result.DiscrepancyCount())
		if result.Report.HasWarnings() {
			fmt.Fprintf(os.Stderr, "Collected %d record errors and %d duplicate warnings.\n",
				len(result.Report.RecordErrors), len(result.Report.DuplicateWarnings))
		}
	}

	return nil
}
