package cmd

import (
	"context"
	"fmt"
	"os"

	"settlement-reconciler/cmd/reconciler/config"
	"settlement-reconciler/internal/generator"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the seed command
var (
	seedSalesDB      string
	seedProcessorCSV string
	seedCount        int
	seedValue        int64
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate synthetic reconciliation fixtures",
	Long: `Seed writes a synthetic sales ledger to a SQLite database and a matching
settlement report CSV with discrepancies of every category injected. Useful
for demos and for exercising the reconcile command end to end.

Examples:
  reconciler seed --sales-db internal_sales.db --processor-csv settlement.csv
  reconciler seed --sales-db sales.db --processor-csv report.csv --count 500 --seed 42`,

	PreRunE: validateSeedFlags,
	RunE:    runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedSalesDB, "sales-db", "", "path for the generated SQLite sales database (required)")
	seedCmd.Flags().StringVar(&seedProcessorCSV, "processor-csv", "", "path for the generated settlement report CSV (required)")
	seedCmd.Flags().IntVar(&seedCount, "count", 100, "number of ledger rows to generate")
	seedCmd.Flags().Int64Var(&seedValue, "seed", 0, "random seed for reproducible fixtures (0: from the clock)")

	seedCmd.MarkFlagRequired("sales-db")
	seedCmd.MarkFlagRequired("processor-csv")
}

func validateSeedFlags(cmd *cobra.Command, args []string) error {
	if seedSalesDB == "" {
		return fmt.Errorf("sales-db is required")
	}
	if seedProcessorCSV == "" {
		return fmt.Errorf("processor-csv is required")
	}
	if seedCount < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	if _, err := os.Stat(seedSalesDB); err == nil {
		return fmt.Errorf("sales database already exists: %s", seedSalesDB)
	}
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	generatorConfig, err := config.CreateGeneratorConfig(seedCount, seedValue)
	if err != nil {
		return err
	}

	gen, err := generator.New(generatorConfig)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	if err := gen.Generate(context.Background(), seedSalesDB, seedProcessorCSV); err != nil {
		return err
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Wrote %d ledger rows to %s and the settlement report to %s\n",
			seedCount, seedSalesDB, seedProcessorCSV)
	}

	return nil
}
