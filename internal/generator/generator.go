// Package generator produces synthetic test fixtures: a SQLite sales ledger
// and a matching payment-processor settlement report with discrepancies of
// every category deliberately injected. Intended for demos and integration
// testing of the reconciliation pipeline.
package generator

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"time"

	"settlement-reconciler/pkg/errors"
	"settlement-reconciler/pkg/logger"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Config controls the shape of the generated datasets.
type Config struct {
	// SalesCount is the number of ledger rows to generate.
	SalesCount int

	// Injected discrepancies. Each count consumes distinct ledger rows.
	MissingInProcessor int
	AmountMismatches   int
	FailedPayments     int

	// ProcessorOnly is the number of settlement rows with no ledger
	// counterpart.
	ProcessorOnly int

	// Seed makes generation reproducible. Zero seeds from the clock.
	Seed int64
}

// DefaultConfig mirrors the proportions of a typical daily settlement batch.
func DefaultConfig() *Config {
	return &Config{
		SalesCount:         100,
		MissingInProcessor: 2,
		AmountMismatches:   2,
		FailedPayments:     1,
		ProcessorOnly:      2,
	}
}

// Validate checks the configuration for generatable values.
func (c *Config) Validate() error {
	if c.SalesCount < 1 {
		return fmt.Errorf("sales count must be at least 1, got %d", c.SalesCount)
	}

	injected := c.MissingInProcessor + c.AmountMismatches + c.FailedPayments
	if injected > c.SalesCount {
		return fmt.Errorf("injected discrepancies (%d) exceed sales count (%d)", injected, c.SalesCount)
	}
	if c.MissingInProcessor < 0 || c.AmountMismatches < 0 || c.FailedPayments < 0 || c.ProcessorOnly < 0 {
		return fmt.Errorf("discrepancy counts cannot be negative")
	}

	return nil
}

// saleRow is one generated ledger entry.
type saleRow struct {
	TransactionID string
	SaleDate      string
	ProductID     string
	Amount        decimal.Decimal
}

// Generator builds paired synthetic datasets.
type Generator struct {
	config *Config
	rng    *rand.Rand
	log    logger.Logger
}

// New creates a generator with the given configuration.
func New(config *Config) (*Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator configuration: %w", err)
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
		log:    logger.GetGlobalLogger().WithComponent("generator"),
	}, nil
}

// Generate writes the sales ledger to a SQLite database at dbPath and the
// settlement report to a CSV file at csvPath.
func (g *Generator) Generate(ctx context.Context, dbPath, csvPath string) error {
	sales := g.generateSales()

	if err := g.writeSalesDB(ctx, dbPath, sales); err != nil {
		return err
	}
	if err := g.writeProcessorCSV(csvPath, sales); err != nil {
		return err
	}

	g.log.WithFields(logger.Fields{
		"db_path":  dbPath,
		"csv_path": csvPath,
		"sales":    len(sales),
	}).Info("Generated synthetic reconciliation fixtures")

	return nil
}

func (g *Generator) generateSales() []saleRow {
	baseDate := time.Now().UTC().AddDate(0, 0, -120)

	sales := make([]saleRow, g.config.SalesCount)
	for i := range sales {
		sales[i] = saleRow{
			TransactionID: fmt.Sprintf("T%05d", i+1),
			SaleDate:      baseDate.AddDate(0, 0, g.rng.Intn(121)).Format("2006-01-02"),
			ProductID:     fmt.Sprintf("P%03d", g.rng.Intn(20)+1),
			Amount:        g.randomAmount(),
		}
	}
	return sales
}

// randomAmount returns a value in [100, 1000) with two decimal places.
func (g *Generator) randomAmount() decimal.Decimal {
	cents := 10000 + g.rng.Intn(90000)
	return decimal.New(int64(cents), -2)
}

func (g *Generator) writeSalesDB(ctx context.Context, path string, sales []saleRow) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return errors.DataSourceError(errors.CodeSourceUnavailable, path, err)
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS sales (
		transaction_id TEXT PRIMARY KEY,
		sale_date TEXT NOT NULL,
		product_id TEXT NOT NULL,
		amount TEXT NOT NULL
	)`)
	if err != nil {
		return errors.Wrap(err, errors.CategoryData, errors.CodeProcessingError, "failed to create sales table")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.CategoryData, errors.CodeProcessingError, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO sales (transaction_id, sale_date, product_id, amount) VALUES (?, ?, ?, ?)")
	if err != nil {
		return errors.Wrap(err, errors.CategoryData, errors.CodeProcessingError, "failed to prepare insert")
	}
	defer stmt.Close()

	for _, sale := range sales {
		if _, err := stmt.ExecContext(ctx, sale.TransactionID, sale.SaleDate, sale.ProductID, sale.Amount.StringFixed(2)); err != nil {
			return errors.Wrap(err, errors.CategoryData, errors.CodeProcessingError, "failed to insert sale")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.CategoryData, errors.CodeProcessingError, "failed to commit sales")
	}
	return nil
}

func (g *Generator) writeProcessorCSV(path string, sales []saleRow) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.DataSourceError(errors.CodeSourceUnavailable, path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"payment_gateway_id", "transaction_date", "status", "charged_amount"}); err != nil {
		return errors.Wrap(err, errors.CategoryData, errors.CodeProcessingError, "failed to write settlement header")
	}

	// Consume ledger rows from the front for each injected discrepancy; the
	// rest settle cleanly.
	cursor := 0
	take := func(n int) []saleRow {
		rows := sales[cursor : cursor+n]
		cursor += n
		return rows
	}

	// Rows missing from the processor are dropped from the report entirely.
	take(g.config.MissingInProcessor)

	for _, sale := range take(g.config.AmountMismatches) {
		drift := decimal.New(int64(g.rng.Intn(500)+1), -2)
		if g.rng.Intn(2) == 0 {
			drift = drift.Neg()
		}
		if err := g.writeSettlementRow(writer, sale.TransactionID, sale.SaleDate, "completed", sale.Amount.Add(drift)); err != nil {
			return err
		}
	}

	for _, sale := range take(g.config.FailedPayments) {
		if err := g.writeSettlementRow(writer, sale.TransactionID, sale.SaleDate, "failed", sale.Amount); err != nil {
			return err
		}
	}

	for _, sale := range sales[cursor:] {
		if err := g.writeSettlementRow(writer, sale.TransactionID, sale.SaleDate, "completed", sale.Amount); err != nil {
			return err
		}
	}

	for i := 0; i < g.config.ProcessorOnly; i++ {
		id := "X-" + uuid.NewString()[:8]
		date := time.Now().UTC().AddDate(0, 0, -g.rng.Intn(121)).Format("2006-01-02")
		if err := g.writeSettlementRow(writer, id, date, "completed", g.randomAmount()); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func (g *Generator) writeSettlementRow(writer *csv.Writer, id, date, status string, amount decimal.Decimal) error {
	if err := writer.Write([]string{id, date, status, amount.StringFixed(2)}); err != nil {
		return errors.Wrap(err, errors.CategoryData, errors.CodeProcessingError, "failed to write settlement row")
	}
	return nil
}
