package generator

import (
	"context"
	"path/filepath"
	"testing"

	"settlement-reconciler/internal/classifier"
	"settlement-reconciler/internal/loader"
	"settlement-reconciler/internal/reconciler"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"default", func(*Config) {}, false},
		{"zero sales", func(c *Config) { c.SalesCount = 0 }, true},
		{"injected exceeds sales", func(c *Config) { c.SalesCount = 3; c.MissingInProcessor = 4 }, true},
		{"negative count", func(c *Config) { c.ProcessorOnly = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGenerate_RoundTripThroughEngine(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sales.db")
	csvPath := filepath.Join(dir, "settlement.csv")

	config := &Config{
		SalesCount:         20,
		MissingInProcessor: 2,
		AmountMismatches:   3,
		FailedPayments:     1,
		ProcessorOnly:      2,
		Seed:               42,
	}

	gen, err := New(config)
	require.NoError(t, err)
	require.NoError(t, gen.Generate(context.Background(), dbPath, csvPath))

	ctx := context.Background()

	salesLoader, err := loader.NewSQLiteLoader(dbPath, "sales")
	require.NoError(t, err)
	salesRecords, err := salesLoader.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, salesRecords, 20)

	processorRecords, err := loader.NewCSVLoader(csvPath).Load(ctx)
	require.NoError(t, err)
	// 20 ledger rows minus 2 dropped, plus 2 processor-only rows.
	assert.Len(t, processorRecords, 20)

	engine, err := reconciler.NewEngine(reconciler.DefaultConfig())
	require.NoError(t, err)

	result, err := engine.Run(ctx, salesRecords, processorRecords)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Group(classifier.MissingInProcessor).Count)
	assert.Equal(t, 2, result.Group(classifier.MissingInSales).Count)
	assert.Equal(t, 1, result.Group(classifier.FailedPayment).Count)
	assert.Equal(t, 3, result.Group(classifier.AmountMismatch).Count)
	assert.Equal(t, 14, result.Group(classifier.Matched).Count)
}

func TestGenerate_Reproducible(t *testing.T) {
	config := &Config{SalesCount: 5, Seed: 7}

	first, err := New(config)
	require.NoError(t, err)
	second, err := New(config)
	require.NoError(t, err)

	firstSales := first.generateSales()
	secondSales := second.generateSales()

	require.Len(t, firstSales, 5)
	for i := range firstSales {
		assert.Equal(t, firstSales[i].TransactionID, secondSales[i].TransactionID)
		assert.True(t, firstSales[i].Amount.Equal(secondSales[i].Amount))
		assert.Equal(t, firstSales[i].SaleDate, secondSales[i].SaleDate)
	}
}

func TestGenerate_AmountsHaveTwoDecimalPlaces(t *testing.T) {
	gen, err := New(&Config{SalesCount: 50, Seed: 1})
	require.NoError(t, err)

	for _, sale := range gen.generateSales() {
		assert.True(t, sale.Amount.Exponent() >= -2, "amount %s has more than two decimal places", sale.Amount)
		assert.True(t, sale.Amount.GreaterThanOrEqual(decimal.NewFromInt(100)))
		assert.True(t, sale.Amount.LessThan(decimal.NewFromInt(1000)))
	}
}
