// Package classifier assigns every match record to exactly one discrepancy
// category under configurable tolerance rules.
//
// Rules are evaluated in a fixed priority order and short-circuit at the
// first match, which guarantees a single unambiguous category per record:
//
//  1. MissingInProcessor: present in sales, absent in processor
//  2. MissingInSales:     present in processor, absent in sales
//  3. FailedPayment:      present in both, processor status failed/refunded
//  4. AmountMismatch:     amounts differ beyond tolerance (or currencies differ)
//  5. Matched:            amounts within tolerance
//
// The order must not be changed.
package classifier

import (
	"fmt"

	"settlement-reconciler/internal/matcher"
	"settlement-reconciler/internal/models"
	"settlement-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
)

// Category is one of the five mutually exclusive classification outcomes.
type Category string

const (
	MissingInProcessor Category = "missing_in_processor"
	MissingInSales     Category = "missing_in_sales"
	FailedPayment      Category = "failed_payment"
	AmountMismatch     Category = "amount_mismatch"
	Matched            Category = "matched"
)

// Categories lists all categories in rule-priority order.
var Categories = []Category{
	MissingInProcessor,
	MissingInSales,
	FailedPayment,
	AmountMismatch,
	Matched,
}

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// IsDiscrepancy reports whether the category represents a discrepancy rather
// than a clean match.
func (c Category) IsDiscrepancy() bool {
	return c != Matched
}

// Config carries the recognized classification options.
type Config struct {
	// AmountTolerance is the maximum allowed absolute amount difference
	// still considered matched. A difference exactly equal to the tolerance
	// classifies as Matched.
	AmountTolerance decimal.Decimal

	// DefaultCurrency is used only for detail messages; the engine performs
	// no currency conversion.
	DefaultCurrency string
}

// DefaultConfig returns a zero-tolerance configuration.
func DefaultConfig() *Config {
	return &Config{
		AmountTolerance: decimal.Zero,
		DefaultCurrency: "USD",
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.AmountTolerance.IsNegative() {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "amount_tolerance", c.AmountTolerance.String())
	}
	return nil
}

// Classify applies the ordered discrepancy rules to a match record and
// returns its category plus a deterministic, human-readable explanation
// enabling audit review without re-deriving the computation.
//
// Classify is a pure function of its inputs: no side effects, and the
// classification of one record never depends on another's outcome.
func Classify(record *matcher.MatchRecord, config *Config) (Category, string) {
	if config == nil {
		config = DefaultConfig()
	}

	// Rule 1: present in sales, absent in processor.
	if record.SalesOnly() {
		return MissingInProcessor, fmt.Sprintf("present in sales (amount=%s %s), absent in processor",
			record.Sales.Amount.StringFixed(2), currencyOf(record.Sales, config))
	}

	// Rule 2: present in processor, absent in sales.
	if record.ProcessorOnly() {
		return MissingInSales, fmt.Sprintf("present in processor (amount=%s %s), absent in sales",
			record.Processor.Amount.StringFixed(2), currencyOf(record.Processor, config))
	}

	// Rule 3: the settlement side reports the payment as failed or refunded.
	if record.Processor.Status == models.StatusFailed || record.Processor.Status == models.StatusRefunded {
		return FailedPayment, fmt.Sprintf("processor reports status=%s (sales=%s processor=%s)",
			record.Processor.Status,
			record.Sales.Amount.StringFixed(2), record.Processor.Amount.StringFixed(2))
	}

	diff := record.Sales.Amount.Sub(record.Processor.Amount).Abs()

	// Rule 4a: a currency mismatch between sides is reported as an
	// AmountMismatch-class note even when amounts are numerically equal;
	// the engine performs no conversion.
	if record.Sales.Currency != record.Processor.Currency {
		return AmountMismatch, fmt.Sprintf("currency mismatch: sales=%s %s processor=%s %s diff=%s tolerance=%s",
			record.Sales.Amount.StringFixed(2), currencyOf(record.Sales, config),
			record.Processor.Amount.StringFixed(2), currencyOf(record.Processor, config),
			diff.StringFixed(2), config.AmountTolerance.StringFixed(2))
	}

	// Rule 4b: amounts differ beyond tolerance.
	if !models.CompareAmountsWithTolerance(record.Sales.Amount, record.Processor.Amount, config.AmountTolerance) {
		return AmountMismatch, fmt.Sprintf("sales=%s processor=%s diff=%s tolerance=%s",
			record.Sales.Amount.StringFixed(2), record.Processor.Amount.StringFixed(2),
			diff.StringFixed(2), config.AmountTolerance.StringFixed(2))
	}

	// Rule 5: statuses compatible, amounts within tolerance.
	return Matched, fmt.Sprintf("sales=%s processor=%s diff=%s tolerance=%s",
		record.Sales.Amount.StringFixed(2), record.Processor.Amount.StringFixed(2),
		diff.StringFixed(2), config.AmountTolerance.StringFixed(2))
}

// currencyOf returns the transaction currency, falling back to the config
// default for detail rendering only.
func currencyOf(tx *models.Transaction, config *Config) string {
	if tx.Currency != "" {
		return tx.Currency
	}
	return config.DefaultCurrency
}
