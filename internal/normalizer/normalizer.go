// Package normalizer converts raw heterogeneous records into the canonical
// transaction model. It owns all cleaning rules: field aliasing, trimming,
// casing, currency and amount parsing, date parsing and null handling.
package normalizer

import (
	"fmt"
	"time"

	"settlement-reconciler/internal/models"
	"settlement-reconciler/pkg/errors"
	"settlement-reconciler/pkg/logger"
)

// Config controls how raw fields map onto the canonical model.
type Config struct {
	// Field name candidates, checked in order. Lookups are case-insensitive.
	IDFields        []string
	AmountFields    []string
	StatusFields    []string
	CurrencyFields  []string
	TimestampFields []string

	// DefaultCurrency is assumed when a record carries no currency field.
	DefaultCurrency string
}

// DefaultConfig returns field mappings covering the aliases commonly seen in
// ledger exports and settlement reports.
func DefaultConfig() *Config {
	return &Config{
		IDFields:        []string{"transaction_id", "id", "trx_id", "txn_id", "payment_gateway_id", "reference"},
		AmountFields:    []string{"amount", "amt", "value", "gross_amount", "charged_amount"},
		StatusFields:    []string{"status", "state", "payment_status"},
		CurrencyFields:  []string{"currency", "currency_code", "ccy"},
		TimestampFields: []string{"date", "timestamp", "transaction_date", "created_at", "settled_at"},
		DefaultCurrency: "USD",
	}
}

// Validate checks the configuration for usable field mappings.
func (c *Config) Validate() error {
	if len(c.IDFields) == 0 {
		return fmt.Errorf("at least one identifier field name is required")
	}
	if len(c.AmountFields) == 0 {
		return fmt.Errorf("at least one amount field name is required")
	}
	if c.DefaultCurrency == "" {
		return fmt.Errorf("default currency is required")
	}
	return nil
}

// Normalizer cleans raw records into canonical transactions.
type Normalizer struct {
	config *Config
	log    logger.Logger
}

// New creates a Normalizer with the given configuration.
func New(config *Config) (*Normalizer, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid normalizer configuration: %w", err)
	}

	return &Normalizer{
		config: config,
		log:    logger.GetGlobalLogger().WithComponent("normalizer"),
	}, nil
}

// Normalize converts raw records from one source into canonical transactions.
//
// Per-record failures (missing identifier, unparseable amount) are collected
// into the returned record errors and never abort the batch. A structurally
// malformed input (a record with no fields at all) is fatal and aborts before
// any matching occurs.
func (n *Normalizer) Normalize(records []models.RawRecord, source models.Source) ([]*models.Transaction, []*errors.RecordError, error) {
	if !source.IsValid() {
		return nil, nil, errors.ConfigurationError(errors.CodeInvalidConfig, "source", source)
	}

	transactions := make([]*models.Transaction, 0, len(records))
	var recordErrs []*errors.RecordError

	for i, record := range records {
		ordinal := i + 1

		if len(record) == 0 {
			return nil, nil, errors.Wrap(
				errors.MalformedRecordError(string(source), ordinal),
				errors.CategoryNormalization,
				errors.CodeMalformedRecord,
				fmt.Sprintf("structurally malformed %s input at record %d", source, ordinal),
			).WithContext("source", string(source)).WithContext("records_processed", i)
		}

		tx, recordErr := n.normalizeRecord(record, source, ordinal)
		if recordErr != nil {
			recordErrs = append(recordErrs, recordErr)
			continue
		}

		transactions = append(transactions, tx)
	}

	n.log.WithFields(logger.Fields{
		"source":       string(source),
		"records_in":   len(records),
		"transactions": len(transactions),
		"errors":       len(recordErrs),
	}).Debug("Normalized source records")

	return transactions, recordErrs, nil
}

// normalizeRecord cleans a single raw record. A nil error means the
// transaction is usable by downstream stages.
func (n *Normalizer) normalizeRecord(record models.RawRecord, source models.Source, ordinal int) (*models.Transaction, *errors.RecordError) {
	id, ok := n.lookup(record, n.config.IDFields)
	if !ok {
		return nil, errors.MissingIdentifierError(string(source), ordinal)
	}

	rawAmount, ok := n.lookup(record, n.config.AmountFields)
	if !ok {
		return nil, errors.InvalidAmountError(string(source), ordinal, "", nil)
	}

	amount, err := models.ParseDecimalFromString(rawAmount)
	if err != nil {
		return nil, errors.InvalidAmountError(string(source), ordinal, rawAmount, err)
	}

	currency := n.config.DefaultCurrency
	if rawCurrency, ok := n.lookup(record, n.config.CurrencyFields); ok {
		currency = rawCurrency
	}

	status := models.StatusUnknown
	if rawStatus, ok := n.lookup(record, n.config.StatusFields); ok {
		status = models.ParseStatus(rawStatus)
	}

	tx := models.NewTransaction(id, amount, models.NormalizeCurrency(currency), n.parseTimestamp(record), status, source)
	return tx, nil
}

// parseTimestamp extracts and parses the first usable timestamp field. An
// absent or unparseable timestamp leaves the zero time; timestamps are not
// required for key-based correlation.
func (n *Normalizer) parseTimestamp(record models.RawRecord) time.Time {
	rawTime, ok := n.lookup(record, n.config.TimestampFields)
	if !ok {
		return time.Time{}
	}

	ts, err := models.ParseTimeWithFormats(rawTime)
	if err != nil {
		n.log.WithField("value", rawTime).Debug("Unparseable timestamp, keeping zero time")
		return time.Time{}
	}

	return ts
}

// lookup returns the first present field among the candidates.
func (n *Normalizer) lookup(record models.RawRecord, candidates []string) (string, bool) {
	for _, name := range candidates {
		if value, ok := record.Field(name); ok {
			return value, true
		}
	}
	return "", false
}
