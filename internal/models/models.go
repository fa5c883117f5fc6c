// Package models defines the canonical transaction model shared by every
// stage of the reconciliation pipeline, plus the parsing helpers that turn
// raw field values into typed ones.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies which dataset a transaction came from.
type Source string

const (
	// SourceSales is the internal sales ledger.
	SourceSales Source = "sales"
	// SourceProcessor is the payment-processor settlement report.
	SourceProcessor Source = "processor"
)

// String returns the string representation of the source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is one of the two known datasets.
func (s Source) IsValid() bool {
	return s == SourceSales || s == SourceProcessor
}

// Status is the settlement status of a transaction.
type Status string

const (
	StatusSettled  Status = "settled"
	StatusPending  Status = "pending"
	StatusFailed   Status = "failed"
	StatusRefunded Status = "refunded"
	// StatusUnknown is assigned when a raw status string is unrecognized.
	// Unknown is diagnostic information for the classifier, not an error.
	StatusUnknown Status = "unknown"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus maps a raw status string to a Status. Unrecognized values map
// to StatusUnknown rather than failing.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "settled", "success", "succeeded", "completed", "paid":
		return StatusSettled
	case "pending", "processing", "in_progress":
		return StatusPending
	case "failed", "failure", "declined", "error":
		return StatusFailed
	case "refunded", "refund", "reversed", "chargeback":
		return StatusRefunded
	default:
		return StatusUnknown
	}
}

// RawRecord is one heterogeneous input record: a mapping of field name to
// value, as supplied by a data-loading collaborator. The engine is agnostic
// to the original storage.
type RawRecord map[string]interface{}

// Field returns the trimmed string form of the named field, tolerating the
// lower/upper-case header variants real exports produce.
func (r RawRecord) Field(name string) (string, bool) {
	for key, value := range r {
		if !strings.EqualFold(strings.TrimSpace(key), name) {
			continue
		}
		if value == nil {
			return "", false
		}
		s := strings.TrimSpace(fmt.Sprintf("%v", value))
		if s == "" {
			return "", false
		}
		return s, true
	}
	return "", false
}

// Transaction is the canonical, post-normalization transaction shape. All
// downstream components operate only on this typed model.
type Transaction struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Timestamp time.Time       `json:"timestamp"`
	Status    Status          `json:"status"`
	Source    Source          `json:"source"`
}

// NewTransaction creates a new Transaction instance.
func NewTransaction(id string, amount decimal.Decimal, currency string, ts time.Time, status Status, source Source) *Transaction {
	return &Transaction{
		ID:        id,
		Amount:    amount,
		Currency:  currency,
		Timestamp: ts,
		Status:    status,
		Source:    source,
	}
}

// Validate performs basic validation on the Transaction.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("transaction ID cannot be empty")
	}

	if !t.Source.IsValid() {
		return fmt.Errorf("invalid transaction source: %s", t.Source)
	}

	return nil
}

// String returns a string representation of the Transaction.
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{ID: %s, Amount: %s %s, Status: %s, Source: %s}",
		t.ID, t.Amount.String(), t.Currency, t.Status, t.Source)
}

// MarshalJSON renders the amount as a string so precision survives transport.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	type Alias Transaction
	return json.Marshal(&struct {
		Amount    string `json:"amount"`
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Amount:    t.Amount.String(),
		Timestamp: t.Timestamp.UTC().Format(time.RFC3339),
		Alias:     (*Alias)(t),
	})
}

// Equals compares two Transaction instances for equality.
func (t *Transaction) Equals(other *Transaction) bool {
	if other == nil {
		return false
	}

	return t.ID == other.ID &&
		t.Amount.Equal(other.Amount) &&
		t.Currency == other.Currency &&
		t.Timestamp.Equal(other.Timestamp) &&
		t.Status == other.Status &&
		t.Source == other.Source
}

// ParseDecimalFromString parses a fixed-precision decimal from a raw amount
// string, stripping currency symbols and thousands separators first.
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	// Strip common currency symbols and thousand separators
	for _, symbol := range []string{"$", "€", "£", "¥", ","} {
		s = strings.ReplaceAll(s, symbol, "")
	}
	s = strings.TrimSpace(s)

	// Accounting exports sometimes render negatives as (12.34)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// NormalizeCurrency uppercases and trims an ISO-style currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ParseTimeWithFormats attempts to parse a timestamp using the layouts
// commonly found in ledger exports and settlement reports. The result is
// normalized to UTC.
func ParseTimeWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("time string cannot be empty")
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
		"01/02/2006 15:04:05",
		"01/02/2006",
		"2006/01/02",
		"Jan 2, 2006",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time '%s': %w", s, lastErr)
}

// CompareAmountsWithTolerance reports whether two amounts differ by no more
// than tolerance. The boundary counts as within tolerance.
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}
