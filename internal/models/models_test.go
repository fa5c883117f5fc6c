package models

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected Status
	}{
		{"settled", StatusSettled},
		{"SETTLED", StatusSettled},
		{" completed ", StatusSettled},
		{"succeeded", StatusSettled},
		{"pending", StatusPending},
		{"processing", StatusPending},
		{"failed", StatusFailed},
		{"DECLINED", StatusFailed},
		{"refunded", StatusRefunded},
		{"chargeback", StatusRefunded},
		{"", StatusUnknown},
		{"banana", StatusUnknown},
	}

	for _, tt := range tests {
		if got := ParseStatus(tt.input); got != tt.expected {
			t.Errorf("ParseStatus(%q): expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestSource_IsValid(t *testing.T) {
	if !SourceSales.IsValid() || !SourceProcessor.IsValid() {
		t.Error("Expected known sources to be valid")
	}

	if Source("bank").IsValid() {
		t.Error("Expected unknown source to be invalid")
	}
}

func TestRawRecord_Field(t *testing.T) {
	record := RawRecord{
		"Transaction_ID": " T1 ",
		"amount":         100.50,
		"empty":          "   ",
		"nil":            nil,
	}

	if v, ok := record.Field("transaction_id"); !ok || v != "T1" {
		t.Errorf("Expected case-insensitive trimmed lookup, got %q (ok=%v)", v, ok)
	}

	if v, ok := record.Field("amount"); !ok || v != "100.5" {
		t.Errorf("Expected numeric field as string, got %q (ok=%v)", v, ok)
	}

	if _, ok := record.Field("empty"); ok {
		t.Error("Expected blank field to be reported missing")
	}

	if _, ok := record.Field("nil"); ok {
		t.Error("Expected nil field to be reported missing")
	}

	if _, ok := record.Field("absent"); ok {
		t.Error("Expected absent field to be reported missing")
	}
}

func TestTransaction_Validate(t *testing.T) {
	tx := NewTransaction("T1", decimal.NewFromInt(10), "USD", time.Now(), StatusSettled, SourceSales)
	if err := tx.Validate(); err != nil {
		t.Errorf("Expected valid transaction, got error: %v", err)
	}

	tx.ID = "  "
	if err := tx.Validate(); err == nil {
		t.Error("Expected error for blank ID")
	}

	tx.ID = "T1"
	tx.Source = "bank"
	if err := tx.Validate(); err == nil {
		t.Error("Expected error for invalid source")
	}
}

func TestTransaction_Equals(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewTransaction("T1", decimal.RequireFromString("10.00"), "USD", ts, StatusSettled, SourceSales)
	b := NewTransaction("T1", decimal.RequireFromString("10"), "USD", ts, StatusSettled, SourceSales)

	if !a.Equals(b) {
		t.Error("Expected decimal-equal amounts to compare equal")
	}

	b.Amount = decimal.RequireFromString("10.01")
	if a.Equals(b) {
		t.Error("Expected differing amounts to compare unequal")
	}

	if a.Equals(nil) {
		t.Error("Expected comparison against nil to be false")
	}
}

func TestTransaction_MarshalJSON(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tx := NewTransaction("T1", decimal.RequireFromString("99.90"), "USD", ts, StatusSettled, SourceSales)

	data, err := tx.MarshalJSON()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	if !strings.Contains(string(data), `"amount":"99.9"`) {
		t.Errorf("Expected string amount in JSON, got %s", data)
	}
	if !strings.Contains(string(data), `"timestamp":"2024-03-01T12:00:00Z"`) {
		t.Errorf("Expected RFC3339 UTC timestamp in JSON, got %s", data)
	}
}

func TestParseDecimalFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"100.50", "100.5", false},
		{"$1,234.56", "1234.56", false},
		{"€99.99", "99.99", false},
		{" 42 ", "42", false},
		{"(12.34)", "-12.34", false},
		{"-0.01", "-0.01", false},
		{"", "", true},
		{"abc", "", true},
		{"12.34.56", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDecimalFromString(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDecimalFromString(%q): expected error, got %s", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDecimalFromString(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got.String() != tt.expected {
			t.Errorf("ParseDecimalFromString(%q): expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestNormalizeCurrency(t *testing.T) {
	if got := NormalizeCurrency(" usd "); got != "USD" {
		t.Errorf("Expected USD, got %q", got)
	}
}

func TestParseTimeWithFormats(t *testing.T) {
	tests := []string{
		"2024-03-01T12:00:00Z",
		"2024-03-01 12:00:00",
		"2024-03-01",
		"03/01/2024",
	}

	for _, input := range tests {
		parsed, err := ParseTimeWithFormats(input)
		if err != nil {
			t.Errorf("ParseTimeWithFormats(%q): unexpected error: %v", input, err)
			continue
		}
		if parsed.Location() != time.UTC {
			t.Errorf("ParseTimeWithFormats(%q): expected UTC, got %s", input, parsed.Location())
		}
	}

	if _, err := ParseTimeWithFormats("not a date"); err == nil {
		t.Error("Expected error for unparseable time")
	}

	if _, err := ParseTimeWithFormats(""); err == nil {
		t.Error("Expected error for empty time string")
	}
}

func TestCompareAmountsWithTolerance(t *testing.T) {
	tolerance := decimal.RequireFromString("1.00")

	a := decimal.RequireFromString("100.00")
	b := decimal.RequireFromString("101.00")
	if !CompareAmountsWithTolerance(a, b, tolerance) {
		t.Error("Expected |diff| == tolerance to be within tolerance")
	}

	c := decimal.RequireFromString("101.01")
	if CompareAmountsWithTolerance(a, c, tolerance) {
		t.Error("Expected |diff| just over tolerance to be outside tolerance")
	}
}
