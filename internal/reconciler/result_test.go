package reconciler

import (
	"testing"

	"settlement-reconciler/internal/classifier"
	"settlement-reconciler/internal/matcher"
	"settlement-reconciler/internal/models"
	"settlement-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
)

func classifiedFixture() []*ClassifiedRecord {
	salesOnly := &matcher.MatchRecord{
		ID: "A",
		Sales: &models.Transaction{
			ID: "A", Amount: decimal.RequireFromString("100.00"),
			Currency: "USD", Status: models.StatusSettled, Source: models.SourceSales,
		},
	}
	processorOnly := &matcher.MatchRecord{
		ID: "B",
		Processor: &models.Transaction{
			ID: "B", Amount: decimal.RequireFromString("30.00"),
			Currency: "USD", Status: models.StatusSettled, Source: models.SourceProcessor,
		},
	}
	mismatch := &matcher.MatchRecord{
		ID: "C",
		Sales: &models.Transaction{
			ID: "C", Amount: decimal.RequireFromString("75.00"),
			Currency: "USD", Status: models.StatusSettled, Source: models.SourceSales,
		},
		Processor: &models.Transaction{
			ID: "C", Amount: decimal.RequireFromString("70.00"),
			Currency: "USD", Status: models.StatusSettled, Source: models.SourceProcessor,
		},
	}
	matched := &matcher.MatchRecord{
		ID: "D",
		Sales: &models.Transaction{
			ID: "D", Amount: decimal.RequireFromString("10.00"),
			Currency: "USD", Status: models.StatusSettled, Source: models.SourceSales,
		},
		Processor: &models.Transaction{
			ID: "D", Amount: decimal.RequireFromString("10.00"),
			Currency: "USD", Status: models.StatusSettled, Source: models.SourceProcessor,
		},
	}

	return []*ClassifiedRecord{
		{Record: salesOnly, Category: classifier.MissingInProcessor, Detail: "d1"},
		{Record: processorOnly, Category: classifier.MissingInSales, Detail: "d2"},
		{Record: mismatch, Category: classifier.AmountMismatch, Detail: "d3"},
		{Record: matched, Category: classifier.Matched, Detail: "d4"},
	}
}

func TestAssemble(t *testing.T) {
	report := &RunReport{SalesRecordsIn: 3, ProcessorRecordsIn: 3}

	result, err := Assemble(classifiedFixture(), report)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if len(result.Groups) != len(classifier.Categories) {
		t.Fatalf("Expected %d groups, got %d", len(classifier.Categories), len(result.Groups))
	}

	// Groups come back in rule-priority order.
	for i, category := range classifier.Categories {
		if result.Groups[i].Category != category {
			t.Errorf("Group %d: expected %s, got %s", i, category, result.Groups[i].Category)
		}
	}

	if result.TotalRecords != 4 {
		t.Errorf("Expected 4 records, got %d", result.TotalRecords)
	}
	if result.DiscrepancyCount() != 3 {
		t.Errorf("Expected 3 discrepancies, got %d", result.DiscrepancyCount())
	}
}

func TestAssemble_DiscrepancyTotals(t *testing.T) {
	report := &RunReport{SalesRecordsIn: 3, ProcessorRecordsIn: 3}

	result, err := Assemble(classifiedFixture(), report)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	tests := []struct {
		category classifier.Category
		expected string
	}{
		{classifier.MissingInProcessor, "100"}, // sum of amounts
		{classifier.MissingInSales, "30"},      // sum of amounts
		{classifier.AmountMismatch, "5"},       // sum of absolute differences
		{classifier.Matched, "0"},
		{classifier.FailedPayment, "0"},
	}

	for _, tt := range tests {
		group := result.Group(tt.category)
		if group.TotalDiscrepancy.String() != tt.expected {
			t.Errorf("Category %s: expected total %s, got %s",
				tt.category, tt.expected, group.TotalDiscrepancy)
		}
	}

	if result.TotalDiscrepancy.String() != "135" {
		t.Errorf("Expected overall discrepancy total 135, got %s", result.TotalDiscrepancy)
	}
}

func TestAssemble_EmptyInput(t *testing.T) {
	_, err := Assemble(nil, &RunReport{})
	if err == nil {
		t.Fatal("Expected empty input error")
	}
	if !errors.IsEmptyInput(err) {
		t.Errorf("Expected empty input error, got %v", err)
	}
}

func TestAssemble_EmptyClassificationIsNotEmptyInput(t *testing.T) {
	// Every record failed normalization: inputs were non-empty, so the run
	// still produces a (fully empty) result rather than an error.
	report := &RunReport{SalesRecordsIn: 2, ProcessorRecordsIn: 0}

	result, err := Assemble(nil, report)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if result.TotalRecords != 0 {
		t.Errorf("Expected no records, got %d", result.TotalRecords)
	}
}

func TestRunReport_HasWarnings(t *testing.T) {
	report := &RunReport{}
	if report.HasWarnings() {
		t.Error("Expected no warnings on empty report")
	}

	report.DuplicateWarnings = append(report.DuplicateWarnings,
		errors.DuplicateIdentifierError("sales", "T1", 2))
	if !report.HasWarnings() {
		t.Error("Expected warnings after adding a duplicate")
	}
}
