package reconciler

import (
	"time"

	"settlement-reconciler/internal/classifier"
	"settlement-reconciler/internal/matcher"
	"settlement-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
)

// ClassifiedRecord is a match record together with its assigned category and
// audit explanation.
type ClassifiedRecord struct {
	Record   *matcher.MatchRecord `json:"record"`
	Category classifier.Category  `json:"category"`
	Detail   string               `json:"detail"`
}

// CategoryGroup holds the ordered records assigned to one category plus its
// aggregates. Record order within a group preserves the matcher's
// deterministic key order.
type CategoryGroup struct {
	Category classifier.Category `json:"category"`
	Records  []*ClassifiedRecord `json:"records"`
	Count    int                 `json:"count"`

	// TotalDiscrepancy is the sum of absolute differences for
	// AmountMismatch, the sum of amounts for the missing/failed categories,
	// and zero for Matched.
	TotalDiscrepancy decimal.Decimal `json:"total_discrepancy"`
}

// RunReport carries the non-fatal data-quality findings of a run: per-record
// normalization errors and duplicate-identifier warnings. They accompany the
// result so the caller can decide remediation instead of losing financial
// data silently.
type RunReport struct {
	SalesRecordsIn      int                   `json:"sales_records_in"`
	ProcessorRecordsIn  int                   `json:"processor_records_in"`
	RecordErrors        []*errors.RecordError `json:"record_errors,omitempty"`
	DuplicateWarnings   []*errors.RecordError `json:"duplicate_warnings,omitempty"`
	SalesTransactions   int                   `json:"sales_transactions"`
	ProcessorTransactions int                 `json:"processor_transactions"`
}

// HasWarnings reports whether any non-fatal findings were collected.
func (r *RunReport) HasWarnings() bool {
	return len(r.RecordErrors) > 0 || len(r.DuplicateWarnings) > 0
}

// ReconciliationResult is the immutable snapshot produced by one run:
// per-category record groups plus summary counts and totals. It is
// constructed once from a completed classification pass, never mutated
// afterwards, and handed to the reporting collaborator.
type ReconciliationResult struct {
	RunID       string    `json:"run_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`

	// Groups are ordered by rule priority; records within a group are
	// ordered by correlation key.
	Groups []*CategoryGroup `json:"groups"`

	// TotalRecords is the number of distinct correlation keys across both
	// input sets.
	TotalRecords int `json:"total_records"`

	// TotalDiscrepancy sums the discrepancy amounts of all non-matched
	// categories.
	TotalDiscrepancy decimal.Decimal `json:"total_discrepancy"`

	Report *RunReport `json:"report,omitempty"`
}

// Group returns the group for a category. Every category has a group, empty
// or not.
func (r *ReconciliationResult) Group(category classifier.Category) *CategoryGroup {
	for _, group := range r.Groups {
		if group.Category == category {
			return group
		}
	}
	return nil
}

// DiscrepancyCount returns the number of records in non-matched categories.
func (r *ReconciliationResult) DiscrepancyCount() int {
	count := 0
	for _, group := range r.Groups {
		if group.Category.IsDiscrepancy() {
			count += group.Count
		}
	}
	return count
}

// Assemble groups classified records by category, computes the aggregate
// counts and discrepancy totals, and returns the immutable run result.
//
// Assemble fails with an empty-input error only when both input datasets
// were empty: an explicit signal that the run had nothing to reconcile,
// distinct from "everything matched".
func Assemble(classified []*ClassifiedRecord, report *RunReport) (*ReconciliationResult, error) {
	if report == nil {
		report = &RunReport{}
	}

	if report.SalesRecordsIn == 0 && report.ProcessorRecordsIn == 0 {
		return nil, errors.EmptyInputError(report.SalesRecordsIn, report.ProcessorRecordsIn)
	}

	groups := make([]*CategoryGroup, 0, len(classifier.Categories))
	byCategory := make(map[classifier.Category]*CategoryGroup, len(classifier.Categories))
	for _, category := range classifier.Categories {
		group := &CategoryGroup{
			Category:         category,
			Records:          []*ClassifiedRecord{},
			TotalDiscrepancy: decimal.Zero,
		}
		groups = append(groups, group)
		byCategory[category] = group
	}

	total := decimal.Zero
	for _, record := range classified {
		group := byCategory[record.Category]
		group.Records = append(group.Records, record)
		group.Count++

		amount := discrepancyAmount(record)
		group.TotalDiscrepancy = group.TotalDiscrepancy.Add(amount)
		if record.Category.IsDiscrepancy() {
			total = total.Add(amount)
		}
	}

	return &ReconciliationResult{
		GeneratedAt:      time.Now().UTC(),
		Groups:           groups,
		TotalRecords:     len(classified),
		TotalDiscrepancy: total,
		Report:           report,
	}, nil
}

// discrepancyAmount computes the amount a record contributes to its
// category's total: absolute difference for amount mismatches, the present
// side's amount for missing records, the settlement amount for failed
// payments, zero for matches.
func discrepancyAmount(record *ClassifiedRecord) decimal.Decimal {
	switch record.Category {
	case classifier.MissingInProcessor:
		return record.Record.Sales.Amount.Abs()
	case classifier.MissingInSales:
		return record.Record.Processor.Amount.Abs()
	case classifier.FailedPayment:
		return record.Record.Processor.Amount.Abs()
	case classifier.AmountMismatch:
		return record.Record.Sales.Amount.Sub(record.Record.Processor.Amount).Abs()
	default:
		return decimal.Zero
	}
}
