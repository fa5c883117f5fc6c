package reconciler

import (
	"context"
	"testing"

	"settlement-reconciler/internal/classifier"
	"settlement-reconciler/internal/models"
	"settlement-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
)

func newTestEngine(t *testing.T, tolerance string, workers int) *Engine {
	t.Helper()

	config := DefaultConfig()
	config.Classifier.AmountTolerance = decimal.RequireFromString(tolerance)
	config.ClassifyWorkers = workers
	config.RunID = "test-run"

	engine, err := NewEngine(config)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return engine
}

func salesRecord(id, amount, status string) models.RawRecord {
	return models.RawRecord{"transaction_id": id, "amount": amount, "status": status}
}

func TestEngine_Run_Scenarios(t *testing.T) {
	engine := newTestEngine(t, "1.00", 1)

	sales := []models.RawRecord{
		salesRecord("T1", "100.00", "settled"), // missing in processor
		salesRecord("T2", "50.00", "settled"),  // matched
		salesRecord("T3", "75.00", "settled"),  // amount mismatch
		salesRecord("T4", "20.00", "settled"),  // failed payment
	}
	processor := []models.RawRecord{
		salesRecord("T2", "50.00", "settled"),
		salesRecord("T3", "70.00", "settled"),
		salesRecord("T4", "20.00", "failed"),
		salesRecord("T5", "30.00", "settled"), // missing in sales
	}

	result, err := engine.Run(context.Background(), sales, processor)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	expected := map[classifier.Category][]string{
		classifier.MissingInProcessor: {"T1"},
		classifier.MissingInSales:     {"T5"},
		classifier.FailedPayment:      {"T4"},
		classifier.AmountMismatch:     {"T3"},
		classifier.Matched:            {"T2"},
	}

	for category, ids := range expected {
		group := result.Group(category)
		if group == nil {
			t.Fatalf("Missing group for category %s", category)
		}
		if group.Count != len(ids) {
			t.Errorf("Category %s: expected %d records, got %d", category, len(ids), group.Count)
			continue
		}
		for i, id := range ids {
			if group.Records[i].Record.ID != id {
				t.Errorf("Category %s: expected record %s at position %d, got %s",
					category, id, i, group.Records[i].Record.ID)
			}
		}
	}

	// Completeness: the union of all categories equals the distinct keys.
	if result.TotalRecords != 5 {
		t.Errorf("Expected 5 total records, got %d", result.TotalRecords)
	}
	sum := 0
	for _, group := range result.Groups {
		sum += group.Count
	}
	if sum != result.TotalRecords {
		t.Errorf("Category counts sum to %d, expected %d", sum, result.TotalRecords)
	}

	// The mismatch detail reports the exact difference.
	mismatch := result.Group(classifier.AmountMismatch).Records[0]
	if mismatch.Detail != "sales=75.00 processor=70.00 diff=5.00 tolerance=1.00" {
		t.Errorf("Unexpected mismatch detail: %q", mismatch.Detail)
	}
}

func TestEngine_Run_EmptyInputs(t *testing.T) {
	engine := newTestEngine(t, "0", 1)

	_, err := engine.Run(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("Expected empty input error")
	}
	if !errors.IsEmptyInput(err) {
		t.Errorf("Expected empty input error, got %v", err)
	}
}

func TestEngine_Run_OneSideEmpty(t *testing.T) {
	engine := newTestEngine(t, "0", 1)

	sales := []models.RawRecord{salesRecord("T1", "10.00", "settled")}

	result, err := engine.Run(context.Background(), sales, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Group(classifier.MissingInProcessor).Count != 1 {
		t.Error("Expected single missing-in-processor record")
	}
}

func TestEngine_Run_Deterministic(t *testing.T) {
	engine := newTestEngine(t, "0.50", 1)

	sales := []models.RawRecord{
		salesRecord("zeta", "10.00", "settled"),
		salesRecord("alpha", "20.00", "settled"),
		salesRecord("mid", "30.00", "settled"),
	}
	processor := []models.RawRecord{
		salesRecord("mid", "30.20", "settled"),
		salesRecord("alpha", "20.00", "settled"),
		salesRecord("omega", "5.00", "failed"),
	}

	first, err := engine.Run(context.Background(), sales, processor)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	second, err := engine.Run(context.Background(), sales, processor)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	for g, group := range first.Groups {
		other := second.Groups[g]
		if group.Category != other.Category || group.Count != other.Count {
			t.Fatalf("Group %d differs between runs", g)
		}
		for i, record := range group.Records {
			if record.Record.ID != other.Records[i].Record.ID || record.Detail != other.Records[i].Detail {
				t.Errorf("Record %d in group %s differs between runs", i, group.Category)
			}
		}
	}

	if !first.TotalDiscrepancy.Equal(second.TotalDiscrepancy) {
		t.Error("Total discrepancy differs between runs")
	}
}

func TestEngine_Run_ParallelClassificationMatchesSerial(t *testing.T) {
	var sales, processor []models.RawRecord
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		sales = append(sales, salesRecord("TX-"+id, "10.00", "settled"))
		if id != "a" {
			processor = append(processor, salesRecord("TX-"+id, "10.50", "settled"))
		}
	}

	serial := newTestEngine(t, "0.25", 1)
	parallel := newTestEngine(t, "0.25", 4)

	serialResult, err := serial.Run(context.Background(), sales, processor)
	if err != nil {
		t.Fatalf("Serial run failed: %v", err)
	}
	parallelResult, err := parallel.Run(context.Background(), sales, processor)
	if err != nil {
		t.Fatalf("Parallel run failed: %v", err)
	}

	for g, group := range serialResult.Groups {
		other := parallelResult.Groups[g]
		if group.Count != other.Count {
			t.Fatalf("Group %s: serial count %d, parallel count %d", group.Category, group.Count, other.Count)
		}
		for i, record := range group.Records {
			if record.Record.ID != other.Records[i].Record.ID {
				t.Errorf("Group %s position %d: serial %s, parallel %s",
					group.Category, i, record.Record.ID, other.Records[i].Record.ID)
			}
		}
	}
}

func TestEngine_Run_CollectsWarnings(t *testing.T) {
	engine := newTestEngine(t, "0", 1)

	sales := []models.RawRecord{
		salesRecord("T1", "10.00", "settled"),
		salesRecord("T1", "99.00", "settled"),       // duplicate id
		{"amount": "5.00", "status": "settled"},     // missing identifier
		salesRecord("T2", "not-a-number", "settled"), // invalid amount
	}
	processor := []models.RawRecord{
		salesRecord("T1", "10.00", "settled"),
	}

	result, err := engine.Run(context.Background(), sales, processor)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	report := result.Report
	if !report.HasWarnings() {
		t.Fatal("Expected warnings in run report")
	}

	if len(report.RecordErrors) != 2 {
		t.Errorf("Expected 2 record errors, got %d", len(report.RecordErrors))
	}
	if len(report.DuplicateWarnings) != 1 {
		t.Errorf("Expected 1 duplicate warning, got %d", len(report.DuplicateWarnings))
	}

	// The duplicate keeps its first occurrence and still matches.
	group := result.Group(classifier.Matched)
	if group.Count != 1 || group.Records[0].Record.ID != "T1" {
		t.Error("Expected T1 to match using its first occurrence")
	}
}

func TestEngine_Run_MalformedRecordAborts(t *testing.T) {
	engine := newTestEngine(t, "0", 1)

	sales := []models.RawRecord{
		salesRecord("T1", "10.00", "settled"),
		{},
	}

	_, err := engine.Run(context.Background(), sales, nil)
	if err == nil {
		t.Fatal("Expected malformed record to abort the run")
	}

	reconcilerErr, ok := errors.AsReconcilerError(err)
	if !ok || reconcilerErr.Code != errors.CodeMalformedRecord {
		t.Errorf("Expected malformed record error, got %v", err)
	}
}

func TestEngine_Run_GeneratesRunID(t *testing.T) {
	config := DefaultConfig()
	engine, err := NewEngine(config)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	result, err := engine.Run(context.Background(),
		[]models.RawRecord{salesRecord("T1", "10.00", "settled")}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.RunID == "" {
		t.Error("Expected generated run ID")
	}
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	config := DefaultConfig()
	config.Classifier.AmountTolerance = decimal.RequireFromString("-1")

	if _, err := NewEngine(config); err == nil {
		t.Error("Expected error for negative tolerance")
	}

	config = DefaultConfig()
	config.ClassifyWorkers = -1
	if _, err := NewEngine(config); err == nil {
		t.Error("Expected error for negative worker count")
	}
}
