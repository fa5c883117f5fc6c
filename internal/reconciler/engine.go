// Package reconciler orchestrates a reconciliation run: it normalizes both
// raw datasets, indexes them, joins them by correlation key, classifies
// every match record and assembles the immutable run result.
//
// A run is a pure function of its two input datasets and its configuration:
// no state is shared across runs, and a run either fully completes with a
// result plus zero or more non-fatal warnings, or fails before producing a
// result.
package reconciler

import (
	"context"
	"fmt"
	"sync"

	"settlement-reconciler/internal/classifier"
	"settlement-reconciler/internal/matcher"
	"settlement-reconciler/internal/models"
	"settlement-reconciler/internal/normalizer"
	"settlement-reconciler/pkg/errors"
	"settlement-reconciler/pkg/logger"

	"github.com/google/uuid"
)

// Config holds configuration for a reconciliation engine.
type Config struct {
	Normalizer *normalizer.Config
	Classifier *classifier.Config

	// RunID correlates a run with external audit trails. When empty, a
	// fresh UUID is generated per run.
	RunID string

	// ClassifyWorkers bounds the classification worker pool. Values below 2
	// run classification serially. Parallelism never changes the output:
	// the assembled ordering is fixed by correlation key.
	ClassifyWorkers int
}

// DefaultConfig returns a serial engine configuration with default
// normalization and zero amount tolerance.
func DefaultConfig() *Config {
	return &Config{
		Normalizer:      normalizer.DefaultConfig(),
		Classifier:      classifier.DefaultConfig(),
		ClassifyWorkers: 1,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Classifier != nil {
		if err := c.Classifier.Validate(); err != nil {
			return err
		}
	}
	if c.ClassifyWorkers < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "classify_workers", c.ClassifyWorkers)
	}
	return nil
}

// Engine executes reconciliation runs.
type Engine struct {
	normalizer *normalizer.Normalizer
	config     *Config
	log        logger.Logger
}

// NewEngine creates a reconciliation engine with the given configuration.
func NewEngine(config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}

	norm, err := normalizer.New(config.Normalizer)
	if err != nil {
		return nil, fmt.Errorf("failed to create normalizer: %w", err)
	}

	return &Engine{
		normalizer: norm,
		config:     config,
		log:        logger.GetGlobalLogger().WithComponent("engine"),
	}, nil
}

// Run reconciles one accounting period: sales ledger records against
// processor settlement records.
//
// Per-record normalization failures and duplicate-identifier warnings never
// abort the run; they are returned inside the result's RunReport. Run-level
// failures (both inputs empty, structurally malformed input) abort before
// any matching occurs.
func (e *Engine) Run(ctx context.Context, salesRecords, processorRecords []models.RawRecord) (*ReconciliationResult, error) {
	runID := e.config.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := e.log.WithField("run_id", runID)

	if len(salesRecords) == 0 && len(processorRecords) == 0 {
		return nil, errors.EmptyInputError(0, 0)
	}

	// Normalization of the two sources is independent; run both sides
	// concurrently and join before matching.
	type normalized struct {
		transactions []*models.Transaction
		recordErrs   []*errors.RecordError
		err          error
	}

	var sales, processor normalized
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sales.transactions, sales.recordErrs, sales.err = e.normalizer.Normalize(salesRecords, models.SourceSales)
	}()
	go func() {
		defer wg.Done()
		processor.transactions, processor.recordErrs, processor.err = e.normalizer.Normalize(processorRecords, models.SourceProcessor)
	}()
	wg.Wait()

	if sales.err != nil {
		return nil, sales.err
	}
	if processor.err != nil {
		return nil, processor.err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryReconciliation, errors.CodeProcessingError, "run cancelled")
	}

	report := &RunReport{
		SalesRecordsIn:        len(salesRecords),
		ProcessorRecordsIn:    len(processorRecords),
		SalesTransactions:     len(sales.transactions),
		ProcessorTransactions: len(processor.transactions),
	}
	report.RecordErrors = append(report.RecordErrors, sales.recordErrs...)
	report.RecordErrors = append(report.RecordErrors, processor.recordErrs...)

	salesIndex := matcher.BuildIndex(models.SourceSales, sales.transactions)
	processorIndex := matcher.BuildIndex(models.SourceProcessor, processor.transactions)
	report.DuplicateWarnings = append(report.DuplicateWarnings, salesIndex.DuplicateWarnings()...)
	report.DuplicateWarnings = append(report.DuplicateWarnings, processorIndex.DuplicateWarnings()...)

	records := matcher.Match(salesIndex, processorIndex)

	classified := e.classify(records)

	result, err := Assemble(classified, report)
	if err != nil {
		return nil, err
	}
	result.RunID = runID

	log.WithFields(logger.Fields{
		"total_records": result.TotalRecords,
		"discrepancies": result.DiscrepancyCount(),
		"warnings":      len(report.RecordErrors) + len(report.DuplicateWarnings),
	}).Info("Reconciliation run completed")

	return result, nil
}

// classify assigns a category to every match record. Classification of one
// record never depends on another's outcome, so records are fanned out over
// a bounded worker pool when configured; results land at their input
// position, preserving the matcher's key order.
func (e *Engine) classify(records []*matcher.MatchRecord) []*ClassifiedRecord {
	classified := make([]*ClassifiedRecord, len(records))

	workers := e.config.ClassifyWorkers
	if workers < 2 || len(records) < 2 {
		for i, record := range records {
			category, detail := classifier.Classify(record, e.config.Classifier)
			classified[i] = &ClassifiedRecord{Record: record, Category: category, Detail: detail}
		}
		return classified
	}

	if workers > len(records) {
		workers = len(records)
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				category, detail := classifier.Classify(records[i], e.config.Classifier)
				classified[i] = &ClassifiedRecord{Record: records[i], Category: category, Detail: detail}
			}
		}()
	}

	for i := range records {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return classified
}
