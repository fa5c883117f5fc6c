// Package alerting notifies operators when a reconciliation run surfaces
// discrepancies that need investigation.
package alerting

import (
	"context"

	"settlement-reconciler/internal/reconciler"
	"settlement-reconciler/pkg/logger"
)

// Alerter receives a completed reconciliation result and decides whether to
// raise a notification.
type Alerter interface {
	Notify(ctx context.Context, result *reconciler.ReconciliationResult) error
}

// LogAlerter raises alerts through the structured log. Downstream log
// shipping turns these into pages; the alerter itself stays transport-free.
type LogAlerter struct {
	// Threshold is the minimum number of discrepancy records that triggers
	// an alert. Zero alerts on any discrepancy.
	Threshold int

	log logger.Logger
}

// NewLogAlerter creates an alerter that warns once a run's discrepancy count
// reaches the threshold.
func NewLogAlerter(threshold int) *LogAlerter {
	return &LogAlerter{
		Threshold: threshold,
		log:       logger.GetGlobalLogger().WithComponent("alerting"),
	}
}

// Notify logs a warning when the result's discrepancy count reaches the
// threshold, and an info line otherwise.
func (a *LogAlerter) Notify(ctx context.Context, result *reconciler.ReconciliationResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	discrepancies := result.DiscrepancyCount()
	fields := logger.Fields{
		"run_id":            result.RunID,
		"total_records":     result.TotalRecords,
		"discrepancies":     discrepancies,
		"total_discrepancy": result.TotalDiscrepancy.StringFixed(2),
	}

	if discrepancies > 0 && discrepancies >= a.Threshold {
		for _, group := range result.Groups {
			if group.Category.IsDiscrepancy() && group.Count > 0 {
				fields[string(group.Category)] = group.Count
			}
		}
		a.log.WithFields(fields).Warn("Reconciliation discrepancies require investigation")
		return nil
	}

	a.log.WithFields(fields).Info("Reconciliation completed without actionable discrepancies")
	return nil
}

// MultiAlerter fans a result out to several alerters, returning the first
// error encountered after all have been notified.
type MultiAlerter []Alerter

// Notify delivers the result to every alerter.
func (m MultiAlerter) Notify(ctx context.Context, result *reconciler.ReconciliationResult) error {
	var firstErr error
	for _, alerter := range m {
		if err := alerter.Notify(ctx, result); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
