// Package matcher correlates the two normalized datasets by transaction
// identifier: it indexes each source, then performs a full outer join over
// the union of correlation keys.
package matcher

import (
	"sort"

	"settlement-reconciler/internal/models"
	"settlement-reconciler/pkg/logger"
)

// MatchRecord pairs at most one sales transaction and at most one processor
// transaction sharing the same correlation key. At least one side is present.
type MatchRecord struct {
	ID        string              `json:"id"`
	Sales     *models.Transaction `json:"sales,omitempty"`
	Processor *models.Transaction `json:"processor,omitempty"`
}

// InBoth reports whether both sides are present.
func (m *MatchRecord) InBoth() bool {
	return m.Sales != nil && m.Processor != nil
}

// SalesOnly reports whether the key appears only in the sales ledger.
func (m *MatchRecord) SalesOnly() bool {
	return m.Sales != nil && m.Processor == nil
}

// ProcessorOnly reports whether the key appears only in the settlement report.
func (m *MatchRecord) ProcessorOnly() bool {
	return m.Sales == nil && m.Processor != nil
}

// Match performs a full outer join of the two indexes by correlation key.
//
// Every key appearing in either index produces exactly one MatchRecord; no
// key is dropped or visited twice. Output is sorted by correlation key in
// byte order so results are reproducible across runs on the same inputs, a
// required property for audit trails.
func Match(salesIndex, processorIndex *Index) []*MatchRecord {
	keys := make([]string, 0, salesIndex.Size()+processorIndex.Size())
	seen := make(map[string]struct{}, salesIndex.Size()+processorIndex.Size())

	for id := range salesIndex.ByID {
		keys = append(keys, id)
		seen[id] = struct{}{}
	}
	for id := range processorIndex.ByID {
		if _, ok := seen[id]; ok {
			continue
		}
		keys = append(keys, id)
	}

	sort.Strings(keys)

	records := make([]*MatchRecord, 0, len(keys))
	for _, id := range keys {
		record := &MatchRecord{ID: id}
		if tx, ok := salesIndex.Get(id); ok {
			record.Sales = tx
		}
		if tx, ok := processorIndex.Get(id); ok {
			record.Processor = tx
		}
		records = append(records, record)
	}

	logger.GetGlobalLogger().WithComponent("matcher").WithFields(logger.Fields{
		"sales_keys":     salesIndex.Size(),
		"processor_keys": processorIndex.Size(),
		"match_records":  len(records),
	}).Debug("Joined datasets by correlation key")

	return records
}
