package matcher

import (
	"settlement-reconciler/internal/models"
	"settlement-reconciler/pkg/errors"
)

// Index is a lookup structure over one source's normalized transactions,
// keyed by correlation key (the transaction identifier).
type Index struct {
	// Source is the dataset this index was built from.
	Source models.Source

	// ByID maps each correlation key to its transaction. When a key repeats
	// within the source, the first occurrence is retained.
	ByID map[string]*models.Transaction

	// Duplicates lists repeated correlation keys in first-seen order.
	// Duplicate ids are a data-quality warning, never silently merged.
	Duplicates []string

	occurrences map[string]int
}

// BuildIndex constructs an index from a source's transaction sequence.
func BuildIndex(source models.Source, transactions []*models.Transaction) *Index {
	index := &Index{
		Source:      source,
		ByID:        make(map[string]*models.Transaction, len(transactions)),
		occurrences: make(map[string]int, len(transactions)),
	}

	for _, tx := range transactions {
		index.occurrences[tx.ID]++
		if index.occurrences[tx.ID] > 1 {
			if index.occurrences[tx.ID] == 2 {
				index.Duplicates = append(index.Duplicates, tx.ID)
			}
			continue
		}
		index.ByID[tx.ID] = tx
	}

	return index
}

// Get returns the indexed transaction for a correlation key, if present.
func (idx *Index) Get(id string) (*models.Transaction, bool) {
	tx, ok := idx.ByID[id]
	return tx, ok
}

// Size returns the number of distinct correlation keys in the index.
func (idx *Index) Size() int {
	return len(idx.ByID)
}

// DuplicateWarnings converts the duplicate key set into record errors the
// caller can surface alongside the run result.
func (idx *Index) DuplicateWarnings() []*errors.RecordError {
	warnings := make([]*errors.RecordError, 0, len(idx.Duplicates))
	for _, id := range idx.Duplicates {
		warnings = append(warnings, errors.DuplicateIdentifierError(string(idx.Source), id, idx.occurrences[id]))
	}
	return warnings
}
