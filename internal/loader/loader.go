// Package loader provides the data-loading collaborators that feed raw
// records into the reconciliation engine. The engine itself is agnostic to
// the original storage; these loaders cover the two sources the product
// ships with: a SQLite sales ledger and a CSV settlement report.
package loader

import (
	"context"

	"settlement-reconciler/internal/models"
)

// Loader supplies one ordered sequence of raw records to the engine.
type Loader interface {
	Load(ctx context.Context) ([]models.RawRecord, error)
}
