package loader

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"settlement-reconciler/internal/models"
	"settlement-reconciler/pkg/errors"
	"settlement-reconciler/pkg/logger"

	_ "github.com/mattn/go-sqlite3"
)

// identifierPattern restricts table names to plain SQL identifiers since
// table names cannot be bound as query parameters.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteLoader reads the internal sales ledger from a SQLite database table
// into raw records. Column names are lower-cased so the normalizer's field
// aliases apply.
type SQLiteLoader struct {
	path  string
	table string
	log   logger.Logger
}

// NewSQLiteLoader creates a loader for one table of a SQLite database file.
func NewSQLiteLoader(path, table string) (*SQLiteLoader, error) {
	if !identifierPattern.MatchString(table) {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "table", table)
	}

	return &SQLiteLoader{
		path:  path,
		table: table,
		log:   logger.GetGlobalLogger().WithComponent("sqlite_loader"),
	}, nil
}

// Load reads every row of the table into ordered raw records.
func (l *SQLiteLoader) Load(ctx context.Context) ([]models.RawRecord, error) {
	db, err := sql.Open("sqlite3", l.path)
	if err != nil {
		return nil, errors.DataSourceError(errors.CodeSourceUnavailable, l.path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", l.table))
	if err != nil {
		return nil, errors.DataSourceError(errors.CodeSourceCorrupted, l.path, err).
			WithContext("table", l.table)
	}
	defer rows.Close()

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, errors.DataSourceError(errors.CodeSourceCorrupted, l.path, err)
	}

	columns := make([]string, len(columnNames))
	for i, name := range columnNames {
		columns[i] = strings.ToLower(strings.TrimSpace(name))
	}

	var records []models.RawRecord
	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.DataSourceError(errors.CodeSourceCorrupted, l.path, err)
		}

		record := make(models.RawRecord, len(columns))
		for i, column := range columns {
			switch v := values[i].(type) {
			case []byte:
				record[column] = string(v)
			default:
				record[column] = v
			}
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.DataSourceError(errors.CodeSourceCorrupted, l.path, err)
	}

	l.log.WithFields(logger.Fields{
		"path":    l.path,
		"table":   l.table,
		"records": len(records),
	}).Debug("Loaded ledger rows")

	return records, nil
}
