package loader

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"settlement-reconciler/internal/models"
	"settlement-reconciler/pkg/errors"
	"settlement-reconciler/pkg/logger"
)

// CSVLoader reads a delimited export (e.g. the payment-processor settlement
// report) into raw records. Header names are trimmed and lower-cased so the
// normalizer's field aliases apply regardless of export casing.
type CSVLoader struct {
	path      string
	delimiter rune
	log       logger.Logger
}

// NewCSVLoader creates a loader for a comma-delimited file with a header row.
func NewCSVLoader(path string) *CSVLoader {
	return &CSVLoader{
		path:      path,
		delimiter: ',',
		log:       logger.GetGlobalLogger().WithComponent("csv_loader"),
	}
}

// WithDelimiter overrides the field delimiter.
func (l *CSVLoader) WithDelimiter(delimiter rune) *CSVLoader {
	l.delimiter = delimiter
	return l
}

// Load reads the file into ordered raw records.
func (l *CSVLoader) Load(ctx context.Context) ([]models.RawRecord, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, errors.DataSourceError(errors.CodeSourceUnavailable, l.path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = l.delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.DataSourceError(errors.CodeSourceCorrupted, l.path, err)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(name))
	}

	var records []models.RawRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.CategoryData, errors.CodeProcessingError, "load cancelled")
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.DataSourceError(errors.CodeSourceCorrupted, l.path, err)
		}

		record := make(models.RawRecord, len(columns))
		for i, value := range row {
			if i >= len(columns) {
				break
			}
			record[columns[i]] = value
		}
		records = append(records, record)
	}

	l.log.WithFields(logger.Fields{
		"path":    l.path,
		"records": len(records),
	}).Debug("Loaded CSV records")

	return records, nil
}
