// Package errors defines the structured error taxonomy used across the
// reconciliation engine.
//
// Errors fall into two tiers:
//   - record-level errors (RecordError): a single raw record could not be
//     normalized; these never abort a run and are collected into the run
//     report alongside successful results.
//   - run-level errors (ReconcilerError): the run cannot produce a result at
//     all, e.g. both input datasets were empty.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory groups errors by the subsystem that raised them.
type ErrorCategory string

const (
	CategoryNormalization  ErrorCategory = "normalization"
	CategoryIndexing       ErrorCategory = "indexing"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryData           ErrorCategory = "data"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode identifies a specific failure within a category.
type ErrorCode string

const (
	// Normalization errors (per record, non-fatal)
	CodeMissingIdentifier ErrorCode = "missing_identifier"
	CodeInvalidAmount     ErrorCode = "invalid_amount"
	CodeMalformedRecord   ErrorCode = "malformed_record"

	// Indexing warnings (per source, non-fatal)
	CodeDuplicateIdentifier ErrorCode = "duplicate_identifier"

	// Reconciliation errors (fatal to the run)
	CodeEmptyInput      ErrorCode = "empty_input"
	CodeProcessingError ErrorCode = "processing_error"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Data source errors
	CodeSourceUnavailable ErrorCode = "source_unavailable"
	CodeSourceCorrupted   ErrorCode = "source_corrupted"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all run-level failures.
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context carries additional diagnostic key/value pairs.
type Context map[string]interface{}

// Error implements the error interface.
func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode maps the error category to a CLI exit code.
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryData:
		return 2
	case CategoryNormalization, CategoryIndexing:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReconciliation, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds a diagnostic key/value pair to the error.
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a remediation hint to the error.
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError.
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// EmptyInputError signals that both input datasets were empty, i.e. the run
// had nothing to reconcile. Distinct from a run where everything matched.
func EmptyInputError(salesCount, processorCount int) *ReconcilerError {
	return New(CategoryReconciliation, CodeEmptyInput, "nothing to reconcile: both input datasets are empty").
		WithSuggestion("check that the data-loading collaborators returned records for the accounting period").
		WithContext("sales_records", salesCount).
		WithContext("processor_records", processorCount)
}

// ConfigurationError creates a configuration-related error.
func ConfigurationError(code ErrorCode, setting string, value interface{}) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	return New(CategoryConfiguration, code, message).
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// DataSourceError creates an error for a failing data-loading collaborator.
func DataSourceError(code ErrorCode, source string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeSourceUnavailable:
		message = fmt.Sprintf("data source unavailable: %s", source)
		suggestion = "check that the source exists and is readable"
	case CodeSourceCorrupted:
		message = fmt.Sprintf("data source appears to be corrupted: %s", source)
		suggestion = "verify the source integrity or re-export the data"
	default:
		message = fmt.Sprintf("data source error: %s", source)
		suggestion = "check the data source and try again"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryData, code, message)
	} else {
		result = New(CategoryData, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("source", source)
}

// RecordError describes a single raw record that failed normalization.
// Record errors are accumulated and reported alongside successful results so
// the caller can decide remediation; they never abort the batch.
type RecordError struct {
	Source  string    `json:"source"`
	Ordinal int       `json:"ordinal"`
	Code    ErrorCode `json:"code"`
	Field   string    `json:"field,omitempty"`
	Value   string    `json:"value,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s record %d: %s (field %q, value %q)",
			e.Source, e.Ordinal, e.Message, e.Field, e.Value)
	}
	return fmt.Sprintf("%s record %d: %s", e.Source, e.Ordinal, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *RecordError) Unwrap() error {
	return e.Cause
}

// MissingIdentifierError reports a record with no usable correlation key.
func MissingIdentifierError(source string, ordinal int) *RecordError {
	return &RecordError{
		Source:  source,
		Ordinal: ordinal,
		Code:    CodeMissingIdentifier,
		Field:   "id",
		Message: "record has no transaction identifier",
	}
}

// InvalidAmountError reports a record whose amount field could not be parsed
// to a fixed-precision decimal.
func InvalidAmountError(source string, ordinal int, value string, cause error) *RecordError {
	return &RecordError{
		Source:  source,
		Ordinal: ordinal,
		Code:    CodeInvalidAmount,
		Field:   "amount",
		Value:   value,
		Message: "amount cannot be parsed as a decimal",
		Cause:   cause,
	}
}

// MalformedRecordError reports a record with no fields at all.
func MalformedRecordError(source string, ordinal int) *RecordError {
	return &RecordError{
		Source:  source,
		Ordinal: ordinal,
		Code:    CodeMalformedRecord,
		Message: "record has no fields",
	}
}

// DuplicateIdentifierError reports a correlation key that appeared more than
// once within a single source. The first occurrence is kept; duplicates are
// never silently merged or summed.
func DuplicateIdentifierError(source, id string, occurrences int) *RecordError {
	return &RecordError{
		Source:  source,
		Code:    CodeDuplicateIdentifier,
		Field:   "id",
		Value:   id,
		Message: fmt.Sprintf("duplicate transaction identifier (%d occurrences, first kept)", occurrences),
	}
}

// ErrorSummary aggregates record errors for reporting.
type ErrorSummary struct {
	Total    int               `json:"total"`
	BySource map[string]int    `json:"by_source"`
	ByCode   map[ErrorCode]int `json:"by_code"`
	Errors   []*RecordError    `json:"errors"`
}

// NewErrorSummary builds a summary over a set of record errors.
func NewErrorSummary(errs []*RecordError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:    len(errs),
		BySource: make(map[string]int),
		ByCode:   make(map[ErrorCode]int),
		Errors:   errs,
	}

	for _, err := range errs {
		summary.BySource[err.Source]++
		summary.ByCode[err.Code]++
	}

	return summary
}

// Error returns a formatted message for the summary.
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var codes []string
	for code, count := range es.ByCode {
		codes = append(codes, fmt.Sprintf("%s: %d", code, count))
	}

	return fmt.Sprintf("%d record errors (%s)", es.Total, strings.Join(codes, ", "))
}

// HasCode checks if the summary contains errors with the given code.
func (es *ErrorSummary) HasCode(code ErrorCode) bool {
	return es.ByCode[code] > 0
}

// IsReconcilerError checks if an error is a ReconcilerError.
func IsReconcilerError(err error) bool {
	_, ok := err.(*ReconcilerError)
	return ok
}

// AsReconcilerError extracts a ReconcilerError from an error chain.
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// IsEmptyInput reports whether err signals an empty reconciliation run.
func IsEmptyInput(err error) bool {
	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr.Code == CodeEmptyInput
	}
	return false
}
