package sqlq

import (
	"errors"
	"fmt"
)

// Standard sentinel errors.
var (
	// ErrNotFound is returned when a query expected to return a row returns none.
	ErrNotFound = errors.New("sqlq: no rows in result set")

	// ErrTxStarted is returned when attempting to start a new transaction
	// within an existing transaction.
	ErrTxStarted = errors.New("sqlq: cannot start a transaction within a transaction")
)

// ConfigurationError is reported when a builder was put in an invalid state,
// for example a duplicate join alias or a projection with zero fields.
type ConfigurationError struct {
	Op  string // Builder operation (e.g., "join", "select")
	Msg string
}

// Error returns the error string.
func (e *ConfigurationError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("sqlq: %s: %s", e.Op, e.Msg)
	}
	return "sqlq: " + e.Msg
}

// NewConfigurationError returns a new ConfigurationError for the given operation.
func NewConfigurationError(op, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// IsConfigurationError returns true if the error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigurationError
	return errors.As(err, &e)
}

// BindingError is reported when a named placeholder has no value at execution time.
// It is always raised before the driver is called.
type BindingError struct {
	Name string // Placeholder name
}

// Error returns the error string.
func (e *BindingError) Error() string {
	return fmt.Sprintf("sqlq: no value for placeholder %q", e.Name)
}

// NewBindingError returns a new BindingError for the given placeholder.
func NewBindingError(name string) *BindingError {
	return &BindingError{Name: name}
}

// IsBindingError returns true if the error is a BindingError.
func IsBindingError(err error) bool {
	if err == nil {
		return false
	}
	var e *BindingError
	return errors.As(err, &e)
}

// DecodingError is reported when a raw driver value cannot be converted
// to the semantic type of its column.
type DecodingError struct {
	Table  string
	Column string
	Value  any   // Raw driver value
	Err    error // Underlying conversion error
}

// Error returns the error string.
func (e *DecodingError) Error() string {
	name := e.Column
	if e.Table != "" {
		name = e.Table + "." + e.Column
	}
	return fmt.Sprintf("sqlq: decoding column %q from %T(%v): %v", name, e.Value, e.Value, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodingError) Unwrap() error {
	return e.Err
}

// NewDecodingError returns a new DecodingError.
func NewDecodingError(table, column string, value any, err error) *DecodingError {
	return &DecodingError{Table: table, Column: column, Value: value, Err: err}
}

// IsDecodingError returns true if the error is a DecodingError.
func IsDecodingError(err error) bool {
	if err == nil {
		return false
	}
	var e *DecodingError
	return errors.As(err, &e)
}

// DriverError wraps an error returned by the database driver, annotated
// with the statement and parameters that were sent.
type DriverError struct {
	SQL    string
	Params []any
	Err    error
}

// Error returns the error string.
func (e *DriverError) Error() string {
	return fmt.Sprintf("sqlq: driver: %v (query: %s, params: %v)", e.Err, e.SQL, e.Params)
}

// Unwrap returns the original driver error.
func (e *DriverError) Unwrap() error {
	return e.Err
}

// NewDriverError returns a new DriverError.
func NewDriverError(query string, params []any, err error) *DriverError {
	return &DriverError{SQL: query, Params: params, Err: err}
}

// IsDriverError returns true if the error is a DriverError.
func IsDriverError(err error) bool {
	if err == nil {
		return false
	}
	var e *DriverError
	return errors.As(err, &e)
}

// NotImplementedError is reported when a dialect does not support a feature.
type NotImplementedError struct {
	Dialect string
	Feature string
}

// Error returns the error string.
func (e *NotImplementedError) Error() string {
	if e.Dialect == "" {
		return fmt.Sprintf("sqlq: %s is not implemented", e.Feature)
	}
	return fmt.Sprintf("sqlq: %s is not implemented for dialect %q", e.Feature, e.Dialect)
}

// NewNotImplementedError returns a new NotImplementedError.
func NewNotImplementedError(dialect, feature string) *NotImplementedError {
	return &NotImplementedError{Dialect: dialect, Feature: feature}
}

// IsNotImplemented returns true if the error is a NotImplementedError.
func IsNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var e *NotImplementedError
	return errors.As(err, &e)
}

// NotFoundError is returned by single-row terminals when the result set is empty.
type NotFoundError struct {
	label string
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.label == "" {
		return ErrNotFound.Error()
	}
	return fmt.Sprintf("sqlq: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the table or query label.
func (e *NotFoundError) Label() string {
	return e.label
}

// NewNotFoundError returns a new NotFoundError for the given label.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Rollback failure
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("sqlq: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}
