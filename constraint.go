package sqlq

import (
	"errors"
	"strings"
)

// IsConstraintError returns true if the error resulted from a database constraint violation.
// The error may be wrapped in a DriverError.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err) ||
		IsNotNullConstraintError(err)
}

// errorCoder is implemented by pq.Error and errors that expose a SQLSTATE as Code.
type errorCoder interface {
	Code() string
}

// errorNumberer is implemented by drivers exposing numeric error codes.
type errorNumberer interface {
	Number() uint16
}

// sqlStateError is implemented by pgconn.PgError.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlBadNull                = 1048
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451
	mysqlForeignKeyChild        = 1452
	mysqlCheckConstraintViolate = 3819
)

type constraintKind struct {
	states  []string
	numbers []uint16
	text    []string
}

var (
	uniqueKind = constraintKind{
		states:  []string{pgUniqueViolation},
		numbers: []uint16{mysqlDuplicateEntry},
		text:    []string{"Error 1062", "violates unique constraint", "UNIQUE constraint failed"},
	}
	foreignKeyKind = constraintKind{
		states:  []string{pgForeignKeyViolation},
		numbers: []uint16{mysqlForeignKeyParent, mysqlForeignKeyChild},
		text:    []string{"Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"},
	}
	checkKind = constraintKind{
		states:  []string{pgCheckViolation},
		numbers: []uint16{mysqlCheckConstraintViolate},
		text:    []string{"Error 3819", "violates check constraint", "CHECK constraint failed"},
	}
	notNullKind = constraintKind{
		states:  []string{pgNotNullViolation},
		numbers: []uint16{mysqlBadNull},
		text:    []string{"Error 1048", "violates not-null constraint", "NOT NULL constraint failed"},
	}
)

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	return uniqueKind.match(err)
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	return foreignKeyKind.match(err)
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
func IsCheckConstraintError(err error) bool {
	return checkKind.match(err)
}

// IsNotNullConstraintError reports if the error resulted from writing NULL into a NOT NULL column.
func IsNotNullConstraintError(err error) bool {
	return notNullKind.match(err)
}

func (k constraintKind) match(err error) bool {
	if err == nil {
		return false
	}
	// DriverError embeds the statement in its message; only the driver
	// error itself is inspected for the string fallback.
	var de *DriverError
	if errors.As(err, &de) && de.Err != nil {
		err = de.Err
	}
	if e, ok := asError[sqlStateError](err); ok && contains(k.states, e.SQLState()) {
		return true
	}
	if e, ok := asError[errorCoder](err); ok && contains(k.states, e.Code()) {
		return true
	}
	if e, ok := asError[errorNumberer](err); ok && contains(k.numbers, e.Number()) {
		return true
	}
	// Fallback to string matching for drivers that don't implement interfaces.
	return containsAny(err.Error(), k.text...)
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func contains[T comparable](s []T, v T) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
