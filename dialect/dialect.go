package dialect

import (
	"context"
	"database/sql/driver"
)

// Dialect names for external usage.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// ExecQuerier wraps the two execution methods of a database client.
//
// Exec runs a statement that does not return rows and reports the affected
// row count. Query runs a statement that returns rows and materializes them.
type ExecQuerier interface {
	Exec(ctx context.Context, query string, args []any) (*Result, error)
	Query(ctx context.Context, query string, args []any) (*Result, error)
}

// Driver is the interface that wraps all necessary operations for database clients.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The provided context is used until the transaction is committed or rolled back.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	Driver
	driver.Tx
}

// Result is the materialized outcome of a driver call. Query fills Columns and
// Rows; Exec fills RowsAffected and, where supported, LastInsertID.
type Result struct {
	Columns      []string
	Rows         [][]any
	RowsAffected int64
	LastInsertID int64
}

type nopTx struct {
	Driver
}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

// NopTx returns a Tx with a no-op Commit / Rollback methods wrapping
// the provided Driver d.
func NopTx(d Driver) Tx {
	return nopTx{d}
}
