// Package sql implements dialect.Driver on top of database/sql.
//
// Any registered database/sql driver can be used. The driver name decides the
// dialect ("postgres", "pgx", "mysql", "sqlite", "sqlite3"):
//
//	import _ "modernc.org/sqlite"
//
//	drv, err := sql.Open("sqlite", "file:app.db?_pragma=foreign_keys(1)")
//	if err != nil {
//	    return err
//	}
//	db, err := query.New(drv)
//
// Query reads all rows into a dialect.Result before returning, so no
// connection is held after the call.
//
// # Session Variables
//
// WithVar attaches variables that are set on the connection before every
// statement, and reset before the connection returns to the pool:
//
//	ctx = sql.WithVar(ctx, "app.tenant_id", "42")
//
// # Statistics
//
// NewStatsDriver wraps any dialect.Driver and counts its statements:
//
//	drv := sql.NewStatsDriver(base,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLog(logger),
//	)
package sql
