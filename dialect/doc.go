// Package dialect defines the driver contract and the per-dialect SQL compiler.
//
// # Supported Dialects
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # Driver Interface
//
// A Driver materializes the outcome of a statement into a Result:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args []any) (*Result, error)
//	    Query(ctx context.Context, query string, args []any) (*Result, error)
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// Implementations live in dialect/sql (database/sql) and dialect/pgx (pgx/v5).
//
// # Compiler
//
// A *Dialect lowers fragments and statement configurations into SQL text:
//
//	d := dialect.MustLookup(dialect.Postgres)
//	q, err := d.Compile(expr.EQ(users.C("id"), 1))
//	// q.SQL    == `"users"."id" = $1`
//	// q.Params == []any{1}
//
// Identifiers are quoted with double quotes (backticks on MySQL). Parameters
// are numbered `$1, $2, ...` on PostgreSQL and rendered as `?` elsewhere.
// Compilation is pure and deterministic.
//
// # Join Nullability
//
// Nullability tracks, per table alias, whether its fields are guaranteed
// non-null in a joined result:
//
//	left join:  the joined alias becomes nullable
//	right join: all previous aliases become nullable
//	inner join: the joined alias is non-null
//	full join:  all aliases become nullable
package dialect
