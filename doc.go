// Package sqlq is a typed SQL query-building layer over relational database drivers.
//
// Applications describe tables with package schema, compose queries with the
// builders in package query, and execute them through a session bound to a
// dialect (PostgreSQL, MySQL or SQLite). Results are decoded back into Go values
// according to each column's semantic type.
//
// # Packages
//
//   - schema: resolved table and column metadata, value codecs
//   - expr: SQL fragments, parameters, placeholders and operators
//   - dialect: driver contract and the per-dialect SQL compiler
//   - dialect/sql: database/sql backed driver
//   - dialect/pgx: pgx/v5 pool backed driver
//   - session: prepared statements, placeholder binding, row mapping
//   - query: select/insert/update/delete builders
//   - migrate: sequential migration runner
//   - config: configuration loading and driver wiring
//
// # Usage
//
//	users := schema.NewTable("users",
//	    schema.Integer("id").PrimaryKey(),
//	    schema.Text("name").NotNull(),
//	)
//	db, err := query.Open(dialect.SQLite, "file:app.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rows, err := db.Select().From(users).
//	    Where(expr.EQ(users.C("id"), 1)).
//	    All(ctx)
//
// # Errors
//
// All errors produced by this module are typed (ConfigurationError, BindingError,
// DecodingError, DriverError, NotImplementedError, NotFoundError) and can be
// inspected with errors.As or the IsXxx helpers of this package.
package sqlq
