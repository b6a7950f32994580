package query

import (
	"context"

	"github.com/syssam/sqlq/dialect"
	"github.com/syssam/sqlq/expr"
	"github.com/syssam/sqlq/session"
)

// Executable is implemented by every statement builder.
type Executable interface {
	// ToSQL compiles the statement without executing it.
	ToSQL() (dialect.Query, error)
	// Prepare compiles the statement into a reusable prepared query.
	Prepare(name string) (*session.PreparedQuery, error)
	// Run executes the statement and returns the driver result.
	Run(ctx context.Context) (*dialect.Result, error)
	// All executes the statement and returns the mapped rows.
	All(ctx context.Context) ([]session.Row, error)
	// Get executes the statement and returns the first mapped row.
	Get(ctx context.Context) (session.Row, error)
	// Values executes the statement and returns rows as positional tuples.
	Values(ctx context.Context) ([][]any, error)
}

var (
	_ Executable = (*Select)(nil)
	_ Executable = (*Insert)(nil)
	_ Executable = (*Update)(nil)
	_ Executable = (*Delete)(nil)
)

// statement is the lowering step of a builder.
type statement interface {
	// build lowers the accumulated configuration. It returns the first
	// error recorded by the builder, if any.
	build() (*expr.Fragment, []dialect.SelectedField, error)
	// prepareOptions returns the options the prepared query is created with.
	prepareOptions() []session.PrepareOption
}

// builder records the first configuration error of a chain.
type builder struct {
	err error
}

// AddError records err unless an error was already recorded.
func (b *builder) AddError(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

// Err returns the first error recorded while building.
func (b *builder) Err() error { return b.err }

// executor implements Executable for a statement. Every terminal call
// compiles the statement once and executes the resulting prepared query.
type executor struct {
	db   *DB
	stmt statement
}

// ToSQL compiles the statement.
func (e executor) ToSQL() (dialect.Query, error) {
	f, _, err := e.stmt.build()
	if err != nil {
		return dialect.Query{}, err
	}
	return e.db.Dialect().Compile(f)
}

// Prepare compiles the statement into a prepared query. Placeholders are
// bound by the values passed to its terminals.
func (e executor) Prepare(name string) (*session.PreparedQuery, error) {
	f, fields, err := e.stmt.build()
	if err != nil {
		return nil, err
	}
	q, err := e.db.Dialect().Compile(f)
	if err != nil {
		return nil, err
	}
	opts := e.stmt.prepareOptions()
	if name != "" {
		opts = append(opts, session.WithName(name))
	}
	return e.db.session.Prepare(q, fields, opts...), nil
}

// Run executes the statement.
func (e executor) Run(ctx context.Context) (*dialect.Result, error) {
	p, err := e.Prepare("")
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, nil)
}

// All executes the statement and maps every row.
func (e executor) All(ctx context.Context) ([]session.Row, error) {
	p, err := e.Prepare("")
	if err != nil {
		return nil, err
	}
	return p.All(ctx, nil)
}

// Get executes the statement and maps the first row.
func (e executor) Get(ctx context.Context) (session.Row, error) {
	p, err := e.Prepare("")
	if err != nil {
		return nil, err
	}
	return p.Get(ctx, nil)
}

// Values executes the statement and returns the raw rows.
func (e executor) Values(ctx context.Context) ([][]any, error) {
	p, err := e.Prepare("")
	if err != nil {
		return nil, err
	}
	return p.Values(ctx, nil)
}
