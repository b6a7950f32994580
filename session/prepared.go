package session

import (
	"context"
	"fmt"

	"github.com/syssam/sqlq"
	"github.com/syssam/sqlq/dialect"
	"github.com/syssam/sqlq/expr"
)

// PrepareOption configures a PreparedQuery.
type PrepareOption func(*PreparedQuery)

// WithName names the prepared query. The name labels not-found errors.
func WithName(name string) PrepareOption {
	return func(p *PreparedQuery) { p.name = name }
}

// WithNullability sets the join nullability used by the row mapper.
func WithNullability(n dialect.Nullability) PrepareOption {
	return func(p *PreparedQuery) { p.nullability = n }
}

// PreparedQuery is a compiled statement bound to a session. It may be
// executed any number of times with different placeholder values.
type PreparedQuery struct {
	session     *Session
	query       dialect.Query
	fields      []dialect.SelectedField
	nullability dialect.Nullability
	name        string
	// raw marks statements that return rows without a known projection.
	raw bool
}

// SQL returns the statement text.
func (p *PreparedQuery) SQL() string { return p.query.SQL }

// Params returns the parameter list. Placeholders appear as expr.Placeholder.
func (p *PreparedQuery) Params() []any { return p.query.Params }

// Name returns the name given by WithName.
func (p *PreparedQuery) Name() string { return p.name }

// Fields returns the projection the rows are mapped by.
func (p *PreparedQuery) Fields() []dialect.SelectedField { return p.fields }

// Bind substitutes placeholders with values and returns the driver arguments.
// Values bound to a typed placeholder are encoded by its column.
func (p *PreparedQuery) Bind(values map[string]any) ([]any, error) {
	args := make([]any, len(p.query.Params))
	for i, v := range p.query.Params {
		ph, ok := v.(expr.Placeholder)
		if !ok {
			args[i] = v
			continue
		}
		bound, ok := values[ph.Name]
		if !ok {
			return nil, sqlq.NewBindingError(ph.Name)
		}
		if ph.Column != nil {
			enc, err := ph.Column.Encode(bound)
			if err != nil {
				return nil, fmt.Errorf("sqlq: binding placeholder %q: %w", ph.Name, err)
			}
			bound = enc
		}
		args[i] = bound
	}
	return args, nil
}

// execute is the single driver call shared by every execution shape.
func (p *PreparedQuery) execute(ctx context.Context, values map[string]any) (*dialect.Result, error) {
	args, err := p.Bind(values)
	if err != nil {
		return nil, err
	}
	s := p.session
	s.logger.LogQuery(ctx, p.query.SQL, args)
	var res *dialect.Result
	if len(p.fields) > 0 || p.raw {
		res, err = s.drv.Query(ctx, p.query.SQL, args)
	} else {
		res, err = s.drv.Exec(ctx, p.query.SQL, args)
	}
	if err != nil {
		return nil, sqlq.NewDriverError(p.query.SQL, args, err)
	}
	return res, nil
}

// Execute runs the statement and returns the driver result.
func (p *PreparedQuery) Execute(ctx context.Context, values map[string]any) (*dialect.Result, error) {
	return p.execute(ctx, values)
}

// Run runs the statement and returns the driver result without decoding rows.
func (p *PreparedQuery) Run(ctx context.Context, values map[string]any) (*dialect.Result, error) {
	return p.execute(ctx, values)
}

// All runs the query and returns every row mapped by the projection.
func (p *PreparedQuery) All(ctx context.Context, values map[string]any) ([]Row, error) {
	if len(p.fields) == 0 {
		return nil, sqlq.NewConfigurationError("all", "query has no projected fields")
	}
	res, err := p.execute(ctx, values)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(res.Rows))
	for _, raw := range res.Rows {
		row, err := MapRow(p.fields, raw, p.nullability)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Get runs the query and returns the first mapped row. An empty result is
// reported as a *sqlq.NotFoundError.
func (p *PreparedQuery) Get(ctx context.Context, values map[string]any) (Row, error) {
	if len(p.fields) == 0 {
		return nil, sqlq.NewConfigurationError("get", "query has no projected fields")
	}
	res, err := p.execute(ctx, values)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, sqlq.NewNotFoundError(p.name)
	}
	return MapRow(p.fields, res.Rows[0], p.nullability)
}

// Values runs the query and returns rows as positional tuples of driver values.
func (p *PreparedQuery) Values(ctx context.Context, values map[string]any) ([][]any, error) {
	if len(p.fields) == 0 {
		p = p.asRaw()
	}
	res, err := p.execute(ctx, values)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

func (p *PreparedQuery) asRaw() *PreparedQuery {
	c := *p
	c.raw = true
	return &c
}
