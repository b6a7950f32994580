package session

import (
	"context"

	"github.com/syssam/sqlq"
	"github.com/syssam/sqlq/dialect"
	"github.com/syssam/sqlq/expr"
)

// Session owns a driver and the compiler of its dialect, and hands out
// prepared queries. A Session is safe for concurrent use when its driver is.
type Session struct {
	drv     dialect.Driver
	dialect *dialect.Dialect
	logger  Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the statement logger.
func WithLogger(l Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Session executing on drv and compiling with d.
func New(drv dialect.Driver, d *dialect.Dialect, opts ...Option) *Session {
	s := &Session{drv: drv, dialect: d, logger: NoopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Driver returns the underlying driver.
func (s *Session) Driver() dialect.Driver { return s.drv }

// Dialect returns the compiler of the session.
func (s *Session) Dialect() *dialect.Dialect { return s.dialect }

// Logger returns the statement logger.
func (s *Session) Logger() Logger { return s.logger }

// WithDriver returns a copy of the session that executes on drv, typically a
// transaction started from the session driver.
func (s *Session) WithDriver(drv dialect.Driver) *Session {
	c := *s
	c.drv = drv
	return &c
}

// Prepare returns a prepared query for q. Rows of the result are mapped by
// fields; a query without fields is executed as a statement without rows.
func (s *Session) Prepare(q dialect.Query, fields []dialect.SelectedField, opts ...PrepareOption) *PreparedQuery {
	p := &PreparedQuery{session: s, query: q, fields: fields}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PrepareExpr compiles e and prepares it without a projection.
func (s *Session) PrepareExpr(e expr.Expr, opts ...PrepareOption) (*PreparedQuery, error) {
	q, err := s.dialect.Compile(e)
	if err != nil {
		return nil, err
	}
	return s.Prepare(q, nil, opts...), nil
}

// Run executes a raw statement and returns the driver result.
func (s *Session) Run(ctx context.Context, e expr.Expr) (*dialect.Result, error) {
	p, err := s.PrepareExpr(e)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, nil)
}

// All executes a raw query and returns its rows keyed by result column name.
func (s *Session) All(ctx context.Context, e expr.Expr) ([]Row, error) {
	p, err := s.PrepareExpr(e)
	if err != nil {
		return nil, err
	}
	p.raw = true
	res, err := p.execute(ctx, nil)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, len(res.Rows))
	for i, values := range res.Rows {
		row := make(Row, len(res.Columns))
		for j, c := range res.Columns {
			if j < len(values) {
				row[c] = values[j]
			}
		}
		rows[i] = row
	}
	return rows, nil
}

// Get is like All but returns the first row, or a NotFoundError when there is none.
func (s *Session) Get(ctx context.Context, e expr.Expr) (Row, error) {
	rows, err := s.All(ctx, e)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, sqlq.NewNotFoundError("")
	}
	return rows[0], nil
}

// Values executes a raw query and returns its rows as positional tuples.
func (s *Session) Values(ctx context.Context, e expr.Expr) ([][]any, error) {
	p, err := s.PrepareExpr(e)
	if err != nil {
		return nil, err
	}
	p.raw = true
	res, err := p.execute(ctx, nil)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}
