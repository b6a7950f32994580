package query

import (
	"slices"

	"github.com/syssam/sqlq"
	"github.com/syssam/sqlq/dialect"
	"github.com/syssam/sqlq/expr"
	"github.com/syssam/sqlq/schema"
	"github.com/syssam/sqlq/session"
)

// WithBuilder starts selects preceded by common table expressions.
type WithBuilder struct {
	db   *DB
	with []*dialect.Subquery
}

// Select starts a select of the given projection.
func (w *WithBuilder) Select(fields ...Selection) *SelectBuilder {
	return &SelectBuilder{db: w.db, fields: fields, with: w.with}
}

// SelectDistinct starts a select distinct of the given projection.
func (w *WithBuilder) SelectDistinct(fields ...Selection) *SelectBuilder {
	return &SelectBuilder{db: w.db, fields: fields, with: w.with, distinct: true}
}

// SelectBuilder holds a projection until a source is attached by From.
type SelectBuilder struct {
	db       *DB
	fields   []Selection
	with     []*dialect.Subquery
	distinct bool
}

// From attaches the source of the select: a *schema.Table or a
// *dialect.Subquery. Any other value records a configuration error.
func (b *SelectBuilder) From(src any) *Select {
	s := &Select{
		cfg: dialect.SelectConfig{
			With:     b.with,
			Distinct: b.distinct,
		},
		aliases: make(map[string]bool),
	}
	s.executor = executor{db: b.db, stmt: s}
	source, err := sourceOf("from", src)
	if err != nil {
		s.AddError(err)
		return s
	}
	name := source.Name()
	s.cfg.Source = source
	s.aliases[name] = true
	s.nullability = dialect.NewNullability(name)
	if len(b.fields) == 0 {
		s.cfg.Fields = source.Fields()
		return s
	}
	s.partial = true
	fields, err := flatten(b.fields)
	if err != nil {
		s.AddError(err)
		return s
	}
	s.cfg.Fields = fields
	return s
}

func sourceOf(op string, src any) (dialect.Source, error) {
	switch src := src.(type) {
	case *schema.Table:
		if src != nil {
			return dialect.TableSource(src), nil
		}
	case *dialect.Subquery:
		if src != nil {
			if src.Alias == "" {
				return dialect.Source{}, sqlq.NewConfigurationError(op, "subquery without alias")
			}
			return dialect.SubquerySource(src), nil
		}
	case *Select:
		return dialect.Source{}, sqlq.NewConfigurationError(op, "use As to alias the subquery")
	}
	return dialect.Source{}, sqlq.NewConfigurationError(op, "unsupported source %T", src)
}

// Select is a select statement with a source. Chain methods other than the
// joins replace what a previous call set.
//
// A Select is owned by one goroutine while it is built.
type Select struct {
	builder
	executor
	cfg         dialect.SelectConfig
	partial     bool
	aliases     map[string]bool
	nullability dialect.Nullability
}

// Fields returns the projected fields, resolving aliased expressions to
// their SQL.
func (s *Select) Fields() Fields { return newFields(s.cfg.Fields, false) }

// Nullability returns a copy of the join nullability of the select.
func (s *Select) Nullability() dialect.Nullability { return s.nullability.Clone() }

// Where sets the where condition.
func (s *Select) Where(cond expr.Expr) *Select {
	s.cfg.Where = cond
	return s
}

// WhereFunc sets the where condition returned by fn.
func (s *Select) WhereFunc(fn func(Fields) expr.Expr) *Select {
	return s.Where(fn(newFields(s.cfg.Fields, false)))
}

// Having sets the having condition.
func (s *Select) Having(cond expr.Expr) *Select {
	s.cfg.Having = cond
	return s
}

// HavingFunc sets the having condition returned by fn.
func (s *Select) HavingFunc(fn func(Fields) expr.Expr) *Select {
	return s.Having(fn(newFields(s.cfg.Fields, false)))
}

// GroupBy sets the grouping. Columns and expressions are accepted.
func (s *Select) GroupBy(columns ...any) *Select {
	s.cfg.GroupBy = exprs(columns)
	return s
}

// GroupByFunc sets the grouping returned by fn.
func (s *Select) GroupByFunc(fn func(Fields) []expr.Expr) *Select {
	s.cfg.GroupBy = fn(newFields(s.cfg.Fields, true))
	return s
}

// OrderBy sets the ordering. Columns and expressions are accepted.
func (s *Select) OrderBy(columns ...any) *Select {
	s.cfg.OrderBy = exprs(columns)
	return s
}

// OrderByFunc sets the ordering returned by fn.
func (s *Select) OrderByFunc(fn func(Fields) []expr.Expr) *Select {
	s.cfg.OrderBy = fn(newFields(s.cfg.Fields, true))
	return s
}

// Limit sets the maximum number of rows.
func (s *Select) Limit(n int) *Select {
	s.cfg.Limit = &n
	return s
}

// Offset sets the number of rows to skip.
func (s *Select) Offset(n int) *Select {
	s.cfg.Offset = &n
	return s
}

// LockConfig holds the options of a row-locking clause.
type LockConfig struct {
	Of         []*schema.Table
	NoWait     bool
	SkipLocked bool
}

// For sets the row-locking clause.
func (s *Select) For(strength dialect.LockStrength, config ...LockConfig) *Select {
	l := &dialect.Lock{Strength: strength}
	if len(config) > 0 {
		l.Of, l.NoWait, l.SkipLocked = config[0].Of, config[0].NoWait, config[0].SkipLocked
	}
	s.cfg.Lock = l
	return s
}

// LeftJoin adds a left join of src. Fields of src may be NULL in the result.
func (s *Select) LeftJoin(src any, on expr.Expr) *Select {
	return s.join(dialect.JoinLeft, src, staticOn(on))
}

// LeftJoinFunc is like LeftJoin with the condition returned by fn.
func (s *Select) LeftJoinFunc(src any, fn func(Fields) expr.Expr) *Select {
	return s.join(dialect.JoinLeft, src, fn)
}

// RightJoin adds a right join of src. Fields of the tables joined so far may
// be NULL in the result.
func (s *Select) RightJoin(src any, on expr.Expr) *Select {
	return s.join(dialect.JoinRight, src, staticOn(on))
}

// RightJoinFunc is like RightJoin with the condition returned by fn.
func (s *Select) RightJoinFunc(src any, fn func(Fields) expr.Expr) *Select {
	return s.join(dialect.JoinRight, src, fn)
}

// InnerJoin adds an inner join of src.
func (s *Select) InnerJoin(src any, on expr.Expr) *Select {
	return s.join(dialect.JoinInner, src, staticOn(on))
}

// InnerJoinFunc is like InnerJoin with the condition returned by fn.
func (s *Select) InnerJoinFunc(src any, fn func(Fields) expr.Expr) *Select {
	return s.join(dialect.JoinInner, src, fn)
}

// FullJoin adds a full join of src. Fields of every table may be NULL in the
// result.
func (s *Select) FullJoin(src any, on expr.Expr) *Select {
	return s.join(dialect.JoinFull, src, staticOn(on))
}

// FullJoinFunc is like FullJoin with the condition returned by fn.
func (s *Select) FullJoinFunc(src any, fn func(Fields) expr.Expr) *Select {
	return s.join(dialect.JoinFull, src, fn)
}

func staticOn(on expr.Expr) func(Fields) expr.Expr {
	return func(Fields) expr.Expr { return on }
}

func (s *Select) join(t dialect.JoinType, src any, on func(Fields) expr.Expr) *Select {
	if s.cfg.Source.IsZero() {
		s.AddError(sqlq.NewConfigurationError("join", "no source table or subquery"))
		return s
	}
	source, err := sourceOf("join", src)
	if err != nil {
		s.AddError(err)
		return s
	}
	alias := source.Name()
	if s.aliases[alias] {
		s.AddError(sqlq.NewConfigurationError("join", "alias %q is already used in this query", alias))
		return s
	}
	if !s.partial {
		// The first join moves the fields of the base source under its name.
		if len(s.cfg.Joins) == 0 {
			base := s.cfg.Source.Name()
			for i, f := range s.cfg.Fields {
				s.cfg.Fields[i].Path = append([]string{base}, f.Path...)
			}
		}
		s.cfg.Fields = append(s.cfg.Fields, source.Fields(alias)...)
	}
	s.aliases[alias] = true
	s.cfg.Joins = append(s.cfg.Joins, dialect.Join{
		Type:   t,
		Source: source,
		On:     on(newFields(s.cfg.Fields, true)),
	})
	s.nullability.Apply(alias, t)
	return s
}

// As returns the select as a subquery referenced by alias.
func (s *Select) As(alias string) *dialect.Subquery {
	f, _, err := s.build()
	if err != nil {
		f = expr.Fail(err)
	}
	return &dialect.Subquery{Query: f, Fields: slices.Clone(s.cfg.Fields), Alias: alias}
}

// Fragment renders the select as a parenthesized subquery, so it can be
// used as an operand of expressions like expr.In or expr.Exists.
func (s *Select) Fragment() *expr.Fragment {
	return expr.SQL("(?)", s.Unwrapped())
}

// Unwrapped renders the select without parentheses.
func (s *Select) Unwrapped() *expr.Fragment {
	f, _, err := s.build()
	if err != nil {
		return expr.Fail(err)
	}
	return f
}

func (s *Select) build() (*expr.Fragment, []dialect.SelectedField, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	f, err := s.db.Dialect().BuildSelect(&s.cfg)
	if err != nil {
		return nil, nil, err
	}
	return f, s.cfg.Fields, nil
}

func (s *Select) prepareOptions() []session.PrepareOption {
	return []session.PrepareOption{
		session.WithNullability(s.nullability.Clone()),
		session.WithName(s.cfg.Source.Name()),
	}
}

func exprs(values []any) []expr.Expr {
	if len(values) == 0 {
		return nil
	}
	out := make([]expr.Expr, len(values))
	for i, v := range values {
		out[i] = expr.From(v)
	}
	return out
}
