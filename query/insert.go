package query

import (
	"github.com/syssam/sqlq"
	"github.com/syssam/sqlq/dialect"
	"github.com/syssam/sqlq/expr"
	"github.com/syssam/sqlq/schema"
	"github.com/syssam/sqlq/session"
)

// InsertBuilder holds the target table of an insert until rows are given.
type InsertBuilder struct {
	db    *DB
	table *schema.Table
}

// Values sets the rows to insert, keyed by column field key. A value may be
// an expression, which is inlined instead of bound.
func (b *InsertBuilder) Values(rows ...map[string]any) *Insert {
	i := &Insert{cfg: dialect.InsertConfig{Table: b.table, Values: rows}}
	i.executor = executor{db: b.db, stmt: i}
	switch {
	case b.table == nil:
		i.AddError(sqlq.NewConfigurationError("insert", "no table"))
	case len(rows) == 0:
		i.AddError(sqlq.NewConfigurationError("insert", "values() must be called with at least one row"))
	}
	return i
}

// Insert is an insert statement.
type Insert struct {
	builder
	executor
	cfg dialect.InsertConfig
}

// Returning sets the returned projection. Without fields, every column of
// the table is returned.
func (i *Insert) Returning(fields ...Selection) *Insert {
	i.cfg.Returning = returning(&i.builder, i.cfg.Table, fields)
	return i
}

// ConflictConfig configures an on conflict clause.
type ConflictConfig struct {
	// Target are the columns of the unique index the conflict is checked on.
	Target []*schema.Column
	// Where is the predicate of a partial unique index. It requires Target.
	Where expr.Expr
	// Set holds the assignments of a do update, keyed by column field key.
	// Use Excluded to reference the value proposed for insertion.
	Set map[string]any
	// SetWhere restricts the rows a do update applies to.
	SetWhere expr.Expr
}

// OnConflictDoNothing skips rows that conflict on the configured target, or
// on any constraint without target.
func (i *Insert) OnConflictDoNothing(config ...ConflictConfig) *Insert {
	var c ConflictConfig
	if len(config) > 0 {
		c = config[0]
	}
	if expr.Present(c.Where) && len(c.Target) == 0 {
		i.AddError(sqlq.NewConfigurationError("insert", "on conflict where requires a target"))
		return i
	}
	parts := []expr.Expr{conflictTarget(c)}
	parts = append(parts, expr.Raw("do nothing"))
	i.cfg.OnConflict = expr.Concat(parts...)
	return i
}

// OnConflictDoUpdate updates rows that conflict on the configured target.
func (i *Insert) OnConflictDoUpdate(c ConflictConfig) *Insert {
	if len(c.Target) == 0 {
		i.AddError(sqlq.NewConfigurationError("insert", "on conflict do update requires a target"))
		return i
	}
	if i.cfg.Table == nil {
		return i
	}
	set, err := i.db.Dialect().BuildUpdateSet(i.cfg.Table, c.Set)
	if err != nil {
		i.AddError(err)
		return i
	}
	parts := []expr.Expr{conflictTarget(c), expr.SQL("do update set ?", set)}
	if expr.Present(c.SetWhere) {
		parts = append(parts, expr.SQL(" where ?", c.SetWhere))
	}
	i.cfg.OnConflict = expr.Concat(parts...)
	return i
}

func conflictTarget(c ConflictConfig) *expr.Fragment {
	if len(c.Target) == 0 {
		return expr.Empty()
	}
	names := make([]expr.Expr, len(c.Target))
	for i, col := range c.Target {
		names[i] = expr.Ident(col.Name)
	}
	target := expr.SQL("(?) ", expr.Join(names, expr.Raw(", ")))
	if expr.Present(c.Where) {
		target = expr.SQL("?where ? ", target, expr.Unqualify(c.Where))
	}
	return target
}

// Excluded references the value proposed for insertion into c, for use in
// the assignments of OnConflictDoUpdate.
func Excluded(c *schema.Column) *expr.Fragment {
	return expr.SQL("excluded.?", expr.Ident(c.Name))
}

func (i *Insert) build() (*expr.Fragment, []dialect.SelectedField, error) {
	if i.err != nil {
		return nil, nil, i.err
	}
	f, err := i.db.Dialect().BuildInsert(&i.cfg)
	if err != nil {
		return nil, nil, err
	}
	return f, i.cfg.Returning, nil
}

func (i *Insert) prepareOptions() []session.PrepareOption {
	return []session.PrepareOption{session.WithName(i.cfg.Table.Name())}
}

// returning flattens a returned projection, defaulting to every column of t.
func returning(b *builder, t *schema.Table, fields []Selection) []dialect.SelectedField {
	if t == nil {
		return nil
	}
	if len(fields) == 0 {
		return dialect.TableFields(t)
	}
	sel, err := flatten(fields)
	if err != nil {
		b.AddError(err)
		return nil
	}
	return sel
}
