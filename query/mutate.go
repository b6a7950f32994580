package query

import (
	"github.com/syssam/sqlq"
	"github.com/syssam/sqlq/dialect"
	"github.com/syssam/sqlq/expr"
	"github.com/syssam/sqlq/schema"
	"github.com/syssam/sqlq/session"
)

// UpdateBuilder holds the target table of an update until values are set.
type UpdateBuilder struct {
	db    *DB
	table *schema.Table
}

// Set sets the assignments, keyed by column field key. A value may be an
// expression, which is inlined instead of bound.
func (b *UpdateBuilder) Set(values map[string]any) *Update {
	u := &Update{cfg: dialect.UpdateConfig{Table: b.table, Set: values}}
	u.executor = executor{db: b.db, stmt: u}
	switch {
	case b.table == nil:
		u.AddError(sqlq.NewConfigurationError("update", "no table"))
	case len(values) == 0:
		u.AddError(sqlq.NewConfigurationError("update", "no values to set"))
	}
	return u
}

// Update is an update statement.
type Update struct {
	builder
	executor
	cfg dialect.UpdateConfig
}

// Where sets the where condition. Without it every row is updated.
func (u *Update) Where(cond expr.Expr) *Update {
	u.cfg.Where = cond
	return u
}

// Returning sets the returned projection. Without fields, every column of
// the table is returned.
func (u *Update) Returning(fields ...Selection) *Update {
	u.cfg.Returning = returning(&u.builder, u.cfg.Table, fields)
	return u
}

func (u *Update) build() (*expr.Fragment, []dialect.SelectedField, error) {
	if u.err != nil {
		return nil, nil, u.err
	}
	f, err := u.db.Dialect().BuildUpdate(&u.cfg)
	if err != nil {
		return nil, nil, err
	}
	return f, u.cfg.Returning, nil
}

func (u *Update) prepareOptions() []session.PrepareOption {
	return []session.PrepareOption{session.WithName(u.cfg.Table.Name())}
}

// Delete is a delete statement.
type Delete struct {
	builder
	executor
	cfg dialect.DeleteConfig
}

// Where sets the where condition.
func (d *Delete) Where(cond expr.Expr) *Delete {
	d.cfg.Where = cond
	return d
}

// Returning sets the returned projection. Without fields, every column of
// the table is returned.
func (d *Delete) Returning(fields ...Selection) *Delete {
	d.cfg.Returning = returning(&d.builder, d.cfg.Table, fields)
	return d
}

func (d *Delete) build() (*expr.Fragment, []dialect.SelectedField, error) {
	if d.err != nil {
		return nil, nil, d.err
	}
	f, err := d.db.Dialect().BuildDelete(&d.cfg)
	if err != nil {
		return nil, nil, err
	}
	return f, d.cfg.Returning, nil
}

func (d *Delete) prepareOptions() []session.PrepareOption {
	return []session.PrepareOption{session.WithName(d.cfg.Table.Name())}
}
