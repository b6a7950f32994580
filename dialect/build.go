package dialect

import (
	"github.com/syssam/sqlq"
	"github.com/syssam/sqlq/expr"
	"github.com/syssam/sqlq/schema"
)

var comma = expr.Raw(", ")

// BuildSelection renders an ordered projection. When single is true, column
// references are rendered without table qualification.
func (d *Dialect) BuildSelection(fields []SelectedField, single bool) (*expr.Fragment, error) {
	if len(fields) == 0 {
		return nil, sqlq.NewConfigurationError("select", "no fields to select")
	}
	items := make([]expr.Expr, 0, len(fields))
	for _, f := range fields {
		if f.Expr == nil {
			return nil, sqlq.NewConfigurationError("select", "field %v has no expression", f.Path)
		}
		var item *expr.Fragment
		if a, ok := f.Expr.(*expr.Aliased); ok {
			inner := a.Expr.Fragment()
			if single {
				inner = expr.Unqualify(inner)
			}
			item = expr.SQL("? as ?", inner, expr.Ident(a.Alias))
		} else {
			item = f.Expr.Fragment()
			if single {
				item = expr.Unqualify(item)
			}
		}
		items = append(items, item)
	}
	return expr.Join(items, comma), nil
}

// BuildSelect lowers a select configuration:
//
//	[with ...] select [distinct] <fields> from <source> [joins] [where] [group by] [having] [order by] [limit] [offset] [lock]
func (d *Dialect) BuildSelect(cfg *SelectConfig) (*expr.Fragment, error) {
	if cfg.Source.IsZero() {
		return nil, sqlq.NewConfigurationError("select", "no source table or subquery")
	}
	parts := make([]expr.Expr, 0, 16)
	if len(cfg.With) > 0 {
		ctes := make([]expr.Expr, 0, len(cfg.With))
		for _, sq := range cfg.With {
			ctes = append(ctes, expr.SQL("? as (?)", expr.Ident(sq.Alias), sq.Query))
		}
		parts = append(parts, expr.SQL("with ? ", expr.Join(ctes, comma)))
	}
	parts = append(parts, expr.Raw("select"))
	if cfg.Distinct {
		parts = append(parts, expr.Raw(" distinct"))
	}
	selection, err := d.BuildSelection(cfg.Fields, len(cfg.Joins) == 0)
	if err != nil {
		return nil, err
	}
	parts = append(parts, expr.SQL(" ? from ?", selection, d.source(cfg.Source, cfg.With)))
	for _, j := range cfg.Joins {
		if j.Type == JoinFull && d.name == MySQL {
			return nil, sqlq.NewNotImplementedError(d.name, "full join")
		}
		if j.Source.IsZero() {
			return nil, sqlq.NewConfigurationError("join", "no source table or subquery")
		}
		if !expr.Present(j.On) {
			parts = append(parts, expr.SQL(" "+string(j.Type)+" join ? on true", d.source(j.Source, cfg.With)))
			continue
		}
		parts = append(parts, expr.SQL(" "+string(j.Type)+" join ? on ?", d.source(j.Source, cfg.With), j.On))
	}
	if expr.Present(cfg.Where) {
		parts = append(parts, expr.SQL(" where ?", cfg.Where))
	}
	if g := expr.Join(cfg.GroupBy, comma); expr.Present(g) {
		parts = append(parts, expr.SQL(" group by ?", g))
	}
	if expr.Present(cfg.Having) {
		parts = append(parts, expr.SQL(" having ?", cfg.Having))
	}
	if o := expr.Join(cfg.OrderBy, comma); expr.Present(o) {
		parts = append(parts, expr.SQL(" order by ?", o))
	}
	if cfg.Limit != nil {
		parts = append(parts, expr.SQL(" limit ?", *cfg.Limit))
	}
	if cfg.Offset != nil {
		// SQLite and MySQL only accept offset after a limit.
		if cfg.Limit == nil {
			switch d.name {
			case SQLite:
				parts = append(parts, expr.Raw(" limit -1"))
			case MySQL:
				parts = append(parts, expr.Raw(" limit 18446744073709551615"))
			}
		}
		parts = append(parts, expr.SQL(" offset ?", *cfg.Offset))
	}
	if cfg.Lock != nil {
		lock, err := d.lock(cfg.Lock)
		if err != nil {
			return nil, err
		}
		parts = append(parts, lock)
	}
	return expr.Concat(parts...), nil
}

func (d *Dialect) source(s Source, with []*Subquery) expr.Expr {
	if s.Table != nil {
		return expr.Tbl(s.Table)
	}
	for _, cte := range with {
		if cte == s.Subquery {
			return expr.Ident(cte.Alias)
		}
	}
	return expr.SQL("(?) ?", s.Subquery.Query, expr.Ident(s.Subquery.Alias))
}

func (d *Dialect) lock(l *Lock) (*expr.Fragment, error) {
	switch d.name {
	case SQLite:
		return nil, sqlq.NewNotImplementedError(d.name, "row locking")
	case MySQL:
		if l.Strength != LockUpdate && l.Strength != LockShare {
			return nil, sqlq.NewNotImplementedError(d.name, "for "+string(l.Strength))
		}
	}
	if l.Strength == "" {
		return nil, sqlq.NewConfigurationError("for", "missing lock strength")
	}
	parts := []expr.Expr{expr.Raw(" for " + string(l.Strength))}
	if len(l.Of) > 0 {
		tables := make([]expr.Expr, len(l.Of))
		for i, t := range l.Of {
			tables[i] = expr.Ident(t.RefName())
		}
		parts = append(parts, expr.SQL(" of ?", expr.Join(tables, comma)))
	}
	switch {
	case l.NoWait && l.SkipLocked:
		return nil, sqlq.NewConfigurationError("for", "nowait and skip locked are mutually exclusive")
	case l.NoWait:
		parts = append(parts, expr.Raw(" nowait"))
	case l.SkipLocked:
		parts = append(parts, expr.Raw(" skip locked"))
	}
	return expr.Concat(parts...), nil
}

// BuildInsert lowers an insert configuration:
//
//	insert into <table> (<columns>) values (<row>), ... [on conflict ...] [returning <fields>]
//
// The column list is the union of the keys of all rows, in table column order.
// A row that lacks one of the columns gets the column default, or `default`
// (`null` on SQLite) when the column has none.
func (d *Dialect) BuildInsert(cfg *InsertConfig) (*expr.Fragment, error) {
	if cfg.Table == nil {
		return nil, sqlq.NewConfigurationError("insert", "no table")
	}
	if len(cfg.Values) == 0 {
		return nil, sqlq.NewConfigurationError("insert", "values() must be called with at least one row")
	}
	present := make(map[string]bool)
	for _, row := range cfg.Values {
		for key := range row {
			if _, ok := cfg.Table.Lookup(key); !ok {
				return nil, sqlq.NewConfigurationError("insert", "table %q has no column with key %q", cfg.Table.Name(), key)
			}
			present[key] = true
		}
	}
	var columns []*schema.Column
	for _, c := range cfg.Table.Columns() {
		if present[c.Key] {
			columns = append(columns, c)
		}
	}
	parts := []expr.Expr{expr.SQL("insert into ?", expr.Ident(cfg.Table.Name()))}
	if len(columns) == 0 {
		if len(cfg.Values) > 1 {
			return nil, sqlq.NewConfigurationError("insert", "multiple rows without values")
		}
		if d.name == MySQL {
			parts = append(parts, expr.Raw(" () values ()"))
		} else {
			parts = append(parts, expr.Raw(" default values"))
		}
	} else {
		names := make([]expr.Expr, len(columns))
		for i, c := range columns {
			names[i] = expr.Ident(c.Name)
		}
		rows := make([]expr.Expr, len(cfg.Values))
		for i, row := range cfg.Values {
			cells := make([]expr.Expr, len(columns))
			for j, c := range columns {
				v, ok := row[c.Key]
				switch {
				case ok:
					cells[j] = cell(v, c)
				case c.HasDefault:
					cells[j] = cell(c.DefaultValue, c)
				case d.name == SQLite:
					cells[j] = expr.Null()
				default:
					cells[j] = expr.Default()
				}
			}
			rows[i] = expr.SQL("(?)", expr.Join(cells, comma))
		}
		parts = append(parts, expr.SQL(" (?) values ?", expr.Join(names, comma), expr.Join(rows, comma)))
	}
	if cfg.OnConflict != nil {
		if d.name == MySQL {
			return nil, sqlq.NewNotImplementedError(d.name, "on conflict")
		}
		parts = append(parts, expr.SQL(" on conflict ?", cfg.OnConflict))
	}
	returning, err := d.returning(cfg.Returning)
	if err != nil {
		return nil, err
	}
	return expr.Concat(append(parts, returning)...), nil
}

// BuildUpdateSet renders `"a" = <v>, "b" = <v>` in table column order.
func (d *Dialect) BuildUpdateSet(t *schema.Table, set map[string]any) (*expr.Fragment, error) {
	if len(set) == 0 {
		return nil, sqlq.NewConfigurationError("update", "no values to set")
	}
	for key := range set {
		if _, ok := t.Lookup(key); !ok {
			return nil, sqlq.NewConfigurationError("update", "table %q has no column with key %q", t.Name(), key)
		}
	}
	items := make([]expr.Expr, 0, len(set))
	for _, c := range t.Columns() {
		v, ok := set[c.Key]
		if !ok {
			continue
		}
		items = append(items, expr.SQL("? = ?", expr.Ident(c.Name), cell(v, c)))
	}
	return expr.Join(items, comma), nil
}

// BuildUpdate lowers an update configuration:
//
//	update <table> set <assignments> [where] [returning <fields>]
func (d *Dialect) BuildUpdate(cfg *UpdateConfig) (*expr.Fragment, error) {
	if cfg.Table == nil {
		return nil, sqlq.NewConfigurationError("update", "no table")
	}
	set, err := d.BuildUpdateSet(cfg.Table, cfg.Set)
	if err != nil {
		return nil, err
	}
	parts := []expr.Expr{expr.SQL("update ? set ?", expr.Tbl(cfg.Table), set)}
	if expr.Present(cfg.Where) {
		parts = append(parts, expr.SQL(" where ?", cfg.Where))
	}
	returning, err := d.returning(cfg.Returning)
	if err != nil {
		return nil, err
	}
	return expr.Concat(append(parts, returning)...), nil
}

// BuildDelete lowers a delete configuration:
//
//	delete from <table> [where] [returning <fields>]
func (d *Dialect) BuildDelete(cfg *DeleteConfig) (*expr.Fragment, error) {
	if cfg.Table == nil {
		return nil, sqlq.NewConfigurationError("delete", "no table")
	}
	parts := []expr.Expr{expr.SQL("delete from ?", expr.Tbl(cfg.Table))}
	if expr.Present(cfg.Where) {
		parts = append(parts, expr.SQL(" where ?", cfg.Where))
	}
	returning, err := d.returning(cfg.Returning)
	if err != nil {
		return nil, err
	}
	return expr.Concat(append(parts, returning)...), nil
}

func (d *Dialect) returning(fields []SelectedField) (expr.Expr, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	if d.name == MySQL {
		return nil, sqlq.NewNotImplementedError(d.name, "returning")
	}
	selection, err := d.BuildSelection(fields, true)
	if err != nil {
		return nil, err
	}
	return expr.SQL(" returning ?", selection), nil
}

// cell wraps an insert or update value as a parameter typed by c, unless it
// is already an expression.
func cell(v any, c *schema.Column) expr.Expr {
	switch v := v.(type) {
	case expr.Param:
		if v.Column == nil {
			v.Column = c
		}
		return v
	case expr.Placeholder:
		if v.Column == nil {
			v.Column = c
		}
		return v
	case expr.Expr:
		return v
	}
	return expr.Bind(v, c)
}
