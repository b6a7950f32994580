package query

import (
	"slices"
	"strings"

	"github.com/syssam/sqlq"
	"github.com/syssam/sqlq/dialect"
	"github.com/syssam/sqlq/expr"
	"github.com/syssam/sqlq/schema"
)

// Selection is one entry of a projection: a field under a key, or a group of
// nested selections.
type Selection struct {
	key    string
	value  any
	nested []Selection
}

// Field selects v under key. v may be a *schema.Column, an expr.Expr, a
// *schema.Table or a *dialect.Subquery. Tables and subqueries are expanded
// into a nested group of all their fields.
func Field(key string, v any) Selection {
	return Selection{key: key, value: v}
}

// Nest groups selections under key. Rows of a joined select decode a group
// to nil when all of its columns come from one outer-joined table that had
// no matching row.
func Nest(key string, fields ...Selection) Selection {
	return Selection{key: key, nested: fields}
}

// Columns returns a selection of each given column under its field key.
func Columns(columns ...*schema.Column) []Selection {
	sel := make([]Selection, len(columns))
	for i, c := range columns {
		sel[i] = Field(c.Key, c)
	}
	return sel
}

// flatten turns the selection tree into an ordered projection.
func flatten(sel []Selection, prefix ...string) ([]dialect.SelectedField, error) {
	var fields []dialect.SelectedField
	seen := make(map[string]bool, len(sel))
	for _, s := range sel {
		if s.key == "" {
			return nil, sqlq.NewConfigurationError("select", "field without a key in %v", prefix)
		}
		if seen[s.key] {
			return nil, sqlq.NewConfigurationError("select", "field %q is selected twice", strings.Join(append(slices.Clone(prefix), s.key), "."))
		}
		seen[s.key] = true
		path := append(slices.Clone(prefix), s.key)
		if s.nested != nil {
			nested, err := flatten(s.nested, path...)
			if err != nil {
				return nil, err
			}
			fields = append(fields, nested...)
			continue
		}
		switch v := s.value.(type) {
		case nil:
			return nil, sqlq.NewConfigurationError("select", "field %q has no value", strings.Join(path, "."))
		case *schema.Column:
			fields = append(fields, dialect.ColumnField(v, path...))
		case *schema.Table:
			fields = append(fields, dialect.TableFields(v, path...)...)
		case *dialect.Subquery:
			fields = append(fields, v.SelectedFields(path...)...)
		case *Select:
			return nil, sqlq.NewConfigurationError("select", "field %q: use As to select a subquery", strings.Join(path, "."))
		case expr.Expr:
			f := dialect.SelectedField{Path: path, Expr: v}
			if c, ok := expr.ColumnOf(v); ok {
				f.Column, f.Source = c, c.TableName()
			}
			fields = append(fields, f)
		default:
			return nil, sqlq.NewConfigurationError("select", "field %q: unsupported value %T", strings.Join(path, "."), v)
		}
	}
	return fields, nil
}

// Fields is a lookup table over the projected fields of a select. It is
// passed to the callback forms of the chain methods to reference selected
// fields by key.
//
// In where and having conditions, an aliased expression resolves to the
// expression itself. In order by, group by and join conditions it resolves
// to its alias.
type Fields struct {
	fields []dialect.SelectedField
	prefix []string
	alias  bool
}

func newFields(fields []dialect.SelectedField, alias bool) Fields {
	return Fields{fields: fields, alias: alias}
}

// Get returns the field at the given key path. A missing field yields an
// expression that fails to compile.
func (f Fields) Get(path ...string) expr.Expr {
	full := append(slices.Clone(f.prefix), path...)
	for _, sf := range f.fields {
		if slices.Equal(sf.Path, full) {
			return f.resolve(sf)
		}
	}
	return expr.Fail(sqlq.NewConfigurationError("fields", "no selected field %q", strings.Join(full, ".")))
}

// Nested returns the fields under the given key path.
func (f Fields) Nested(path ...string) Fields {
	return Fields{fields: f.fields, prefix: append(slices.Clone(f.prefix), path...), alias: f.alias}
}

// Keys returns the keys directly under the current path, in projection order.
func (f Fields) Keys() []string {
	var keys []string
	for _, sf := range f.fields {
		if len(sf.Path) <= len(f.prefix) || !slices.Equal(sf.Path[:len(f.prefix)], f.prefix) {
			continue
		}
		if k := sf.Path[len(f.prefix)]; !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (f Fields) resolve(sf dialect.SelectedField) expr.Expr {
	a, ok := sf.Expr.(*expr.Aliased)
	switch {
	case !ok:
		return sf.Expr
	case f.alias:
		return expr.Ident(a.Alias)
	default:
		return a.Expr
	}
}
