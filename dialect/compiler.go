package dialect

import (
	"strconv"
	"strings"

	"github.com/syssam/sqlq"
	"github.com/syssam/sqlq/expr"
	"github.com/syssam/sqlq/schema"
)

// Query is a compiled statement: the SQL text, the ordered parameter list and
// the semantic type of each parameter (TypeInvalid when untyped).
//
// Parameters that were named placeholders are kept as expr.Placeholder values
// until they are bound at execution time.
type Query struct {
	SQL     string
	Params  []any
	Typings []schema.Type
}

// Placeholders returns the names of the placeholders referenced by the query, in order.
func (q Query) Placeholders() []string {
	var names []string
	for _, p := range q.Params {
		if ph, ok := p.(expr.Placeholder); ok {
			names = append(names, ph.Name)
		}
	}
	return names
}

// Dialect is the SQL compiler of one database dialect. It is stateless and
// safe for concurrent use.
type Dialect struct {
	name     string
	quote    byte
	numbered bool
}

var dialects = map[string]*Dialect{
	Postgres: {name: Postgres, quote: '"', numbered: true},
	SQLite:   {name: SQLite, quote: '"'},
	MySQL:    {name: MySQL, quote: '`'},
}

// Lookup returns the compiler of the named dialect.
func Lookup(name string) (*Dialect, error) {
	for _, n := range []string{MySQL, SQLite, Postgres} {
		// Accept driver names like "sqlite3" or "postgresql".
		if strings.HasPrefix(name, n) {
			return dialects[n], nil
		}
	}
	return nil, sqlq.NewConfigurationError("dialect", "unknown dialect %q", name)
}

// MustLookup is like Lookup but panics on unknown dialects.
func MustLookup(name string) *Dialect {
	d, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the dialect name.
func (d *Dialect) Name() string { return d.name }

// EscapeName quotes an identifier. Embedded quote characters are doubled.
func (d *Dialect) EscapeName(name string) string {
	q := string(d.quote)
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// EscapeString quotes a string literal. Embedded single quotes are doubled.
func (d *Dialect) EscapeString(s string) string {
	if d.name == MySQL {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Placeholder returns the parameter marker for the i-th (1-based) parameter.
func (d *Dialect) Placeholder(i int) string {
	if d.numbered {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

// Compile lowers e into SQL text and an ordered parameter list. Compile is
// deterministic: the same fragment always yields the same Query.
func (d *Dialect) Compile(e expr.Expr) (Query, error) {
	if e == nil {
		return Query{}, sqlq.NewConfigurationError("compile", "nil expression")
	}
	f := e.Fragment()
	if err := f.Err(); err != nil {
		return Query{}, err
	}
	c := &compiler{dialect: d}
	if err := c.fragment(f); err != nil {
		return Query{}, err
	}
	return Query{SQL: c.b.String(), Params: c.params, Typings: c.typings}, nil
}

type compiler struct {
	dialect *Dialect
	b       strings.Builder
	params  []any
	typings []schema.Type
}

func (c *compiler) fragment(f *expr.Fragment) error {
	if f == nil {
		return nil
	}
	for _, ch := range f.Chunks() {
		switch ch.Kind {
		case expr.KindText:
			c.b.WriteString(ch.Text)
		case expr.KindIdent:
			c.b.WriteString(c.dialect.EscapeName(ch.Text))
		case expr.KindColumn:
			if t := ch.Column.TableName(); t != "" {
				c.b.WriteString(c.dialect.EscapeName(t))
				c.b.WriteByte('.')
			}
			c.b.WriteString(c.dialect.EscapeName(ch.Column.Name))
		case expr.KindTable:
			c.b.WriteString(c.dialect.EscapeName(ch.Table.Name()))
			if a := ch.Table.Alias(); a != "" && a != ch.Table.Name() {
				c.b.WriteByte(' ')
				c.b.WriteString(c.dialect.EscapeName(a))
			}
		case expr.KindParam:
			v := ch.Param.Value
			typ := schema.TypeInvalid
			if col := ch.Param.Column; col != nil {
				var err error
				if v, err = col.Encode(v); err != nil {
					return err
				}
				typ = col.Type
			}
			c.param(v, typ)
		case expr.KindPlaceholder:
			typ := schema.TypeInvalid
			if col := ch.Placeholder.Column; col != nil {
				typ = col.Type
			}
			c.param(ch.Placeholder, typ)
		case expr.KindFragment:
			if err := c.fragment(ch.Fragment); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *compiler) param(v any, typ schema.Type) {
	c.params = append(c.params, v)
	c.typings = append(c.typings, typ)
	c.b.WriteString(c.dialect.Placeholder(len(c.params)))
}
