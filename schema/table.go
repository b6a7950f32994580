package schema

import "fmt"

// Table is the resolved metadata of a table: its SQL name, an optional alias
// and an ordered, immutable list of columns.
type Table struct {
	name    string
	alias   string
	columns []*Column
	index   map[string]*Column
}

// NewTable returns a table with the given columns. The columns are copied and
// bound to the returned table, so the same constructors can be reused.
func NewTable(name string, columns ...*Column) *Table {
	t := &Table{
		name:    name,
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]*Column, len(columns)),
	}
	for _, c := range columns {
		cc := c.clone(t)
		t.columns = append(t.columns, cc)
		if _, ok := t.index[cc.Key]; !ok {
			t.index[cc.Key] = cc
		}
	}
	return t
}

// Alias returns a copy of t referenced by alias in queries. Columns of the
// returned table are qualified by the alias.
func Alias(t *Table, alias string) *Table {
	at := &Table{
		name:    t.name,
		alias:   alias,
		columns: make([]*Column, 0, len(t.columns)),
		index:   make(map[string]*Column, len(t.columns)),
	}
	for _, c := range t.columns {
		cc := c.clone(at)
		at.columns = append(at.columns, cc)
		if _, ok := at.index[cc.Key]; !ok {
			at.index[cc.Key] = cc
		}
	}
	return at
}

// Name returns the SQL name of the table.
func (t *Table) Name() string { return t.name }

// Alias returns the alias of the table, or an empty string.
func (t *Table) Alias() string { return t.alias }

// RefName returns the name used to reference the table in a query:
// the alias if set, otherwise the table name.
func (t *Table) RefName() string {
	if t.alias != "" {
		return t.alias
	}
	return t.name
}

// Columns returns the columns in declaration order.
func (t *Table) Columns() []*Column {
	return t.columns
}

// Lookup returns the column with the given field key.
func (t *Table) Lookup(key string) (*Column, bool) {
	c, ok := t.index[key]
	return c, ok
}

// C returns the column with the given field key. It panics if the key is
// unknown, as column references are resolved at declaration time.
func (t *Table) C(key string) *Column {
	c, ok := t.index[key]
	if !ok {
		panic(fmt.Sprintf("schema: table %q has no column with key %q", t.name, key))
	}
	return c
}

// PrimaryKey returns the primary-key columns in declaration order.
func (t *Table) PrimaryKey() []*Column {
	var pk []*Column
	for _, c := range t.columns {
		if c.Primary {
			pk = append(pk, c)
		}
	}
	return pk
}
