package schema

import (
	"github.com/go-openapi/inflect"
)

// Reference describes a foreign-key reference to another table's column.
type Reference struct {
	Table  string
	Column string
}

// Column is the resolved metadata of a table column.
//
// Columns are created with the typed constructors of this package and bound to a
// table by NewTable. A bound column must be treated as read-only.
type Column struct {
	// Name is the SQL name of the column.
	Name string
	// Key is the field key used in insert values, update sets and result rows.
	// Defaults to the lower camel-case form of Name.
	Key string
	// Type is the semantic type of the column.
	Type Type
	// Nullable reports if the column accepts NULL.
	Nullable bool
	// Primary reports if the column is part of the primary key.
	Primary bool
	// DefaultValue is used for insert rows that omit the column.
	DefaultValue any
	// HasDefault reports if DefaultValue was set (nil is a valid default).
	HasDefault bool
	// Ref is the optional foreign-key reference.
	Ref *Reference

	table *Table
}

func newColumn(name string, t Type) *Column {
	return &Column{
		Name:     name,
		Key:      fieldKey(name),
		Type:     t,
		Nullable: true,
	}
}

// fieldKey derives the default field key: "created_at" becomes "createdAt".
func fieldKey(name string) string {
	if name == "" {
		return ""
	}
	return inflect.CamelizeDownFirst(name)
}

// Integer returns a new integer column.
func Integer(name string) *Column { return newColumn(name, TypeInteger) }

// Real returns a new floating-point column.
func Real(name string) *Column { return newColumn(name, TypeReal) }

// Numeric returns a new arbitrary-precision column. Values are decoded as strings.
func Numeric(name string) *Column { return newColumn(name, TypeNumeric) }

// Text returns a new text column.
func Text(name string) *Column { return newColumn(name, TypeText) }

// Boolean returns a new native boolean column.
func Boolean(name string) *Column { return newColumn(name, TypeBoolean) }

// IntBoolean returns a new boolean column stored as integer 0 or 1.
func IntBoolean(name string) *Column { return newColumn(name, TypeIntBoolean) }

// Timestamp returns a new native timestamp column.
func Timestamp(name string) *Column { return newColumn(name, TypeTimestamp) }

// UnixTime returns a new timestamp column stored as integer seconds since the epoch.
func UnixTime(name string) *Column { return newColumn(name, TypeUnixTime) }

// UnixTimeMilli returns a new timestamp column stored as integer milliseconds since the epoch.
func UnixTimeMilli(name string) *Column { return newColumn(name, TypeUnixTimeMilli) }

// JSON returns a new column holding JSON text.
func JSON(name string) *Column { return newColumn(name, TypeJSON) }

// Blob returns a new binary column.
func Blob(name string) *Column { return newColumn(name, TypeBlob) }

// UUID returns a new UUID column.
func UUID(name string) *Column { return newColumn(name, TypeUUID) }

// WithKey overrides the field key of the column.
func (c *Column) WithKey(key string) *Column {
	c.Key = key
	return c
}

// NotNull marks the column as NOT NULL.
func (c *Column) NotNull() *Column {
	c.Nullable = false
	return c
}

// PrimaryKey marks the column as part of the primary key. It implies NotNull.
func (c *Column) PrimaryKey() *Column {
	c.Primary = true
	c.Nullable = false
	return c
}

// Default sets the value used when an insert row omits the column.
func (c *Column) Default(v any) *Column {
	c.DefaultValue = v
	c.HasDefault = true
	return c
}

// References sets a foreign-key reference.
func (c *Column) References(table, column string) *Column {
	c.Ref = &Reference{Table: table, Column: column}
	return c
}

// Table returns the table the column is bound to, or nil.
func (c *Column) Table() *Table {
	return c.table
}

// TableName returns the reference name (alias or name) of the owning table.
func (c *Column) TableName() string {
	if c.table == nil {
		return ""
	}
	return c.table.RefName()
}

func (c *Column) clone(t *Table) *Column {
	cc := *c
	if c.Ref != nil {
		ref := *c.Ref
		cc.Ref = &ref
	}
	cc.table = t
	return &cc
}
