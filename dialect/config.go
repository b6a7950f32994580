package dialect

import (
	"github.com/syssam/sqlq"
	"github.com/syssam/sqlq/expr"
	"github.com/syssam/sqlq/schema"
)

// SelectedField is one entry of an ordered projection.
type SelectedField struct {
	// Path is the key path of the value in a result row. Flat projections use
	// paths of length 1; joined projections group fields by table alias.
	Path []string
	// Expr renders the field. Column fields hold a column reference and
	// computed fields may be *expr.Aliased.
	Expr expr.Expr
	// Column is the column of a plain column field, used for decoding.
	Column *schema.Column
	// Source is the reference name of the table or subquery the field is read
	// from, used for join nullability. Empty for computed fields.
	Source string
}

// Decode converts a raw driver value of the field into its Go value.
func (f SelectedField) Decode(raw any) (any, error) {
	if f.Expr != nil {
		if fr := f.Expr.Fragment(); fr != nil && fr.Decoder() != nil {
			return fr.Decoder()(raw)
		}
	}
	if f.Column != nil {
		return f.Column.Decode(raw)
	}
	return raw, nil
}

// ColumnField returns the selected field of a table column.
func ColumnField(c *schema.Column, path ...string) SelectedField {
	if len(path) == 0 {
		path = []string{c.Key}
	}
	return SelectedField{Path: path, Expr: expr.Col(c), Column: c, Source: c.TableName()}
}

// TableFields returns the fields of every column of t, with paths prefixed by prefix.
func TableFields(t *schema.Table, prefix ...string) []SelectedField {
	fields := make([]SelectedField, 0, len(t.Columns()))
	for _, c := range t.Columns() {
		path := make([]string, 0, len(prefix)+1)
		path = append(append(path, prefix...), c.Key)
		fields = append(fields, ColumnField(c, path...))
	}
	return fields
}

// Source is the relation of a FROM or JOIN clause: a table or a subquery.
type Source struct {
	Table    *schema.Table
	Subquery *Subquery
}

// TableSource returns a table source.
func TableSource(t *schema.Table) Source { return Source{Table: t} }

// SubquerySource returns a subquery source.
func SubquerySource(sq *Subquery) Source { return Source{Subquery: sq} }

// IsZero reports if no relation is set.
func (s Source) IsZero() bool { return s.Table == nil && s.Subquery == nil }

// Name returns the reference name of the source.
func (s Source) Name() string {
	switch {
	case s.Table != nil:
		return s.Table.RefName()
	case s.Subquery != nil:
		return s.Subquery.Alias
	}
	return ""
}

// Fields returns the full projection of the source.
func (s Source) Fields(prefix ...string) []SelectedField {
	switch {
	case s.Table != nil:
		return TableFields(s.Table, prefix...)
	case s.Subquery != nil:
		return s.Subquery.SelectedFields(prefix...)
	}
	return nil
}

// Subquery is a compiled-later select used as a relation under an alias.
type Subquery struct {
	// Query is the unparenthesized select statement.
	Query *expr.Fragment
	// Fields is the projection of the inner select.
	Fields []SelectedField
	// Alias is the name the subquery is referenced by.
	Alias string
}

// Fragment renders the parenthesized subquery.
func (s *Subquery) Fragment() *expr.Fragment {
	return expr.SQL("(?)", s.Query)
}

// Unwrapped returns the subquery without parentheses.
func (s *Subquery) Unwrapped() *expr.Fragment {
	return s.Query
}

// Field returns a reference to the selected field of the subquery with the
// given key. Nested keys are joined by path.
func (s *Subquery) Field(path ...string) expr.Expr {
	for _, f := range s.SelectedFields() {
		if samePath(f.Path, path) {
			return f.Expr
		}
	}
	return expr.Fail(sqlq.NewConfigurationError("subquery", "subquery %q has no field %v", s.Alias, path))
}

// SelectedFields returns the projection of the inner select as seen from
// outside: each field is referenced by its result column name, qualified by
// the subquery alias, and keeps the decoding of the inner field.
func (s *Subquery) SelectedFields(prefix ...string) []SelectedField {
	fields := make([]SelectedField, 0, len(s.Fields))
	for _, f := range s.Fields {
		path := make([]string, 0, len(prefix)+len(f.Path))
		path = append(append(path, prefix...), f.Path...)
		name, ok := resultName(f)
		if !ok {
			fields = append(fields, SelectedField{
				Path: path,
				Expr: expr.Fail(sqlq.NewConfigurationError("subquery",
					"field %v of subquery %q must be a column or have an alias", f.Path, s.Alias)),
				Source: s.Alias,
			})
			continue
		}
		ref := expr.SQL("?.?", expr.Ident(s.Alias), expr.Ident(name))
		if d := decoderOf(f); d != nil {
			ref = ref.MapWith(d)
		}
		fields = append(fields, SelectedField{Path: path, Expr: ref, Source: s.Alias})
	}
	return fields
}

func resultName(f SelectedField) (string, bool) {
	if a, ok := f.Expr.(*expr.Aliased); ok {
		return a.Alias, true
	}
	if f.Column != nil {
		return f.Column.Name, true
	}
	if c, ok := expr.ColumnOf(f.Expr); ok {
		return c.Name, true
	}
	return "", false
}

func decoderOf(f SelectedField) expr.Decoder {
	if f.Expr != nil {
		if fr := f.Expr.Fragment(); fr != nil && fr.Decoder() != nil {
			return fr.Decoder()
		}
	}
	if f.Column != nil {
		return f.Column.Decode
	}
	if c, ok := expr.ColumnOf(f.Expr); ok {
		return c.Decode
	}
	return nil
}

func samePath(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// JoinType is the kind of a join.
type JoinType string

// Join types.
const (
	JoinLeft  JoinType = "left"
	JoinRight JoinType = "right"
	JoinInner JoinType = "inner"
	JoinFull  JoinType = "full"
)

// Join is one join clause of a select.
type Join struct {
	Type   JoinType
	Source Source
	On     expr.Expr
}

// Nullability maps a table alias to whether its fields are guaranteed
// non-null in the result.
type Nullability map[string]bool

// NewNullability returns the map of a select over the base source only.
func NewNullability(base string) Nullability {
	return Nullability{base: true}
}

// Apply updates the map for a new join of alias.
//
//	left:  alias becomes nullable
//	right: every previous alias becomes nullable, alias is non-null
//	inner: alias is non-null
//	full:  every alias becomes nullable
func (n Nullability) Apply(alias string, t JoinType) {
	switch t {
	case JoinLeft:
		n[alias] = false
	case JoinRight:
		for k := range n {
			n[k] = false
		}
		n[alias] = true
	case JoinInner:
		n[alias] = true
	case JoinFull:
		for k := range n {
			n[k] = false
		}
		n[alias] = false
	}
}

// Nullable reports if fields of alias may be NULL because of an outer join.
// Unknown aliases are not nullable.
func (n Nullability) Nullable(alias string) bool {
	notNull, ok := n[alias]
	return ok && !notNull
}

// Clone returns a copy of the map.
func (n Nullability) Clone() Nullability {
	c := make(Nullability, len(n))
	for k, v := range n {
		c[k] = v
	}
	return c
}

// LockStrength is the strength of a row-locking clause.
type LockStrength string

// Lock strengths.
const (
	LockUpdate      LockStrength = "update"
	LockNoKeyUpdate LockStrength = "no key update"
	LockShare       LockStrength = "share"
	LockKeyShare    LockStrength = "key share"
)

// Lock is a row-locking clause: `for <strength> [of <tables>] [nowait | skip locked]`.
type Lock struct {
	Strength   LockStrength
	Of         []*schema.Table
	NoWait     bool
	SkipLocked bool
}

// SelectConfig is the accumulated configuration of a select.
type SelectConfig struct {
	With     []*Subquery
	Distinct bool
	Fields   []SelectedField
	Source   Source
	Joins    []Join
	Where    expr.Expr
	Having   expr.Expr
	GroupBy  []expr.Expr
	OrderBy  []expr.Expr
	Limit    *int
	Offset   *int
	Lock     *Lock
}

// InsertConfig is the accumulated configuration of an insert.
type InsertConfig struct {
	Table *schema.Table
	// Values holds one map per row, keyed by column field key. A value may
	// be an expr.Expr, which is inlined.
	Values     []map[string]any
	OnConflict *expr.Fragment
	Returning  []SelectedField
}

// UpdateConfig is the accumulated configuration of an update.
type UpdateConfig struct {
	Table *schema.Table
	// Set is keyed by column field key.
	Set       map[string]any
	Where     expr.Expr
	Returning []SelectedField
}

// DeleteConfig is the accumulated configuration of a delete.
type DeleteConfig struct {
	Table     *schema.Table
	Where     expr.Expr
	Returning []SelectedField
}
