package expr

import (
	"fmt"
	"strings"

	"github.com/syssam/sqlq/schema"
)

// Kind discriminates the chunks of a fragment.
type Kind uint8

// Chunk kinds.
const (
	// KindText is trusted SQL text, emitted verbatim.
	KindText Kind = iota
	// KindIdent is an identifier, quoted by the dialect.
	KindIdent
	// KindParam is a bound parameter value.
	KindParam
	// KindPlaceholder is a named value supplied at execution time.
	KindPlaceholder
	// KindColumn is a column reference, qualified by its table reference name.
	KindColumn
	// KindTable is a table reference, rendered with its alias when aliased.
	KindTable
	// KindFragment is a nested fragment.
	KindFragment
)

var kindNames = [...]string{
	KindText:        "text",
	KindIdent:       "ident",
	KindParam:       "param",
	KindPlaceholder: "placeholder",
	KindColumn:      "column",
	KindTable:       "table",
	KindFragment:    "fragment",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Chunk is one element of a fragment. Only the field matching Kind is set.
type Chunk struct {
	Kind        Kind
	Text        string // KindText and KindIdent
	Param       Param
	Placeholder Placeholder
	Column      *schema.Column
	Table       *schema.Table
	Fragment    *Fragment
}

// Expr is implemented by everything that can be rendered as SQL.
type Expr interface {
	Fragment() *Fragment
}

// Decoder converts a raw driver value selected by an expression into its Go value.
type Decoder func(raw any) (any, error)

// Fragment is an immutable, ordered sequence of SQL chunks. Fragments compose:
// a fragment may be nested inside another one; its chunks and parameters keep
// their relative order.
type Fragment struct {
	chunks  []Chunk
	decoder Decoder
	err     error
}

// Fragment implements the Expr interface.
func (f *Fragment) Fragment() *Fragment { return f }

// Chunks returns the chunks of the fragment. The returned slice must not be modified.
func (f *Fragment) Chunks() []Chunk { return f.chunks }

// Decoder returns the result decoder attached with MapWith, or nil.
func (f *Fragment) Decoder() Decoder { return f.decoder }

// Err returns the error recorded while the fragment was built, if any.
// Nested fragment errors are reported as well.
func (f *Fragment) Err() error {
	if f == nil {
		return nil
	}
	if f.err != nil {
		return f.err
	}
	for _, c := range f.chunks {
		if c.Kind == KindFragment {
			if err := c.Fragment.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsEmpty reports if the fragment renders to nothing.
func (f *Fragment) IsEmpty() bool {
	if f == nil {
		return true
	}
	for _, c := range f.chunks {
		switch {
		case c.Kind == KindText && c.Text == "":
		case c.Kind == KindFragment && c.Fragment.IsEmpty():
		default:
			return false
		}
	}
	return true
}

// Present reports whether the clause operand e renders anything. Nil
// expressions, nil fragments and empty fragments are absent. Operands
// carrying an error are present so that compiling reports it.
func Present(e Expr) bool {
	if e == nil {
		return false
	}
	if f, ok := e.(*Fragment); ok && f == nil {
		return false
	}
	f := e.Fragment()
	return f.Err() != nil || !f.IsEmpty()
}

// MapWith returns a copy of the fragment whose selected values are decoded with d.
func (f *Fragment) MapWith(d Decoder) *Fragment {
	return &Fragment{chunks: f.chunks, decoder: d, err: f.err}
}

// Append returns a new fragment with the given expressions appended.
func (f *Fragment) Append(parts ...Expr) *Fragment {
	chunks := make([]Chunk, 0, len(f.chunks)+len(parts))
	chunks = append(chunks, f.chunks...)
	for _, p := range parts {
		if p == nil {
			continue
		}
		chunks = append(chunks, nested(p))
	}
	return &Fragment{chunks: chunks, decoder: f.decoder, err: f.err}
}

// String returns a debug representation that is not valid SQL.
func (f *Fragment) String() string {
	var b strings.Builder
	for _, c := range f.chunks {
		switch c.Kind {
		case KindText:
			b.WriteString(c.Text)
		case KindIdent:
			fmt.Fprintf(&b, "%q", c.Text)
		case KindParam:
			fmt.Fprintf(&b, "$(%v)", c.Param.Value)
		case KindPlaceholder:
			fmt.Fprintf(&b, ":%s", c.Placeholder.Name)
		case KindColumn:
			fmt.Fprintf(&b, "%q.%q", c.Column.TableName(), c.Column.Name)
		case KindTable:
			fmt.Fprintf(&b, "%q", c.Table.RefName())
		case KindFragment:
			b.WriteString(c.Fragment.String())
		}
	}
	return b.String()
}

// Param is a bound value. When Column is set, the value is encoded with
// the column's codec at compile time.
type Param struct {
	Value  any
	Column *schema.Column
}

// Fragment implements the Expr interface.
func (p Param) Fragment() *Fragment {
	return &Fragment{chunks: []Chunk{{Kind: KindParam, Param: p}}}
}

// Placeholder is a named value filled in when a prepared query is executed.
// When Column is set, the supplied value is encoded with the column's codec.
type Placeholder struct {
	Name   string
	Column *schema.Column
}

// Fragment implements the Expr interface.
func (p Placeholder) Fragment() *Fragment {
	return &Fragment{chunks: []Chunk{{Kind: KindPlaceholder, Placeholder: p}}}
}

// P returns a named placeholder.
func P(name string) Placeholder {
	return Placeholder{Name: name}
}

// Aliased is an expression selected under an alias: `<expr> as "alias"`.
type Aliased struct {
	Expr  Expr
	Alias string
}

// As returns e aliased as alias.
func As(e Expr, alias string) *Aliased {
	return &Aliased{Expr: e, Alias: alias}
}

// Fragment returns the underlying expression. The alias is only rendered
// by projections.
func (a *Aliased) Fragment() *Fragment { return a.Expr.Fragment() }

// Raw returns a fragment of trusted SQL text. The text is never escaped.
func Raw(text string) *Fragment {
	return &Fragment{chunks: []Chunk{{Kind: KindText, Text: text}}}
}

// Ident returns an identifier fragment, quoted by the dialect.
func Ident(name string) *Fragment {
	return &Fragment{chunks: []Chunk{{Kind: KindIdent, Text: name}}}
}

// Col returns a qualified column reference.
func Col(c *schema.Column) *Fragment {
	return &Fragment{chunks: []Chunk{{Kind: KindColumn, Column: c}}}
}

// Tbl returns a table reference.
func Tbl(t *schema.Table) *Fragment {
	return &Fragment{chunks: []Chunk{{Kind: KindTable, Table: t}}}
}

// Value returns an untyped bound parameter.
func Value(v any) Param {
	return Param{Value: v}
}

// Bind returns a parameter encoded with the codec of c.
func Bind(v any, c *schema.Column) Param {
	return Param{Value: v, Column: c}
}

// Empty returns an empty fragment.
func Empty() *Fragment {
	return &Fragment{}
}

// Null returns the NULL literal.
func Null() *Fragment { return Raw("null") }

// Default returns the DEFAULT keyword.
func Default() *Fragment { return Raw("default") }

// Fail returns a fragment carrying err. Compiling it reports err.
func Fail(err error) *Fragment {
	return &Fragment{err: err}
}

// Join joins the expressions with sep. Nil expressions, including nil
// fragments, are skipped.
func Join(exprs []Expr, sep Expr) *Fragment {
	f := &Fragment{chunks: make([]Chunk, 0, 2*len(exprs))}
	first := true
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if ef, ok := e.(*Fragment); ok && ef == nil {
			continue
		}
		if !first && sep != nil {
			f.chunks = append(f.chunks, nested(sep))
		}
		first = false
		f.chunks = append(f.chunks, nested(e))
	}
	return f
}

// Concat concatenates the expressions without separator.
func Concat(exprs ...Expr) *Fragment {
	return Join(exprs, nil)
}

// SQL builds a fragment from a template. Each `?` in format consumes one
// argument; `??` emits a literal question mark. Arguments are converted with
// the following rules:
//
//   - an Expr is nested as is
//   - a *schema.Column becomes a column reference
//   - a *schema.Table becomes a table reference
//   - any other value becomes a bound parameter
//
// SQL panics if the number of markers and arguments differ.
func SQL(format string, args ...any) *Fragment {
	f := &Fragment{}
	var (
		text strings.Builder
		n    int
	)
	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '?' {
			text.WriteByte(ch)
			continue
		}
		if i+1 < len(format) && format[i+1] == '?' {
			text.WriteByte('?')
			i++
			continue
		}
		if n >= len(args) {
			panic(fmt.Sprintf("expr: missing argument %d for template %q", n+1, format))
		}
		if text.Len() > 0 {
			f.chunks = append(f.chunks, Chunk{Kind: KindText, Text: text.String()})
			text.Reset()
		}
		f.chunks = append(f.chunks, nested(From(args[n])))
		n++
	}
	if n != len(args) {
		panic(fmt.Sprintf("expr: %d arguments for %d markers in template %q", len(args), n, format))
	}
	if text.Len() > 0 {
		f.chunks = append(f.chunks, Chunk{Kind: KindText, Text: text.String()})
	}
	return f
}

// From converts v into an expression following the argument rules of SQL.
func From(v any) Expr {
	switch v := v.(type) {
	case Expr:
		return v
	case *schema.Column:
		return Col(v)
	case *schema.Table:
		return Tbl(v)
	default:
		return Value(v)
	}
}

// ColumnOf returns the column referenced by e when e is a plain column
// reference, possibly nested in single-chunk fragments.
func ColumnOf(e Expr) (*schema.Column, bool) {
	if e == nil {
		return nil, false
	}
	if a, ok := e.(*Aliased); ok {
		e = a.Expr
	}
	f := e.Fragment()
	for f != nil && len(f.chunks) == 1 {
		c := f.chunks[0]
		switch c.Kind {
		case KindColumn:
			return c.Column, true
		case KindFragment:
			f = c.Fragment
		default:
			return nil, false
		}
	}
	return nil, false
}

// Unqualify returns a copy of e in which column references render as bare
// column names. Decoders are kept.
func Unqualify(e Expr) *Fragment {
	if e == nil {
		return nil
	}
	f := e.Fragment()
	if f == nil {
		return nil
	}
	out := &Fragment{chunks: make([]Chunk, len(f.chunks)), decoder: f.decoder, err: f.err}
	for i, c := range f.chunks {
		switch c.Kind {
		case KindColumn:
			out.chunks[i] = Chunk{Kind: KindIdent, Text: c.Column.Name}
		case KindFragment:
			out.chunks[i] = Chunk{Kind: KindFragment, Fragment: Unqualify(c.Fragment)}
		default:
			out.chunks[i] = c
		}
	}
	return out
}

func nested(e Expr) Chunk {
	switch e := e.(type) {
	case Param:
		return Chunk{Kind: KindParam, Param: e}
	case Placeholder:
		return Chunk{Kind: KindPlaceholder, Placeholder: e}
	}
	return Chunk{Kind: KindFragment, Fragment: e.Fragment()}
}
