package expr

import "github.com/syssam/sqlq/schema"

// bind converts the right operand of a comparison. Plain values and untyped
// placeholders take the typing of the left operand when it is a column.
func bind(v any, left Expr) Expr {
	col, typed := ColumnOf(left)
	switch v := v.(type) {
	case Placeholder:
		if v.Column == nil && typed {
			v.Column = col
		}
		return v
	case Param:
		if v.Column == nil && typed {
			v.Column = col
		}
		return v
	case Expr:
		return v
	case *schema.Column:
		return Col(v)
	case *schema.Table:
		return Tbl(v)
	}
	if typed {
		return Bind(v, col)
	}
	return Value(v)
}

func compare(left any, op string, right any) *Fragment {
	l := From(left)
	return SQL("? "+op+" ?", l, bind(right, l))
}

// EQ returns `left = right`.
func EQ(left, right any) *Fragment { return compare(left, "=", right) }

// NEQ returns `left <> right`.
func NEQ(left, right any) *Fragment { return compare(left, "<>", right) }

// GT returns `left > right`.
func GT(left, right any) *Fragment { return compare(left, ">", right) }

// GTE returns `left >= right`.
func GTE(left, right any) *Fragment { return compare(left, ">=", right) }

// LT returns `left < right`.
func LT(left, right any) *Fragment { return compare(left, "<", right) }

// LTE returns `left <= right`.
func LTE(left, right any) *Fragment { return compare(left, "<=", right) }

// Like returns `left like pattern`.
func Like(left any, pattern any) *Fragment {
	return SQL("? like ?", From(left), From(pattern))
}

// NotLike returns `left not like pattern`.
func NotLike(left any, pattern any) *Fragment {
	return SQL("? not like ?", From(left), From(pattern))
}

// ILike returns `left ilike pattern`. PostgreSQL only.
func ILike(left any, pattern any) *Fragment {
	return SQL("? ilike ?", From(left), From(pattern))
}

// Contains returns `left like '%s%'`.
func Contains(left any, s string) *Fragment {
	return Like(left, "%"+s+"%")
}

// HasPrefix returns `left like 's%'`.
func HasPrefix(left any, s string) *Fragment {
	return Like(left, s+"%")
}

// HasSuffix returns `left like '%s'`.
func HasSuffix(left any, s string) *Fragment {
	return Like(left, "%"+s)
}

// In returns `left in (v1, v2, ...)`. A single Expr argument is treated as a
// subquery. An empty list renders `false`.
func In(left any, values ...any) *Fragment {
	return inList(left, "in", "false", values)
}

// NotIn returns `left not in (v1, v2, ...)`. An empty list renders `true`.
func NotIn(left any, values ...any) *Fragment {
	return inList(left, "not in", "true", values)
}

func inList(left any, op, empty string, values []any) *Fragment {
	if len(values) == 0 {
		return Raw(empty)
	}
	l := From(left)
	if len(values) == 1 {
		if e, ok := values[0].(Expr); ok {
			if _, isParam := e.(Param); !isParam {
				if _, isPh := e.(Placeholder); !isPh {
					return SQL("? "+op+" (?)", l, unwrapParens(e))
				}
			}
		}
	}
	items := make([]Expr, len(values))
	for i, v := range values {
		items[i] = bind(v, l)
	}
	return SQL("? "+op+" (?)", l, Join(items, Raw(", ")))
}

// IsNull returns `e is null`.
func IsNull(e any) *Fragment { return SQL("? is null", From(e)) }

// NotNull returns `e is not null`.
func NotNull(e any) *Fragment { return SQL("? is not null", From(e)) }

// Between returns `e between min and max`.
func Between(e, min, max any) *Fragment {
	l := From(e)
	return SQL("? between ? and ?", l, bind(min, l), bind(max, l))
}

// NotBetween returns `e not between min and max`.
func NotBetween(e, min, max any) *Fragment {
	l := From(e)
	return SQL("? not between ? and ?", l, bind(min, l), bind(max, l))
}

// Exists returns `exists (subquery)`.
func Exists(subquery Expr) *Fragment { return SQL("exists (?)", unwrapParens(subquery)) }

// NotExists returns `not exists (subquery)`.
func NotExists(subquery Expr) *Fragment { return SQL("not exists (?)", unwrapParens(subquery)) }

// And joins the conditions with `and`. Nil conditions are skipped; a single
// condition is returned as is and no condition returns nil.
func And(conds ...Expr) *Fragment { return logical("and", conds) }

// Or joins the conditions with `or`. Nil conditions are skipped; a single
// condition is returned as is and no condition returns nil.
func Or(conds ...Expr) *Fragment { return logical("or", conds) }

func logical(op string, conds []Expr) *Fragment {
	var kept []Expr
	for _, c := range conds {
		if c == nil {
			continue
		}
		if f, ok := c.(*Fragment); ok && f == nil {
			continue
		}
		kept = append(kept, c)
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0].Fragment()
	}
	return SQL("(?)", Join(kept, Raw(" "+op+" ")))
}

// Not returns `not cond`.
func Not(cond Expr) *Fragment { return SQL("not ?", cond) }

// Asc returns `e asc`.
func Asc(e any) *Fragment { return SQL("? asc", From(e)) }

// Desc returns `e desc`.
func Desc(e any) *Fragment { return SQL("? desc", From(e)) }

// unwrapParens drops the parentheses a subquery adds around itself, so that
// operators that parenthesize their operand do not double them.
func unwrapParens(e Expr) Expr {
	if s, ok := e.(interface{ Unwrapped() *Fragment }); ok {
		return s.Unwrapped()
	}
	return e
}
