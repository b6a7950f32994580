package expr

import (
	"fmt"
	"strconv"
)

// Count returns `count(e)`, or `count(*)` without argument. The result is decoded as int64.
func Count(e ...Expr) *Fragment {
	if len(e) == 0 || e[0] == nil {
		return Raw("count(*)").MapWith(decodeInt)
	}
	return SQL("count(?)", e[0]).MapWith(decodeInt)
}

// CountDistinct returns `count(distinct e)` decoded as int64.
func CountDistinct(e Expr) *Fragment {
	return SQL("count(distinct ?)", e).MapWith(decodeInt)
}

// Sum returns `sum(e)`. The result is returned as the driver reports it.
func Sum(e Expr) *Fragment { return SQL("sum(?)", e) }

// Avg returns `avg(e)`.
func Avg(e Expr) *Fragment { return SQL("avg(?)", e) }

// Max returns `max(e)`. A column argument keeps its column decoding.
func Max(e any) *Fragment { return aggregate("max", e) }

// Min returns `min(e)`. A column argument keeps its column decoding.
func Min(e any) *Fragment { return aggregate("min", e) }

// Lower returns `lower(e)`.
func Lower(e any) *Fragment { return SQL("lower(?)", From(e)) }

// Upper returns `upper(e)`.
func Upper(e any) *Fragment { return SQL("upper(?)", From(e)) }

// Coalesce returns `coalesce(e1, e2, ...)`.
func Coalesce(exprs ...any) *Fragment {
	items := make([]Expr, len(exprs))
	for i, e := range exprs {
		items[i] = From(e)
	}
	return SQL("coalesce(?)", Join(items, Raw(", ")))
}

func aggregate(name string, e any) *Fragment {
	ex := From(e)
	f := SQL(name+"(?)", ex)
	if c, ok := ColumnOf(ex); ok {
		return f.MapWith(c.Decode)
	}
	return f
}

func decodeInt(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return nil, fmt.Errorf("expr: unexpected count value %T", raw)
}
