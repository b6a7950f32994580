package session

import (
	"fmt"
	"strings"

	"github.com/syssam/sqlq"
	"github.com/syssam/sqlq/dialect"
)

// Row is a decoded result row. Joined selects nest the fields of each table
// alias under its own Row; a nil value stands for an alias with no matching row.
type Row map[string]any

// MapRow decodes raw, aligned 1:1 with fields, into a Row following the
// field paths.
//
// A group of fields under one alias (paths of length 2) decodes to nil as a
// whole when all of its column values are NULL, all of them come from the same
// table and nullability marks that table as nullable.
func MapRow(fields []dialect.SelectedField, raw []any, nullability dialect.Nullability) (Row, error) {
	if len(raw) != len(fields) {
		return nil, fmt.Errorf("sqlq: row has %d values for %d fields", len(raw), len(fields))
	}
	var (
		row = make(Row, len(fields))
		// nullify maps a group name to the table of its columns while every
		// value seen so far is NULL.
		nullify = make(map[string]string)
		seen    = make(map[string]bool)
	)
	for i, f := range fields {
		if len(f.Path) == 0 {
			return nil, sqlq.NewConfigurationError("select", "field %d has an empty path", i)
		}
		v, err := f.Decode(raw[i])
		if err != nil {
			return nil, decodingError(f, raw[i], err)
		}
		node := row
		for _, key := range f.Path[:len(f.Path)-1] {
			next, ok := node[key].(Row)
			if !ok {
				next = make(Row)
				node[key] = next
			}
			node = next
		}
		node[f.Path[len(f.Path)-1]] = v

		if len(f.Path) != 2 || f.Source == "" {
			continue
		}
		group := f.Path[0]
		switch {
		case !seen[group]:
			seen[group] = true
			if v == nil {
				nullify[group] = f.Source
			}
		case v != nil:
			delete(nullify, group)
		case nullify[group] != f.Source:
			delete(nullify, group)
		}
	}
	for group, table := range nullify {
		if nullability.Nullable(table) {
			row[group] = nil
		}
	}
	return row, nil
}

func decodingError(f dialect.SelectedField, raw any, err error) error {
	if sqlq.IsDecodingError(err) {
		return err
	}
	return sqlq.NewDecodingError(f.Source, strings.Join(f.Path, "."), raw, err)
}
