package session

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Scan decodes a row into a value of type T. Struct fields are matched by
// their `db` tag, or case-insensitively by name. Nested groups of joined
// selects decode into nested structs or pointers to structs.
func Scan[T any](row Row) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "db",
		Result:  &out,
		Squash:  true,
	})
	if err != nil {
		return out, fmt.Errorf("sqlq: scan: %w", err)
	}
	if err := dec.Decode(map[string]any(row)); err != nil {
		return out, fmt.Errorf("sqlq: scan: %w", err)
	}
	return out, nil
}

// ScanAll decodes every row into a value of type T.
func ScanAll[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		v, err := Scan[T](row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
