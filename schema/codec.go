package schema

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/sqlq"
)

// timeLayouts are tried in order when a timestamp arrives as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Encode converts a Go value into the value sent to the driver for this column.
// nil is passed through as NULL.
func (c *Column) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c.Type {
	case TypeJSON:
		switch v := v.(type) {
		case json.RawMessage:
			return string(v), nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("sqlq: encoding column %q as json: %w", c.qualifiedName(), err)
		}
		return string(b), nil
	case TypeIntBoolean:
		if b, ok := v.(bool); ok {
			if b {
				return int64(1), nil
			}
			return int64(0), nil
		}
	case TypeUnixTime:
		if t, ok := v.(time.Time); ok {
			return t.Unix(), nil
		}
	case TypeUnixTimeMilli:
		if t, ok := v.(time.Time); ok {
			return t.UnixMilli(), nil
		}
	case TypeUUID:
		switch v := v.(type) {
		case uuid.UUID:
			return v.String(), nil
		case [16]byte:
			return uuid.UUID(v).String(), nil
		}
	case TypeBlob:
		if s, ok := v.(string); ok {
			return []byte(s), nil
		}
	}
	return v, nil
}

// Decode converts a raw driver value into the Go value of this column's type.
// It returns a *sqlq.DecodingError naming the column when the conversion fails.
func (c *Column) Decode(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if v, ok := raw.(driver.Valuer); ok {
		dv, err := v.Value()
		if err != nil {
			return nil, c.decodeError(raw, err)
		}
		if dv == nil {
			return nil, nil
		}
		raw = dv
	}
	v, err := c.decode(raw)
	if err != nil {
		return nil, c.decodeError(raw, err)
	}
	return v, nil
}

func (c *Column) decode(raw any) (any, error) {
	switch c.Type {
	case TypeInteger:
		return toInt64(raw)
	case TypeReal:
		return toFloat64(raw)
	case TypeNumeric:
		switch v := raw.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		}
	case TypeText:
		switch v := raw.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
	case TypeBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		case string:
			return strconv.ParseBool(v)
		case []byte:
			return strconv.ParseBool(string(v))
		}
	case TypeIntBoolean:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
		n, err := toInt64(raw)
		if err != nil {
			return nil, err
		}
		return n != 0, nil
	case TypeTimestamp:
		switch v := raw.(type) {
		case time.Time:
			return v, nil
		case string:
			return parseTime(v)
		case []byte:
			return parseTime(string(v))
		case int64:
			return time.Unix(v, 0).UTC(), nil
		}
	case TypeUnixTime:
		n, err := toInt64(raw)
		if err != nil {
			return nil, err
		}
		return time.Unix(n, 0).UTC(), nil
	case TypeUnixTimeMilli:
		n, err := toInt64(raw)
		if err != nil {
			return nil, err
		}
		return time.UnixMilli(n).UTC(), nil
	case TypeJSON:
		var data []byte
		switch v := raw.(type) {
		case string:
			data = []byte(v)
		case []byte:
			data = v
		default:
			// Drivers such as pgx decode json columns themselves.
			return v, nil
		}
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case TypeBlob:
		switch v := raw.(type) {
		case []byte:
			return append([]byte(nil), v...), nil
		case string:
			return []byte(v), nil
		}
	case TypeUUID:
		switch v := raw.(type) {
		case uuid.UUID:
			return v, nil
		case [16]byte:
			return uuid.UUID(v), nil
		case string:
			return uuid.Parse(v)
		case []byte:
			if len(v) == 16 {
				return uuid.FromBytes(v)
			}
			return uuid.ParseBytes(v)
		}
	default:
		return raw, nil
	}
	return nil, fmt.Errorf("unsupported value type %T for %s column", raw, c.Type)
}

func (c *Column) decodeError(raw any, err error) error {
	return sqlq.NewDecodingError(c.TableName(), c.Name, raw, err)
}

func (c *Column) qualifiedName() string {
	if t := c.TableName(); t != "" {
		return t + "." + c.Name
	}
	return c.Name
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, errors.New("integer overflows int64")
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, errors.New("non-integral float")
		}
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	}
	return 0, fmt.Errorf("unsupported value type %T for integer column", raw)
}

func toFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	}
	return 0, fmt.Errorf("unsupported value type %T for real column", raw)
}

func parseTime(s string) (time.Time, error) {
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
