package schema

// Type is the semantic type of a column. It selects how Go values are encoded
// for the driver and how raw driver values are decoded back.
type Type uint8

// Column types.
const (
	TypeInvalid Type = iota
	TypeInteger
	TypeReal
	TypeNumeric
	TypeText
	TypeBoolean
	TypeIntBoolean
	TypeTimestamp
	TypeUnixTime
	TypeUnixTimeMilli
	TypeJSON
	TypeBlob
	TypeUUID
	endTypes
)

var typeNames = [...]string{
	TypeInvalid:       "invalid",
	TypeInteger:       "integer",
	TypeReal:          "real",
	TypeNumeric:       "numeric",
	TypeText:          "text",
	TypeBoolean:       "boolean",
	TypeIntBoolean:    "integer(boolean)",
	TypeTimestamp:     "timestamp",
	TypeUnixTime:      "integer(timestamp)",
	TypeUnixTimeMilli: "integer(timestamp_ms)",
	TypeJSON:          "json",
	TypeBlob:          "blob",
	TypeUUID:          "uuid",
}

// String returns the type name.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Valid reports if the type is a known column type.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// Numeric reports if the type is stored as a number on the wire.
func (t Type) Numeric() bool {
	switch t {
	case TypeInteger, TypeReal, TypeNumeric, TypeIntBoolean, TypeUnixTime, TypeUnixTimeMilli:
		return true
	}
	return false
}
