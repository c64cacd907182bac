package table

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Coerce converts value into a cell of the column's type.
//
//   - string: strings pass through ("" is null in a nullable column),
//     numbers and booleans are formatted, anything else is JSON encoded.
//   - boolean: booleans pass through, other values use their truthiness,
//     so null and "" are false.
//   - number: numbers pass through, strings are parsed as floats.
//   - uuid: the value must be a valid UUID.
//   - bytes: the value must be a []byte.
//
// A value that cannot be converted is null in a nullable column and an
// ErrTypeCoercion otherwise. Except in boolean columns, null and "" are
// null in nullable columns and null in a non-nullable column is an error.
func Coerce(col Column, value interface{}) (Cell, error) {
	if col.Type == TypeBoolean {
		return truthy(value), nil
	}
	if value == nil {
		if col.Nullable {
			return nil, nil
		}
		return nil, errors.Wrapf(ErrTypeCoercion, "null in non-nullable %s column", col.Type)
	}
	if s, ok := value.(string); ok && s == "" && col.Nullable {
		return nil, nil
	}

	switch col.Type {
	case TypeString:
		return toString(value)

	case TypeNumber:
		if f, ok := toFloat64(value); ok {
			return f, nil
		}
		return invalid(col, value)

	case TypeUUID:
		s, ok := value.(string)
		if !ok {
			s, _ = toString(value)
		}
		if _, err := uuid.Parse(s); err != nil {
			return invalid(col, value)
		}
		return s, nil

	case TypeBytes:
		if b, ok := value.([]byte); ok {
			return b, nil
		}
		return invalid(col, value)

	default:
		return nil, errors.Wrapf(ErrColumn, "column %q has unknown type %q", col.Name, col.Type)
	}
}

func invalid(col Column, value interface{}) (Cell, error) {
	if col.Nullable {
		return nil, nil
	}
	return nil, errors.Wrapf(ErrTypeCoercion, "cannot convert %T %v to %s", value, value, col.Type)
}

// inferType returns the column type suggested by a record value. ok is
// false for null, which carries no type information.
func inferType(value interface{}) (Type, bool) {
	switch value.(type) {
	case nil:
		return "", false
	case bool:
		return TypeBoolean, true
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return TypeNumber, true
	case []byte:
		return TypeBytes, true
	default:
		return TypeString, true
	}
}

// promoteType widens a column type on conflict. Any disagreement
// becomes string, which can hold every value.
func promoteType(a, b Type) Type {
	if a == "" {
		return b
	}
	if b == "" || a == b {
		return a
	}
	return TypeString
}

// Type conversion helpers

func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toString(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case json.Number:
		return val.String(), nil
	}
	if f, ok := toFloat64(v); ok {
		return FormatNumber(f), nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrapf(ErrTypeCoercion, "cannot encode %T: %v", v, err)
	}
	return string(b), nil
}

// Number returns the numeric value of a cell. Strings are parsed.
func Number(c Cell) (float64, bool) {
	return toFloat64(c)
}

// FormatNumber formats a number cell the shortest way that parses back
// to the same value.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatCell renders a cell as delimited text.
func FormatCell(c Cell) string {
	switch val := c.(type) {
	case nil:
		return ""
	case []byte:
		return base64.StdEncoding.EncodeToString(val)
	default:
		s, _ := toString(val)
		return s
	}
}

func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return b
		}
		return val != ""
	case []byte:
		return true
	}
	if f, ok := toFloat64(v); ok {
		return f != 0
	}
	return true
}
