package record

import (
	"encoding/json"
	"fmt"
)

// Value is a sealed interface over the scalar cell types a Row may hold.
// Only Null, String, Int, Float, and Bool implement it. Nested structures
// (lists, maps) never appear as cell values; they are serialized to a
// String cell by Serialize before storage.
type Value interface {
	value() // sealed
}

// Null represents an absent cell. Rows written before a column existed
// read back as Null for that column.
type Null struct{}

func (Null) value() {}

// String is a text cell.
type String string

func (String) value() {}

// Int is a 64-bit integer cell.
type Int int64

func (Int) value() {}

// Float is a 64-bit floating point cell. Durations in seconds and
// milliseconds are stored as Float.
type Float float64

func (Float) value() {}

// Bool is a boolean cell.
type Bool bool

func (Bool) value() {}

// Serialize converts an arbitrary Go value into a cell Value. Scalars map
// directly; nil maps to Null; slices, maps, and any other structured value
// are JSON-encoded into a String cell so the storage layer only ever sees
// flat scalar columns.
func Serialize(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("serialize value of type %T: %w", v, err)
		}
		return String(data), nil
	}
}

// MustSerialize is Serialize for values known to be encodable.
// Panics on error; intended for literals in tests and callers that
// already hold scalar types.
func MustSerialize(v any) Value {
	val, err := Serialize(v)
	if err != nil {
		panic(err)
	}
	return val
}

// Unwrap converts a Value back to a plain Go value for JSON output.
func Unwrap(v Value) any {
	switch val := v.(type) {
	case Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	default:
		return nil
	}
}

// IsNull reports whether v is the Null cell or nil.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// AsFloat returns the numeric content of v as a float64.
// Int and Float convert directly; String cells are not parsed.
func AsFloat(v Value) (float64, bool) {
	switch val := v.(type) {
	case Int:
		return float64(val), true
	case Float:
		return float64(val), true
	default:
		return 0, false
	}
}

// AsInt returns the integer content of v. Float cells convert only when
// they carry an integral value.
func AsInt(v Value) (int64, bool) {
	switch val := v.(type) {
	case Int:
		return int64(val), true
	case Float:
		if float64(val) == float64(int64(val)) {
			return int64(val), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// AsString returns the text content of v.
func AsString(v Value) (string, bool) {
	if s, ok := v.(String); ok {
		return string(s), true
	}
	return "", false
}

// AsBool returns the boolean content of v. Integer cells holding 0 or 1
// convert too, since SQLite has no native boolean type and booleans round
// trip through INTEGER columns.
func AsBool(v Value) (bool, bool) {
	switch val := v.(type) {
	case Bool:
		return bool(val), true
	case Int:
		if val == 0 {
			return false, true
		}
		if val == 1 {
			return true, true
		}
		return false, false
	default:
		return false, false
	}
}
