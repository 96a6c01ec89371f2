package store

import (
	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
)

// toSQL converts a cell to a driver-level value.
func toSQL(v record.Value) any {
	switch val := v.(type) {
	case record.String:
		return string(val)
	case record.Int:
		return int64(val)
	case record.Float:
		return float64(val)
	case record.Bool:
		if val {
			return int64(1)
		}
		return int64(0)
	default:
		return nil
	}
}

// fromSQL converts a scanned driver value back to a cell. SQLite reports
// no boolean type, so booleans come back as INTEGER cells; record.AsBool
// accepts that form.
func fromSQL(v any) record.Value {
	switch val := v.(type) {
	case nil:
		return record.Null{}
	case int64:
		return record.Int(val)
	case float64:
		return record.Float(val)
	case string:
		return record.String(val)
	case []byte:
		return record.String(val)
	case bool:
		return record.Bool(val)
	default:
		return record.Null{}
	}
}
