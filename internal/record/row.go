package record

import (
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Row is a wide sparse record: an arbitrary set of column names mapped to
// scalar cells. Different rows written to the same table may carry
// different column sets; the store computes the union.
type Row map[string]Value

// NormalizeKey canonicalizes a column name to NFC so that visually
// identical labels produce one column, not several.
func NormalizeKey(key string) string {
	return norm.NFC.String(key)
}

// Columns returns the row's column names in sorted order.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Set normalizes the key and serializes the value into the row.
// Unencodable values are stored as Null rather than dropped, so the
// column still appears in the schema.
func (r Row) Set(key string, v any) {
	val, err := Serialize(v)
	if err != nil {
		val = Null{}
	}
	r[NormalizeKey(key)] = val
}

// Merge copies all cells from other into r, overwriting on collision.
func (r Row) Merge(other Row) {
	for k, v := range other {
		r[k] = v
	}
}

// Clone returns a shallow copy of the row. Cells are immutable scalars,
// so a shallow copy is a full copy.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// WithPrefix returns a copy of the row with every column name prefixed,
// e.g. WithPrefix("stage_metadata.") for per-stage metadata columns.
func (r Row) WithPrefix(prefix string) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[prefix+k] = v
	}
	return out
}

// Unflatten converts the row to a plain map for JSON encoding.
func (r Row) Unflatten() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = Unwrap(v)
	}
	return out
}

// ColumnUnion returns the sorted union of column names across rows.
func ColumnUnion(rows []Row) []string {
	seen := map[string]struct{}{}
	for _, row := range rows {
		for k := range row {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
