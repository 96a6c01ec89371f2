package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
)

// Filter narrows a Load to rows matching a column predicate. Exactly one
// of Equals or Prefix applies; when both are set, Equals wins.
type Filter struct {
	Column string
	Equals string
	Prefix string
}

// Equal builds an equality filter.
func Equal(column, value string) Filter {
	return Filter{Column: column, Equals: value}
}

// HasPrefix builds a string-prefix filter, used for run identifier lookup.
func HasPrefix(column, prefix string) Filter {
	return Filter{Column: column, Prefix: prefix}
}

// Load reads rows from a table, optionally filtered. A table that does
// not exist yet yields an empty result, not an error. NULL cells read
// back as record.Null so readers can tell a null column from an unknown
// one. Rows come back in insertion order.
func (s *Store) Load(ctx context.Context, table string, filters ...Filter) ([]record.Row, error) {
	numbered, err := s.LoadNumbered(ctx, table, filters...)
	if err != nil {
		return nil, err
	}
	rows := make([]record.Row, len(numbered))
	for i, n := range numbered {
		rows[i] = n.Row
	}
	return rows, nil
}

// NumberedRow pairs a row with its stable storage identifier, used by
// migration passes that rewrite individual cells.
type NumberedRow struct {
	ID  int64
	Row record.Row
}

// LoadNumbered is Load with each row's rowid attached.
func (s *Store) LoadNumbered(ctx context.Context, table string, filters ...Filter) ([]NumberedRow, error) {
	exists, err := s.tableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []NumberedRow{}, nil
	}

	var (
		where []string
		args  []any
	)
	for _, f := range filters {
		switch {
		case f.Equals != "":
			where = append(where, quoteIdent(f.Column)+" = ?")
			args = append(args, f.Equals)
		case f.Prefix != "":
			where = append(where, quoteIdent(f.Column)+" LIKE ? ESCAPE '\\'")
			args = append(args, escapeLike(f.Prefix)+"%")
		}
	}

	q := fmt.Sprintf("SELECT rowid, * FROM %s", quoteIdent(table))
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY rowid ASC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %q: %w", table, err)
	}

	out := []NumberedRow{}
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row from %q: %w", table, err)
		}

		row := make(record.Row, len(cols)-1)
		var id int64
		for i, col := range cols {
			if i == 0 {
				id, _ = cells[i].(int64)
				continue
			}
			row[col] = fromSQL(cells[i])
		}
		out = append(out, NumberedRow{ID: id, Row: row})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %q: %w", table, err)
	}

	return out, nil
}

// SetCell updates one cell of one stored row, adding the column first if
// the table does not have it yet. This is the write primitive for
// backfill migrations; regular ingestion goes through Append only.
func (s *Store) SetCell(ctx context.Context, table string, rowID int64, column string, value record.Value) error {
	cols, err := s.tableColumns(ctx, table)
	if err != nil {
		return err
	}

	known := false
	for _, c := range cols {
		if c == column {
			known = true
			break
		}
	}
	if !known {
		q := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
			quoteIdent(table), quoteIdent(column), columnType(column, []record.Row{{column: value}}))
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("add column %q to %q: %w", column, table, err)
		}
	}

	q := fmt.Sprintf("UPDATE %s SET %s = ? WHERE rowid = ?", quoteIdent(table), quoteIdent(column))
	if _, err := s.db.ExecContext(ctx, q, toSQL(value), rowID); err != nil {
		return fmt.Errorf("update %q.%q: %w", table, column, err)
	}
	return nil
}

// escapeLike escapes LIKE wildcards in a literal prefix.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
