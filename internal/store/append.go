package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
)

// schemaDriftMarker is the fragment SQLite puts in the error for an INSERT
// naming a column the table does not have. Matching on it distinguishes
// recoverable schema drift from every other storage failure.
const schemaDriftMarker = "has no column"

// Append writes a batch of rows to the named table.
//
// An empty batch is a no-op: it creates no table and touches no schema.
// A first write creates the table from the batch's column union. A write
// whose rows reference columns the table does not yet have triggers the
// schema evolution path: the whole table is rewritten with the unioned
// column set inside one transaction, so concurrent readers either see the
// old schema or the fully widened one, never a partial migration. Rows
// missing a known column store NULL in that cell. Any failure other than
// schema drift propagates.
func (s *Store) Append(ctx context.Context, table string, rows []record.Row) error {
	if len(rows) == 0 {
		return nil
	}

	exists, err := s.tableExists(ctx, table)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.createTable(ctx, table, rows); err != nil {
			return err
		}
	}

	err = s.insertRows(ctx, table, rows)
	if err == nil {
		return nil
	}
	if !strings.Contains(err.Error(), schemaDriftMarker) {
		return err
	}

	// Schema evolution: merge with existing data and rewrite.
	if err := s.rewriteWithUnion(ctx, table, rows); err != nil {
		return fmt.Errorf("widen table %q: %w", table, err)
	}
	return nil
}

// createTable creates the table with the column union of the batch,
// typing each column from the first non-null cell seen for it.
func (s *Store) createTable(ctx context.Context, table string, rows []record.Row) error {
	cols := record.ColumnUnion(rows)
	defs := make([]string, 0, len(cols))
	for _, col := range cols {
		defs = append(defs, quoteIdent(col)+" "+columnType(col, rows))
	}

	q := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create table %q: %w", table, err)
	}
	return nil
}

// insertRows appends rows in one transaction. Each row only names its own
// columns; columns the table knows but the row lacks become NULL.
func (s *Store) insertRows(ctx context.Context, table string, rows []record.Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append to %q: begin tx: %w", table, err)
	}
	defer tx.Rollback() // No-op if committed

	for _, row := range rows {
		cols := row.Columns()
		if len(cols) == 0 {
			continue
		}
		quoted := make([]string, len(cols))
		marks := make([]string, len(cols))
		args := make([]any, len(cols))
		for i, col := range cols {
			quoted[i] = quoteIdent(col)
			marks[i] = "?"
			args[i] = toSQL(row[col])
		}

		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdent(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("append to %q: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append to %q: commit: %w", table, err)
	}
	return nil
}

// rewriteWithUnion reads the entire existing table, concatenates the new
// rows, and rewrites the table with the unioned schema. Existing rows keep
// their cells; cells for columns a row never had are NULL. Runs as one
// transaction so the migration appears atomic to readers.
func (s *Store) rewriteWithUnion(ctx context.Context, table string, newRows []record.Row) error {
	existing, err := s.Load(ctx, table)
	if err != nil {
		return err
	}

	// Keep existing column order, then append new columns sorted.
	oldCols, err := s.tableColumns(ctx, table)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(oldCols))
	for _, c := range oldCols {
		seen[c] = struct{}{}
	}
	cols := append([]string{}, oldCols...)
	for _, c := range record.ColumnUnion(newRows) {
		if _, ok := seen[c]; !ok {
			cols = append(cols, c)
		}
	}

	all := append(existing, newRows...)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE "+quoteIdent(table)); err != nil {
		return fmt.Errorf("drop old table: %w", err)
	}

	defs := make([]string, 0, len(cols))
	for _, col := range cols {
		defs = append(defs, quoteIdent(col)+" "+columnType(col, all))
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create widened table: %w", err)
	}

	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdent(col)
		marks[i] = "?"
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	for _, row := range all {
		args := make([]any, len(cols))
		for i, col := range cols {
			if v, ok := row[col]; ok {
				args[i] = toSQL(v)
			} else {
				args[i] = nil
			}
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("reinsert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// columnType picks the SQLite column affinity for col from the first
// non-null cell any row holds for it. Columns with only null cells
// default to TEXT.
func columnType(col string, rows []record.Row) string {
	for _, row := range rows {
		v, ok := row[col]
		if !ok || record.IsNull(v) {
			continue
		}
		switch v.(type) {
		case record.Int, record.Bool:
			return "INTEGER"
		case record.Float:
			return "REAL"
		default:
			return "TEXT"
		}
	}
	return "TEXT"
}
