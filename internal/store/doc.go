// Package store provides SQLite-backed storage with schema evolution for
// benchmark data.
//
// Two logical tables are written by the registry: benchmark_runs (one row
// per run) and benchmark_timings (one row per timed stage). Neither has a
// fixed schema: a table's column set is the union of every column any row
// ever carried, and an append introducing new columns widens the table
// in place without losing existing rows or columns.
//
// # Schema evolution
//
// Append first tries a plain INSERT. When SQLite rejects it because a row
// names a column the table lacks, the store reads the whole table,
// concatenates it with the new batch, and rewrites the table with the
// unioned column set. The rewrite runs in one transaction, so readers see
// either the old schema or the finished one. Any other storage failure
// propagates to the caller.
//
// # Concurrency
//
// One writer at a time per table. Multiple concurrent experiment
// processes against one database file must serialize externally; the
// store does not arbitrate between them. Reads may run concurrently with
// appends under SQLite's WAL isolation.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
package store
