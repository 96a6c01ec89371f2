// Package record defines the loosely typed row model shared by the timer,
// the store, and the analytics engine.
//
// A Row is a flat mapping from column name to scalar cell. Column sets are
// open: every run may introduce new columns, and the store widens table
// schemas to the union of all columns ever written. Nested structures are
// serialized to JSON text cells before they reach a Row, so the store only
// deals in TEXT, INTEGER, and REAL.
//
// Column names use dotted namespaces (system.hostname, cuda.cuda_device_count,
// stage_metadata.num_gpus) and are normalized to NFC on entry so the same
// label always maps to the same column.
package record
