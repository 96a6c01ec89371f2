package registry

import (
	"context"
	"fmt"

	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
	"github.com/ncclementi/tabarena-cuml-poc/internal/store"
	"github.com/ncclementi/tabarena-cuml-poc/internal/timer"
)

// Table names for the two logical tables every run writes.
const (
	RunsTable    = "benchmark_runs"
	TimingsTable = "benchmark_timings"
)

// SaveRun persists one finished experiment run: the timer's full timing
// batch into benchmark_timings, then one summary row into benchmark_runs.
//
// Timings go first so a summary row never exists without its timing
// evidence once both writes land. The pair is not atomic; a crash between
// the two appends leaves timing rows without a summary, which readers
// treat as a valid incomplete run. The timer is finalized here if the
// caller has not done so already.
//
// The results payload is serialized opaquely; the registry does not
// interpret its shape.
func SaveRun(ctx context.Context, st *store.Store, tm *timer.Timer, results any, datasets []string) error {
	if _, ok := tm.TotalElapsed(); !ok {
		if err := tm.Finalize(); err != nil {
			return fmt.Errorf("save run %s: %w", tm.RunID(), err)
		}
	}

	timings := tm.Export()
	if err := st.Append(ctx, TimingsTable, timings); err != nil {
		return fmt.Errorf("save timings for run %s: %w", tm.RunID(), err)
	}

	summary := BuildSummary(tm, results, datasets)
	if err := st.Append(ctx, RunsTable, []record.Row{summary}); err != nil {
		return fmt.Errorf("save summary for run %s: %w", tm.RunID(), err)
	}
	return nil
}

// BuildSummary assembles the one-row-per-run record: run identity, the
// serialized dataset list and results payload, the full environment
// context under dotted keys, and the total duration when the "total"
// stage has been recorded.
func BuildSummary(tm *timer.Timer, results any, datasets []string) record.Row {
	row := record.Row{}
	row.Set("run_id", tm.RunID())
	row.Set("experiment_name", tm.ExperimentName())
	if datasets != nil {
		row.Set("datasets", datasets)
	} else {
		row.Set("datasets", nil)
	}
	row.Set("results_json", serializeResults(results))
	row.Merge(tm.Context())

	if total, ok := tm.TotalElapsed(); ok {
		row.Set("total_time_s", float64(total.Nanoseconds())/1e9)
		row.Set("total_time_ms", float64(total.Nanoseconds())/1e6)
	}
	return row
}

func serializeResults(results any) any {
	if results == nil {
		return nil
	}
	v, err := record.Serialize(results)
	if err != nil {
		return nil
	}
	// Scalars are stored as-is; structured payloads arrive already
	// JSON-encoded from Serialize.
	return v
}
