package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
	"github.com/ncclementi/tabarena-cuml-poc/internal/registry"
	"github.com/ncclementi/tabarena-cuml-poc/internal/store"
)

// seededRun is fixture data for one recorded run.
type seededRun struct {
	runID    string
	dataset  string
	gpus     int64
	totalS   float64
	stages   map[string]float64 // stage -> seconds
	profiled bool
}

var fixtureRuns = []seededRun{
	{
		runID:   "ab12cd34ab12cd34ab12cd34ab12cd34",
		dataset: "anneal",
		gpus:    0,
		totalS:  12.5,
		stages:  map[string]float64{"model_fit": 10.0, "predict": 1.5},
	},
	{
		runID:   "ab99ee00ab99ee00ab99ee00ab99ee00",
		dataset: "anneal",
		gpus:    2,
		totalS:  4.0,
		stages:  map[string]float64{"model_fit": 2.5, "predict": 0.5},
	},
	{
		runID:   "cd00aa11cd00aa11cd00aa11cd00aa11",
		dataset: "credit_g",
		gpus:    2,
		totalS:  6.0,
		stages:  map[string]float64{"model_fit": 5.0},
	},
}

// seedDatabase builds a deterministic results database and returns its
// path. Timestamps and identifiers are fixed so text output is stable.
func seedDatabase(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bench.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	for _, run := range fixtureRuns {
		var timings []record.Row
		for _, stage := range sortedStages(run.stages) {
			seconds := run.stages[stage]
			row := record.Row{}
			row.Set("run_id", run.runID)
			row.Set("experiment_name", "exp_"+run.dataset)
			row.Set("stage", stage)
			row.Set("time_ns", int64(seconds*1e9))
			row.Set("time_ms", seconds*1e3)
			row.Set("time_s", seconds)
			row.Set("timestamp", "2025-06-01T12:00:00Z")
			row.Set("stage_metadata.num_gpus", run.gpus)
			if run.profiled {
				row.Set("stage_metadata.profile", true)
			}
			timings = append(timings, row)
		}
		require.NoError(t, st.Append(ctx, registry.TimingsTable, timings))

		summary := record.Row{}
		summary.Set("run_id", run.runID)
		summary.Set("experiment_name", "exp_"+run.dataset)
		summary.Set("execution_datetime", "2025-06-01T12:00:00")
		summary.Set("total_time_s", run.totalS)
		summary.Set("datasets", []string{run.dataset})
		summary.Set("system.hostname", "bench-host")
		summary.Set("cuda.cuda_device_count", run.gpus)
		require.NoError(t, st.Append(ctx, registry.RunsTable, []record.Row{summary}))
	}
	return path
}

func sortedStages(stages map[string]float64) []string {
	out := make([]string, 0, len(stages))
	for stage := range stages {
		out = append(out, stage)
	}
	sort.Strings(out)
	return out
}

// execute runs the full CLI against args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}
