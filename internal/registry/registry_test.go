package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncclementi/tabarena-cuml-poc/internal/meta"
	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
	"github.com/ncclementi/tabarena-cuml-poc/internal/store"
	"github.com/ncclementi/tabarena-cuml-poc/internal/testutil"
	"github.com/ncclementi/tabarena-cuml-poc/internal/timer"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "bench.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestTimer(t *testing.T, runID string) *timer.Timer {
	t.Helper()
	fixture := meta.Static{"system.hostname": record.String("test-host")}
	clock := testutil.NewStepClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), time.Second)
	return timer.New(context.Background(), "exp_anneal", nil, fixture, clock, testutil.NewFixedIDGenerator(runID))
}

func TestSaveRunWritesTimingsAndSummary(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tm := newTestTimer(t, "ab12cd34")

	scope := tm.Scope("train", nil)
	scope.Close()
	require.NoError(t, tm.Finalize())

	err := SaveRun(ctx, st, tm, map[string]any{"rmse": 0.42}, []string{"anneal"})
	require.NoError(t, err)

	timings, err := st.Load(ctx, TimingsTable)
	require.NoError(t, err)
	require.Len(t, timings, 2) // train + total
	for _, row := range timings {
		id, ok := record.AsString(row["run_id"])
		require.True(t, ok)
		assert.Equal(t, "ab12cd34", id)
	}

	runs, err := st.Load(ctx, RunsTable)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	summary := runs[0]

	id, _ := record.AsString(summary["run_id"])
	assert.Equal(t, "ab12cd34", id)
	name, _ := record.AsString(summary["experiment_name"])
	assert.Equal(t, "exp_anneal", name)
	datasets, _ := record.AsString(summary["datasets"])
	assert.Equal(t, `["anneal"]`, datasets)
	host, _ := record.AsString(summary["system.hostname"])
	assert.Equal(t, "test-host", host)

	total, ok := record.AsFloat(summary["total_time_s"])
	require.True(t, ok)
	assert.Greater(t, total, 0.0)
}

func TestSaveRunFinalizesUnfinishedTimer(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tm := newTestTimer(t, "cc00dd11")

	tm.Scope("infer", nil).Close()

	require.NoError(t, SaveRun(ctx, st, tm, nil, nil))

	timings, err := st.Load(ctx, TimingsTable)
	require.NoError(t, err)

	stages := map[string]bool{}
	for _, row := range timings {
		stage, _ := record.AsString(row["stage"])
		stages[stage] = true
	}
	assert.True(t, stages["infer"])
	assert.True(t, stages[timer.TotalStage])
}

func TestFindRunPrefix(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	summaries := []record.Row{}
	for _, id := range []string{"ab12ffff", "ab99eeee", "cd00aaaa"} {
		row := record.Row{}
		row.Set("run_id", id)
		row.Set("experiment_name", "exp")
		summaries = append(summaries, row)
	}
	require.NoError(t, st.Append(ctx, RunsTable, summaries))

	row, err := FindRun(ctx, st, "ab12")
	require.NoError(t, err)
	id, _ := record.AsString(row["run_id"])
	assert.Equal(t, "ab12ffff", id)

	_, err = FindRun(ctx, st, "ab")
	var ambiguous *AmbiguousError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, []string{"ab12ffff", "ab99eeee"}, ambiguous.Matches)
	assert.Contains(t, err.Error(), "ab12ffff")
	assert.Contains(t, err.Error(), "ab99eeee")

	_, err = FindRun(ctx, st, "zz")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "zz", notFound.Key)
}

func TestFindRunEmptyStore(t *testing.T) {
	st := newTestStore(t)

	_, err := FindRun(context.Background(), st, "ab")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestTimingsForRun(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	rows := []record.Row{}
	for _, spec := range []struct{ runID, stage string }{
		{"ab12ffff", "train"},
		{"ab12ffff", "infer"},
		{"ab99eeee", "train"},
	} {
		row := record.Row{}
		row.Set("run_id", spec.runID)
		row.Set("stage", spec.stage)
		rows = append(rows, row)
	}
	require.NoError(t, st.Append(ctx, TimingsTable, rows))

	got, runID, err := TimingsForRun(ctx, st, "ab12")
	require.NoError(t, err)
	assert.Equal(t, "ab12ffff", runID)
	assert.Len(t, got, 2)

	_, _, err = TimingsForRun(ctx, st, "ab")
	var ambiguous *AmbiguousError
	require.ErrorAs(t, err, &ambiguous)

	_, _, err = TimingsForRun(ctx, st, "zz")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestTimingsForRunWithoutSummary(t *testing.T) {
	// A crash between the timings append and the summary append leaves
	// timing rows with no benchmark_runs row. Those runs still resolve.
	ctx := context.Background()
	st := newTestStore(t)

	row := record.Row{}
	row.Set("run_id", "ff00ff00")
	row.Set("stage", "train")
	require.NoError(t, st.Append(ctx, TimingsTable, []record.Row{row}))

	got, runID, err := TimingsForRun(ctx, st, "ff00")
	require.NoError(t, err)
	assert.Equal(t, "ff00ff00", runID)
	assert.Len(t, got, 1)
}

func TestRunsFilterByExperiment(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	var summaries []record.Row
	for _, spec := range []struct{ id, name string }{
		{"aa", "exp_one"},
		{"bb", "exp_two"},
		{"cc", "exp_one"},
	} {
		row := record.Row{}
		row.Set("run_id", spec.id)
		row.Set("experiment_name", spec.name)
		summaries = append(summaries, row)
	}
	require.NoError(t, st.Append(ctx, RunsTable, summaries))

	all, err := Runs(ctx, st, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	filtered, err := Runs(ctx, st, "exp_one")
	require.NoError(t, err)
	assert.Len(t, filtered, 2)
}

func TestBackfillExperimentIDs(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	const expID = "0123456789abcdef0123456789abcdef"

	summary := record.Row{}
	summary.Set("run_id", "ab12ffff")
	summary.Set("experiment_name", expID+"_anneal")
	summary.Set("datasets", []string{"anneal"})
	require.NoError(t, st.Append(ctx, RunsTable, []record.Row{summary}))

	timing := record.Row{}
	timing.Set("run_id", "ab12ffff")
	timing.Set("experiment_name", expID+"_anneal")
	timing.Set("stage", "train")
	require.NoError(t, st.Append(ctx, TimingsTable, []record.Row{timing}))

	report, err := BackfillExperimentIDs(ctx, st, true)
	require.NoError(t, err)
	assert.Equal(t, BackfillReport{Scanned: 1, Missing: 1, Backfilled: 1}, report)

	// Dry run must not write.
	rows, err := st.Load(ctx, TimingsTable)
	require.NoError(t, err)
	assert.True(t, record.IsNull(rows[0][`stage_metadata.experiment_id`]))

	report, err = BackfillExperimentIDs(ctx, st, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Backfilled)

	rows, err = st.Load(ctx, TimingsTable)
	require.NoError(t, err)
	got, _ := record.AsString(rows[0]["stage_metadata.experiment_id"])
	assert.Equal(t, expID, got)

	// A second pass finds nothing left to fill.
	report, err = BackfillExperimentIDs(ctx, st, false)
	require.NoError(t, err)
	assert.Equal(t, BackfillReport{Scanned: 1, Missing: 0, Backfilled: 0}, report)
}

func TestExtractExperimentID(t *testing.T) {
	const expID = "0123456789abcdef0123456789abcdef"

	tests := []struct {
		name     string
		expName  string
		datasets string
		want     string
	}{
		{"dataset suffix", expID + "_anneal", `["anneal"]`, expID},
		{"dataset with underscore", expID + "_credit_g", `["credit_g"]`, expID},
		{"hex fallback without datasets", expID + "_anneal", "", expID},
		{"non-hex head", "myexperiment_anneal", "", ""},
		{"no separator", expID, "", ""},
		{"empty", "", `["anneal"]`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractExperimentID(tt.expName, tt.datasets))
		})
	}
}
