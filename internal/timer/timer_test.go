package timer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncclementi/tabarena-cuml-poc/internal/meta"
	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
	"github.com/ncclementi/tabarena-cuml-poc/internal/testutil"
)

var fixtureMeta = meta.Static{
	"system.hostname":        record.String("bench-01"),
	"cuda.cuda_device_count": record.Int(2),
}

func newTestTimer(t *testing.T, step time.Duration) (*Timer, *testutil.StepClock) {
	t.Helper()
	clock := testutil.NewStepClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), step)
	tm := New(context.Background(), "test_rf_model_gpu_anneal",
		record.Row{"num_gpus": record.Int(2)},
		fixtureMeta, clock, testutil.NewFixedIDGenerator("ab12cd34"))
	return tm, clock
}

func TestNew_CollectsContextAndRunID(t *testing.T) {
	tm, _ := newTestTimer(t, time.Second)

	assert.Equal(t, "ab12cd34", tm.RunID())
	assert.Equal(t, "test_rf_model_gpu_anneal", tm.ExperimentName())
	assert.Equal(t, record.String("bench-01"), tm.Context()["system.hostname"])
}

func TestNew_DefaultRunIDIsHex32(t *testing.T) {
	tm := New(context.Background(), "exp", nil, fixtureMeta, nil, nil)
	require.Len(t, tm.RunID(), 32)
	for _, c := range tm.RunID() {
		assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'), "non-hex rune %q", c)
	}
}

func TestScope_RecordsExactlyOnce(t *testing.T) {
	tm, _ := newTestTimer(t, time.Second)

	s := tm.Scope("model_fit", nil)
	s.Close()
	s.Close() // second close is a no-op

	timings := tm.Timings()
	require.Len(t, timings, 1)
	assert.Equal(t, "model_fit", timings[0].Stage)
	assert.Equal(t, time.Second, timings[0].Elapsed)
}

func TestScope_RecordsOnPanicExit(t *testing.T) {
	tm, _ := newTestTimer(t, time.Second)

	func() {
		defer func() { _ = recover() }()
		defer tm.Scope("model_fit", nil).Close()
		panic("training failed")
	}()

	timings := tm.Timings()
	require.Len(t, timings, 1)
	assert.Equal(t, "model_fit", timings[0].Stage)
	assert.GreaterOrEqual(t, timings[0].Elapsed, time.Duration(0))
}

func TestScope_MetadataOverrideWins(t *testing.T) {
	tm, _ := newTestTimer(t, time.Second)

	s := tm.Scope("predict", record.Row{
		"num_gpus": record.Int(0),
		"profiled": record.Bool(true),
	})
	s.Close()

	md := tm.Timings()[0].Metadata
	assert.Equal(t, record.Int(0), md["num_gpus"])
	assert.Equal(t, record.Bool(true), md["profiled"])
}

func TestScope_NestedScopesAreIndependent(t *testing.T) {
	tm, clock := newTestTimer(t, 0)

	outer := tm.Scope("fit_total", nil)
	clock.Advance(2 * time.Second)
	inner := tm.Scope("fold_0", nil)
	clock.Advance(3 * time.Second)
	inner.Close()
	outer.Close()

	timings := tm.Timings()
	require.Len(t, timings, 2)
	assert.Equal(t, "fold_0", timings[0].Stage)
	assert.Equal(t, 3*time.Second, timings[0].Elapsed)
	assert.Equal(t, "fit_total", timings[1].Stage)
	// Parent includes the child's time.
	assert.Equal(t, 5*time.Second, timings[1].Elapsed)
}

func TestFinalize_AppendsTotalOnce(t *testing.T) {
	tm, clock := newTestTimer(t, 0)
	clock.Advance(10 * time.Second)

	require.NoError(t, tm.Finalize())
	assert.Error(t, tm.Finalize())

	total, ok := tm.TotalElapsed()
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, total)
}

func TestFinalize_TotalCoversContainedStages(t *testing.T) {
	tm, clock := newTestTimer(t, 0)

	s := tm.Scope("model_fit", nil)
	clock.Advance(4 * time.Second)
	s.Close()
	require.NoError(t, tm.Finalize())

	total, ok := tm.TotalElapsed()
	require.True(t, ok)
	assert.GreaterOrEqual(t, total, tm.Timings()[0].Elapsed)
}

func TestExport_ShapeAndDenormalizedContext(t *testing.T) {
	tm, _ := newTestTimer(t, time.Second)
	tm.Scope("model_fit", record.Row{"profiled": record.Bool(false)}).Close()

	rows := tm.Export()
	require.Len(t, rows, 1)
	row := rows[0]

	assert.Equal(t, record.String("model_fit"), row["stage"])
	assert.Equal(t, record.Int(1e9), row["time_ns"])
	assert.Equal(t, record.Float(1000), row["time_ms"])
	assert.Equal(t, record.Float(1), row["time_s"])
	assert.Equal(t, record.String("ab12cd34"), row["run_id"])
	assert.Equal(t, record.String("test_rf_model_gpu_anneal"), row["experiment_name"])
	assert.Equal(t, record.Int(2), row["stage_metadata.num_gpus"])
	assert.Equal(t, record.Bool(false), row["stage_metadata.profiled"])
	// Environment context is denormalized onto every row.
	assert.Equal(t, record.String("bench-01"), row["system.hostname"])
	assert.Equal(t, record.Int(2), row["cuda.cuda_device_count"])
}

func TestExport_Idempotent(t *testing.T) {
	tm, _ := newTestTimer(t, time.Second)
	tm.Scope("model_fit", nil).Close()
	require.NoError(t, tm.Finalize())

	first := tm.Export()
	second := tm.Export()
	assert.Equal(t, first, second)
}

func TestSummary(t *testing.T) {
	tm, _ := newTestTimer(t, time.Second)
	assert.Equal(t, "No timings recorded.", tm.Summary())

	tm.Scope("model_fit", nil).Close()
	out := tm.Summary()
	assert.Contains(t, out, "model_fit")
	assert.Contains(t, out, "test_rf_model_gpu_anneal")
}
