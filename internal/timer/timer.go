package timer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ncclementi/tabarena-cuml-poc/internal/meta"
	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
)

// TotalStage is the synthetic stage label appended by Finalize.
const TotalStage = "total"

// TimingRecord is one measured stage within one run. Records are created
// when a scope closes and are immutable afterwards.
type TimingRecord struct {
	Stage     string
	Elapsed   time.Duration
	Timestamp time.Time
	Metadata  record.Row
}

// Timer measures named stages of one experiment run. One Timer serves one
// run from one goroutine; it keeps no internal locking.
//
// A Timer collects environment metadata exactly once, at construction, and
// denormalizes it onto every exported row.
type Timer struct {
	experimentName string
	runID          string
	defaults       record.Row
	context        record.Row
	start          time.Time
	timings        []TimingRecord
	finalized      bool
	clock          Clock
}

// New creates a Timer for one run. It generates the run identifier,
// invokes the metadata provider immediately, and records the construction
// instant as the run's start reference.
//
// provider, clock, and gen may be nil, selecting the production collector,
// the system clock, and UUID run identifiers. Tests pass fixtures to make
// exported rows deterministic.
func New(ctx context.Context, experimentName string, defaults record.Row, provider meta.Provider, clock Clock, gen IDGenerator) *Timer {
	if provider == nil {
		provider = meta.NewCollector()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if gen == nil {
		gen = UUIDGenerator{}
	}

	t := &Timer{
		experimentName: experimentName,
		runID:          gen.Generate(),
		defaults:       defaults.Clone(),
		clock:          clock,
	}
	t.start = clock.Now()
	t.context = provider.Collect(ctx)
	return t
}

// RunID returns the run's unique identifier.
func (t *Timer) RunID() string {
	return t.runID
}

// ExperimentName returns the experiment label given at construction.
func (t *Timer) ExperimentName() string {
	return t.experimentName
}

// Context returns a copy of the environment metadata collected at
// construction.
func (t *Timer) Context() record.Row {
	return t.context.Clone()
}

// Scope opens a timed interval for the named stage. Close the returned
// scope to record it:
//
//	defer t.Scope("model_fit", nil).Close()
//
// Exactly one TimingRecord is produced per Scope call, however the scope
// exits; overrides win over the timer's default metadata on key collision.
// Nested scopes are independent: a parent's duration includes its
// children's time, each recorded separately.
func (t *Timer) Scope(stage string, overrides record.Row) *Scope {
	merged := t.defaults.Clone()
	if overrides != nil {
		merged.Merge(overrides)
	}
	return &Scope{
		timer:    t,
		stage:    stage,
		metadata: merged,
		start:    t.clock.Now(),
	}
}

// Scope is a guarded timing interval. Close always fires the timing side
// effect, including on error paths when deferred.
type Scope struct {
	timer    *Timer
	stage    string
	metadata record.Row
	start    time.Time
	closed   bool
}

// Close computes the elapsed duration and appends one TimingRecord.
// Further calls are no-ops, so a scope closed early and again by a defer
// still records exactly once.
func (s *Scope) Close() {
	if s.closed {
		return
	}
	s.closed = true

	now := s.timer.clock.Now()
	s.timer.timings = append(s.timer.timings, TimingRecord{
		Stage:     s.stage,
		Elapsed:   now.Sub(s.start),
		Timestamp: now,
		Metadata:  s.metadata,
	})
}

// Finalize appends the synthetic "total" record covering the time since
// timer construction. Calling it a second time is an error; call it once,
// just before persisting the run.
func (t *Timer) Finalize() error {
	if t.finalized {
		return fmt.Errorf("finalize already called for run %s", t.runID)
	}
	t.finalized = true

	now := t.clock.Now()
	t.timings = append(t.timings, TimingRecord{
		Stage:     TotalStage,
		Elapsed:   now.Sub(t.start),
		Timestamp: now,
	})
	return nil
}

// TotalElapsed returns the duration of the "total" record, if Finalize
// has run.
func (t *Timer) TotalElapsed() (time.Duration, bool) {
	for _, tr := range t.timings {
		if tr.Stage == TotalStage {
			return tr.Elapsed, true
		}
	}
	return 0, false
}

// Timings returns the recorded stages in recording order.
func (t *Timer) Timings() []TimingRecord {
	out := make([]TimingRecord, len(t.timings))
	copy(out, t.timings)
	return out
}

// Export flattens every recorded stage into a storage row: duration in
// three units, capture timestamp, run identity, per-stage metadata under
// the stage_metadata. prefix, and the full environment context
// denormalized onto each row. Export has no side effects and may be
// called repeatedly.
func (t *Timer) Export() []record.Row {
	rows := make([]record.Row, 0, len(t.timings))
	for _, tr := range t.timings {
		row := record.Row{}
		row.Set("stage", tr.Stage)
		row.Set("time_ns", tr.Elapsed.Nanoseconds())
		row.Set("time_ms", float64(tr.Elapsed.Nanoseconds())/1e6)
		row.Set("time_s", float64(tr.Elapsed.Nanoseconds())/1e9)
		row.Set("timestamp", tr.Timestamp.Format(time.RFC3339Nano))
		row.Set("experiment_name", t.experimentName)
		row.Set("run_id", t.runID)
		row.Merge(tr.Metadata.WithPrefix("stage_metadata."))
		row.Merge(t.context)
		rows = append(rows, row)
	}
	return rows
}

// Summary renders a human-readable timing table.
func (t *Timer) Summary() string {
	if len(t.timings) == 0 {
		return "No timings recorded."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-30s %-12s %14s %12s\n", "experiment", "stage", "time_ms", "time_s")
	for _, tr := range t.timings {
		fmt.Fprintf(&b, "%-30s %-12s %14.3f %12.3f\n",
			t.experimentName,
			tr.Stage,
			float64(tr.Elapsed.Nanoseconds())/1e6,
			float64(tr.Elapsed.Nanoseconds())/1e9,
		)
	}
	return strings.TrimRight(b.String(), "\n")
}
