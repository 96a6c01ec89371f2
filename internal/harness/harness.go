// Package harness orchestrates one instrumented experiment run end to
// end: it opens the results store, builds a stage timer with the run's
// environment context, hands the timer to the experiment body, and
// persists timings plus a summary row when the body returns.
package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/ncclementi/tabarena-cuml-poc/internal/config"
	"github.com/ncclementi/tabarena-cuml-poc/internal/meta"
	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
	"github.com/ncclementi/tabarena-cuml-poc/internal/registry"
	"github.com/ncclementi/tabarena-cuml-poc/internal/store"
	"github.com/ncclementi/tabarena-cuml-poc/internal/timer"
)

// Body is the experiment code being timed. It receives the run's timer to
// open stage scopes and returns an arbitrary results payload, persisted
// opaquely with the run summary.
type Body func(ctx context.Context, tm *timer.Timer) (any, error)

// Runner executes experiment bodies against one results store.
type Runner struct {
	cfg      config.Config
	store    *store.Store
	provider meta.Provider
	clock    timer.Clock
	idgen    timer.IDGenerator
}

// Option customizes a Runner. Used by tests to inject deterministic
// clocks, identifiers, and metadata.
type Option func(*Runner)

// WithStore uses an already open store instead of opening one from the
// configured database path. The caller keeps ownership and closes it.
func WithStore(st *store.Store) Option {
	return func(r *Runner) { r.store = st }
}

// WithProvider replaces the environment metadata collector.
func WithProvider(p meta.Provider) Option {
	return func(r *Runner) { r.provider = p }
}

// WithClock replaces the timing clock.
func WithClock(c timer.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithIDGenerator replaces the run identifier generator.
func WithIDGenerator(g timer.IDGenerator) Option {
	return func(r *Runner) { r.idgen = g }
}

// NewRunner creates a Runner for the given configuration.
func NewRunner(cfg config.Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.provider == nil {
		collector := &meta.Collector{RepoPath: cfg.Experiment.RepoPath}
		if cfg.Experiment.SubprocessTimeoutS > 0 {
			collector.SubprocessTimeout = time.Duration(cfg.Experiment.SubprocessTimeoutS) * time.Second
		}
		r.provider = collector
	}
	return r
}

// Run executes body inside a fully wired run: a fresh timer with the
// configured stage metadata defaults, persistence on completion, and the
// run identifier returned for later lookup.
//
// Timings are persisted even when body fails; the error text is recorded
// in the summary's results payload so a failed run is still inspectable.
// A persistence failure after a body failure reports the body's error.
func (r *Runner) Run(ctx context.Context, body Body) (string, error) {
	st := r.store
	if st == nil {
		var err error
		st, err = store.Open(r.cfg.DatabasePath)
		if err != nil {
			return "", fmt.Errorf("open results store: %w", err)
		}
		defer st.Close()
	}

	defaults := record.Row{}
	for key, value := range r.cfg.Experiment.StageMetadata {
		defaults.Set(key, value)
	}

	tm := timer.New(ctx, r.cfg.Experiment.Name, defaults, r.provider, r.clock, r.idgen)

	results, bodyErr := body(ctx, tm)
	if bodyErr != nil {
		results = map[string]any{"error": bodyErr.Error()}
	}

	if err := registry.SaveRun(ctx, st, tm, results, r.cfg.Experiment.Datasets); err != nil {
		if bodyErr != nil {
			return tm.RunID(), bodyErr
		}
		return tm.RunID(), err
	}
	return tm.RunID(), bodyErr
}
