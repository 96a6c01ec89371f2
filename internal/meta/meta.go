package meta

import (
	"context"
	"time"

	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
)

// DefaultSubprocessTimeout bounds every external command the collector
// runs (nvidia-smi, git, go). A hung subprocess must never block a run
// from starting.
const DefaultSubprocessTimeout = 60 * time.Second

// Provider supplies the environment metadata attached to every run.
// Collect always succeeds: sub-collectors recover their own failures into
// *_error annotation keys instead of propagating.
type Provider interface {
	Collect(ctx context.Context) record.Row
}

// Collector is the production Provider. It gathers system facts through
// gopsutil, CUDA facts through nvidia-smi, Go toolchain facts through
// runtime/debug plus one bounded `go version -m` invocation, and
// version-control state through git.
type Collector struct {
	// SubprocessTimeout bounds each external command. Zero means
	// DefaultSubprocessTimeout.
	SubprocessTimeout time.Duration

	// RepoPath is where git state is read from. Empty means the current
	// working directory.
	RepoPath string
}

// NewCollector returns a Collector with default settings.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) timeout() time.Duration {
	if c.SubprocessTimeout > 0 {
		return c.SubprocessTimeout
	}
	return DefaultSubprocessTimeout
}

// Collect gathers all categories under their dotted prefixes. Each
// category fails independently; the merged row is always returned.
func (c *Collector) Collect(ctx context.Context) record.Row {
	now := time.Now()
	row := record.Row{}
	row.Set("execution_datetime", now.Format(time.RFC3339Nano))
	row.Set("execution_timestamp", float64(now.UnixNano())/1e9)

	row.Merge(collectSystem().WithPrefix("system."))
	row.Merge(c.collectCUDA(ctx).WithPrefix("cuda."))
	row.Merge(c.collectRuntime(ctx).WithPrefix("runtime."))
	row.Merge(c.collectGit(ctx).WithPrefix("git."))

	return row
}

// Static is a fixture Provider returning a fixed row. Tests inject it into
// the timer so exported rows are deterministic.
type Static record.Row

// Collect returns a copy of the fixed row.
func (s Static) Collect(context.Context) record.Row {
	return record.Row(s).Clone()
}
