package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
	"github.com/ncclementi/tabarena-cuml-poc/internal/store"
)

// NotFoundError reports a lookup that matched nothing, with enough
// context for the user to correct the query.
type NotFoundError struct {
	What string // what was searched, e.g. "run"
	Key  string // the key that was searched for
	Hint string // what to try instead
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("no %s found matching %q", e.What, e.Key)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// AmbiguousError reports a prefix that matched more than one run. The
// caller is expected to surface the candidates, not pick one.
type AmbiguousError struct {
	Prefix  string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("multiple runs match %q; be more specific:\n  - %s",
		e.Prefix, strings.Join(e.Matches, "\n  - "))
}

// Runs returns all run summaries, optionally filtered by experiment name.
func Runs(ctx context.Context, st *store.Store, experimentName string) ([]record.Row, error) {
	var filters []store.Filter
	if experimentName != "" {
		filters = append(filters, store.Equal("experiment_name", experimentName))
	}
	return st.Load(ctx, RunsTable, filters...)
}

// FindRun resolves a run identifier prefix to exactly one summary row.
// Zero matches yield a NotFoundError; multiple matches yield an
// AmbiguousError listing every candidate.
func FindRun(ctx context.Context, st *store.Store, prefix string) (record.Row, error) {
	rows, err := st.Load(ctx, RunsTable, store.HasPrefix("run_id", prefix))
	if err != nil {
		return nil, fmt.Errorf("find run %q: %w", prefix, err)
	}

	switch len(rows) {
	case 0:
		return nil, &NotFoundError{
			What: "run",
			Key:  prefix,
			Hint: "list known runs with the runs command",
		}
	case 1:
		return rows[0], nil
	default:
		ids := make([]string, 0, len(rows))
		for _, row := range rows {
			if id, ok := record.AsString(row["run_id"]); ok {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
		return nil, &AmbiguousError{Prefix: prefix, Matches: ids}
	}
}

// TimingsForRun resolves a run identifier prefix against the timings
// table and returns that run's stage rows. The prefix must identify one
// run; a prefix spanning several runs is an AmbiguousError. Runs whose
// summary write was lost still resolve here - timing rows alone are a
// valid, incomplete run.
func TimingsForRun(ctx context.Context, st *store.Store, prefix string) ([]record.Row, string, error) {
	rows, err := st.Load(ctx, TimingsTable, store.HasPrefix("run_id", prefix))
	if err != nil {
		return nil, "", fmt.Errorf("load timings for %q: %w", prefix, err)
	}
	if len(rows) == 0 {
		return nil, "", &NotFoundError{
			What: "timing data",
			Key:  prefix,
			Hint: "the run may not have been persisted yet",
		}
	}

	seen := map[string]struct{}{}
	for _, row := range rows {
		if id, ok := record.AsString(row["run_id"]); ok {
			seen[id] = struct{}{}
		}
	}
	if len(seen) > 1 {
		ids := make([]string, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return nil, "", &AmbiguousError{Prefix: prefix, Matches: ids}
	}

	var runID string
	for id := range seen {
		runID = id
	}
	return rows, runID, nil
}
