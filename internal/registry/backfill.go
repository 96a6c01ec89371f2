package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
	"github.com/ncclementi/tabarena-cuml-poc/internal/store"
)

// experimentIDColumn is the timing-row column the backfill pass fills.
const experimentIDColumn = "stage_metadata.experiment_id"

// BackfillReport summarizes one backfill pass.
type BackfillReport struct {
	Scanned    int `json:"scanned"`
	Missing    int `json:"missing"`
	Backfilled int `json:"backfilled"`
}

// BackfillExperimentIDs is a one-off migration over stored timing rows:
// it derives the experiment identifier from each row's experiment name
// (format: <experiment_id>_<dataset_name>) and writes it into the
// stage_metadata.experiment_id column for rows where it is missing.
// Summaries are never updated in place; only this separate migration
// pass may touch stored timing rows, and only by row identifier.
//
// With dryRun set, the pass reports what it would change without
// writing.
func BackfillExperimentIDs(ctx context.Context, st *store.Store, dryRun bool) (BackfillReport, error) {
	report := BackfillReport{}

	runs, err := st.Load(ctx, RunsTable)
	if err != nil {
		return report, fmt.Errorf("backfill: load runs: %w", err)
	}
	datasetsByRun := map[string]string{}
	for _, row := range runs {
		id, ok := record.AsString(row["run_id"])
		if !ok {
			continue
		}
		if ds, ok := record.AsString(row["datasets"]); ok {
			datasetsByRun[id] = ds
		}
	}

	timings, err := st.LoadNumbered(ctx, TimingsTable)
	if err != nil {
		return report, fmt.Errorf("backfill: load timings: %w", err)
	}
	report.Scanned = len(timings)

	for _, nr := range timings {
		if !record.IsNull(nr.Row[experimentIDColumn]) {
			continue
		}
		report.Missing++

		name, _ := record.AsString(nr.Row["experiment_name"])
		runID, _ := record.AsString(nr.Row["run_id"])
		expID := extractExperimentID(name, datasetsByRun[runID])
		if expID == "" {
			continue
		}

		if !dryRun {
			if err := st.SetCell(ctx, TimingsTable, nr.ID, experimentIDColumn, record.String(expID)); err != nil {
				return report, fmt.Errorf("backfill row %d: %w", nr.ID, err)
			}
		}
		report.Backfilled++
	}

	log.WithFields(log.Fields{
		"scanned":    report.Scanned,
		"backfilled": report.Backfilled,
		"dry_run":    dryRun,
	}).Info("experiment id backfill finished")

	return report, nil
}

// extractExperimentID recovers the experiment identifier from an
// experiment name of the form <experiment_id>_<dataset_name>. The
// serialized dataset list locates the suffix; failing that, a leading
// 32-character hex token is accepted.
func extractExperimentID(experimentName, datasetsJSON string) string {
	if experimentName == "" {
		return ""
	}

	if datasetsJSON != "" {
		var datasets []string
		if err := json.Unmarshal([]byte(datasetsJSON), &datasets); err == nil && len(datasets) > 0 {
			suffix := "_" + datasets[0]
			if strings.HasSuffix(experimentName, suffix) {
				return strings.TrimSuffix(experimentName, suffix)
			}
		}
	}

	head, _, found := strings.Cut(experimentName, "_")
	if found && len(head) == 32 && isHex(head) {
		return head
	}
	return ""
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
