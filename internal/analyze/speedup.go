// Package analyze computes aggregate statistics over persisted benchmark
// runs. It joins run summaries with per-stage timing rows on run identity,
// groups by dataset and accelerator count, and derives median durations
// and GPU speedup ratios against a zero-accelerator baseline.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
	"github.com/ncclementi/tabarena-cuml-poc/internal/registry"
	"github.com/ncclementi/tabarena-cuml-poc/internal/store"
)

// DefaultStage is the stage aggregated when the caller names none.
const DefaultStage = "model_fit"

// Stage metadata columns consulted during grouping and filtering.
const (
	gpuCountColumn = "stage_metadata.num_gpus"
	profileColumn  = "stage_metadata.profile"
	// Environment fallback when a timing row carries no accelerator count.
	cudaCountColumn = "cuda.cuda_device_count"
)

// Options control one speedup aggregation.
type Options struct {
	// Stage selects the timing rows to aggregate. Empty means DefaultStage.
	Stage string
	// Experiment restricts the aggregation to runs of one experiment name.
	Experiment string
	// IncludeProfiled keeps runs whose stage metadata flags them as
	// executed under a profiler. Profiler overhead skews timings, so
	// such runs are excluded unless asked for.
	IncludeProfiled bool
	// BaselineGPUs is the accelerator count of the reference group.
	BaselineGPUs int64
}

// Row is one (dataset, accelerator count) group compared against its
// dataset's baseline group.
type Row struct {
	Dataset      string   `json:"dataset"`
	GPUCount     int64    `json:"gpu_count"`
	Samples      int      `json:"samples"`
	MedianS      float64  `json:"median_s"`
	BaselineS    float64  `json:"baseline_s"`
	Speedup      float64  `json:"speedup"`
	TrainMedianS *float64 `json:"train_median_s,omitempty"`
	InferMedianS *float64 `json:"infer_median_s,omitempty"`
}

// Report is the outcome of one aggregation. An empty Rows slice is not an
// error; Reason then explains why there is nothing to show.
type Report struct {
	Stage  string `json:"stage"`
	Rows   []Row  `json:"rows"`
	Reason string `json:"reason,omitempty"`
}

// NoData reports whether the aggregation produced no groups.
func (r Report) NoData() bool {
	return len(r.Rows) == 0
}

// sample is one timing observation resolved to its grouping key.
type sample struct {
	dataset  string
	gpuCount int64
	runID    string
	seconds  float64
}

type groupKey struct {
	dataset  string
	gpuCount int64
}

// Speedup aggregates stored timing rows for one stage into per-group
// median durations and speedup ratios against the baseline accelerator
// count. Datasets with no baseline group are omitted from the output, and
// baseline groups themselves are not reported since their ratio is 1.
//
// Rows whose serialized payloads cannot be decoded are skipped with a
// warning rather than failing the aggregation; only store errors abort.
func Speedup(ctx context.Context, st *store.Store, opts Options) (Report, error) {
	stage := opts.Stage
	if stage == "" {
		stage = DefaultStage
	}
	report := Report{Stage: stage, Rows: []Row{}}

	summaries, err := loadSummaries(ctx, st, opts.Experiment)
	if err != nil {
		return report, err
	}

	timings, err := st.Load(ctx, registry.TimingsTable, store.Equal("stage", stage))
	if err != nil {
		return report, fmt.Errorf("speedup: load timings: %w", err)
	}
	if len(timings) == 0 {
		report.Reason = fmt.Sprintf("no timing rows recorded for stage %q", stage)
		return report, nil
	}

	samples := collectSamples(timings, summaries, opts)
	if len(samples) == 0 {
		report.Reason = fmt.Sprintf("all %d timing rows for stage %q were excluded by filters", len(timings), stage)
		return report, nil
	}

	report.Rows = groupAndCompare(samples, summaries, opts.BaselineGPUs)
	if len(report.Rows) == 0 {
		report.Reason = fmt.Sprintf("no dataset has both a baseline group (%d accelerators) and a comparison group", opts.BaselineGPUs)
	}
	return report, nil
}

// runSummary is the per-run slice of benchmark_runs the aggregation needs.
type runSummary struct {
	dataset   string
	cudaCount int64
	hasCUDA   bool
	results   string
}

func loadSummaries(ctx context.Context, st *store.Store, experiment string) (map[string]runSummary, error) {
	rows, err := registry.Runs(ctx, st, experiment)
	if err != nil {
		return nil, fmt.Errorf("speedup: load runs: %w", err)
	}

	summaries := make(map[string]runSummary, len(rows))
	for _, row := range rows {
		runID, ok := record.AsString(row["run_id"])
		if !ok {
			log.Warn("run summary without run_id skipped")
			continue
		}

		s := runSummary{}
		if raw, ok := record.AsString(row["datasets"]); ok {
			var datasets []string
			if err := json.Unmarshal([]byte(raw), &datasets); err != nil {
				log.WithField("run_id", runID).WithError(err).Warn("malformed dataset list skipped")
			} else if len(datasets) > 0 {
				s.dataset = datasets[0]
			}
		}
		if n, ok := record.AsInt(row[cudaCountColumn]); ok {
			s.cudaCount = n
			s.hasCUDA = true
		}
		if raw, ok := record.AsString(row["results_json"]); ok {
			s.results = raw
		}
		summaries[runID] = s
	}
	return summaries, nil
}

// collectSamples resolves each timing row to a (dataset, gpu count)
// observation, applying the profiled-run filter and the environment
// fallback for accelerator counts. Rows that cannot be resolved are
// skipped with a warning.
func collectSamples(timings []record.Row, summaries map[string]runSummary, opts Options) []sample {
	samples := make([]sample, 0, len(timings))
	for _, row := range timings {
		runID, _ := record.AsString(row["run_id"])

		// Missing flag means the run was not profiled.
		if profiled, ok := record.AsBool(row[profileColumn]); ok && profiled && !opts.IncludeProfiled {
			continue
		}

		summary, ok := summaries[runID]
		if !ok {
			if opts.Experiment != "" {
				// The run belongs to another experiment.
				continue
			}
			// Timing rows with no summary are a tolerated partial-write
			// state, but without a summary there is no dataset to group by.
			log.WithField("run_id", runID).Warn("timing row has no run summary, skipped")
			continue
		}
		if summary.dataset == "" {
			log.WithField("run_id", runID).Warn("run has no dataset, skipped")
			continue
		}

		seconds, ok := record.AsFloat(row["time_s"])
		if !ok {
			log.WithField("run_id", runID).Warn("timing row without numeric time_s, skipped")
			continue
		}

		gpus, ok := record.AsInt(row[gpuCountColumn])
		if !ok {
			// Explicit stage metadata wins; the environment count only
			// fills genuinely missing values.
			if !summary.hasCUDA {
				log.WithField("run_id", runID).Warn("no accelerator count on row or run, skipped")
				continue
			}
			gpus = summary.cudaCount
		}

		samples = append(samples, sample{
			dataset:  summary.dataset,
			gpuCount: gpus,
			runID:    runID,
			seconds:  seconds,
		})
	}
	return samples
}

func groupAndCompare(samples []sample, summaries map[string]runSummary, baselineGPUs int64) []Row {
	groups := map[groupKey][]sample{}
	for _, s := range samples {
		key := groupKey{dataset: s.dataset, gpuCount: s.gpuCount}
		groups[key] = append(groups[key], s)
	}

	baselines := map[string]float64{}
	for key, members := range groups {
		if key.gpuCount == baselineGPUs {
			baselines[key.dataset] = median(durations(members))
		}
	}

	rows := []Row{}
	for key, members := range groups {
		if key.gpuCount == baselineGPUs {
			continue
		}
		baseline, ok := baselines[key.dataset]
		if !ok {
			continue
		}

		med := median(durations(members))
		row := Row{
			Dataset:   key.dataset,
			GPUCount:  key.gpuCount,
			Samples:   len(members),
			MedianS:   med,
			BaselineS: baseline,
		}
		if med > 0 {
			row.Speedup = baseline / med
		}
		row.TrainMedianS = payloadMedian(members, summaries, "train_time_s")
		row.InferMedianS = payloadMedian(members, summaries, "infer_time_s")
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Dataset != rows[j].Dataset {
			return rows[i].Dataset < rows[j].Dataset
		}
		return rows[i].GPUCount < rows[j].GPUCount
	})
	return rows
}

func durations(members []sample) []float64 {
	out := make([]float64, len(members))
	for i, m := range members {
		out[i] = m.seconds
	}
	return out
}

// payloadMedian computes the median of one per-record timing field from
// the results payloads of the group's distinct runs. A nil return means
// no run in the group carried a parseable value for the field.
func payloadMedian(members []sample, summaries map[string]runSummary, field string) *float64 {
	seen := map[string]struct{}{}
	var values []float64
	for _, m := range members {
		if _, dup := seen[m.runID]; dup {
			continue
		}
		seen[m.runID] = struct{}{}

		summary, ok := summaries[m.runID]
		if !ok || summary.results == "" {
			continue
		}
		vals, err := payloadField(summary.results, field)
		if err != nil {
			log.WithField("run_id", m.runID).WithError(err).Warn("malformed results payload skipped")
			continue
		}
		values = append(values, vals...)
	}
	if len(values) == 0 {
		return nil
	}
	med := median(values)
	return &med
}

// payloadField extracts every numeric value for field from a serialized
// results payload. Two shapes are accepted: a column-oriented mapping of
// field name to value list, and a list of per-record mappings.
func payloadField(raw, field string) ([]float64, error) {
	var columns map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &columns); err == nil {
		col, ok := columns[field]
		if !ok {
			return nil, nil
		}
		return numbersFrom(col)
	}

	var records []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decode results payload: %w", err)
	}
	var values []float64
	for _, rec := range records {
		col, ok := rec[field]
		if !ok {
			continue
		}
		vals, err := numbersFrom(col)
		if err != nil {
			return nil, err
		}
		values = append(values, vals...)
	}
	return values, nil
}

func numbersFrom(raw json.RawMessage) ([]float64, error) {
	var one float64
	if err := json.Unmarshal(raw, &one); err == nil {
		return []float64{one}, nil
	}
	var many []float64
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("field is neither number nor number list: %w", err)
	}
	return many, nil
}
