package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ncclementi/tabarena-cuml-poc/internal/analyze"
	"github.com/ncclementi/tabarena-cuml-poc/internal/store"
)

// SpeedupOptions holds flags for the speedup command.
type SpeedupOptions struct {
	*RootOptions
	Stage           string
	Experiment      string
	IncludeProfiled bool
	BaselineGPUs    int64
}

// NewSpeedupCommand creates the speedup command.
func NewSpeedupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SpeedupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "speedup",
		Short: "Compute GPU speedup ratios against the CPU baseline",
		Long: `Aggregate stored stage timings into per-dataset median durations
and speedup ratios against the baseline accelerator count.

Runs executed under a profiler are excluded unless --include-profiled
is given. Datasets without a baseline group are omitted.

Examples:
  benchdb speedup
  benchdb speedup --stage model_fit --experiment rf_model_gpu
  benchdb speedup --include-profiled --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpeedup(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Stage, "stage", analyze.DefaultStage, "stage label to aggregate")
	cmd.Flags().StringVarP(&opts.Experiment, "experiment", "e", "", "filter by experiment name")
	cmd.Flags().BoolVar(&opts.IncludeProfiled, "include-profiled", false, "include runs executed under a profiler")
	cmd.Flags().Int64Var(&opts.BaselineGPUs, "baseline-gpus", 0, "accelerator count of the baseline group")

	return cmd
}

func runSpeedup(opts *SpeedupOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	report, err := analyze.Speedup(ctx, st, analyze.Options{
		Stage:           opts.Stage,
		Experiment:      opts.Experiment,
		IncludeProfiled: opts.IncludeProfiled,
		BaselineGPUs:    opts.BaselineGPUs,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compute speedup", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: out, Verbose: opts.Verbose}
	if formatter.JSON() {
		return formatter.Success(report)
	}

	if report.NoData() {
		fmt.Fprintf(out, "No data: %s\n", report.Reason)
		return nil
	}

	headers := []string{"dataset", "gpus", "samples", "median_s", "baseline_s", "speedup"}
	withTrain := false
	withInfer := false
	for _, row := range report.Rows {
		withTrain = withTrain || row.TrainMedianS != nil
		withInfer = withInfer || row.InferMedianS != nil
	}
	if withTrain {
		headers = append(headers, "train_median_s")
	}
	if withInfer {
		headers = append(headers, "infer_median_s")
	}

	table := make([][]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		cells := []string{
			row.Dataset,
			fmt.Sprintf("%d", row.GPUCount),
			fmt.Sprintf("%d", row.Samples),
			fmt.Sprintf("%.3f", row.MedianS),
			fmt.Sprintf("%.3f", row.BaselineS),
			fmt.Sprintf("%.2fx", row.Speedup),
		}
		if withTrain {
			cells = append(cells, optionalSeconds(row.TrainMedianS))
		}
		if withInfer {
			cells = append(cells, optionalSeconds(row.InferMedianS))
		}
		table = append(table, cells)
	}

	fmt.Fprintf(out, "Speedup for stage %q (baseline: %d accelerators)\n\n", report.Stage, opts.BaselineGPUs)
	renderTable(out, headers, table)
	return nil
}

func optionalSeconds(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *v)
}
