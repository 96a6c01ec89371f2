package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
	"github.com/ncclementi/tabarena-cuml-poc/internal/registry"
	"github.com/ncclementi/tabarena-cuml-poc/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Experiment string
	Limit      int
}

// runsDisplayColumns are the summary columns shown in text output, in
// order, when present in the data.
var runsDisplayColumns = []string{
	"run_id",
	"experiment_name",
	"execution_datetime",
	"total_time_s",
	"datasets",
	"system.hostname",
	"cuda.cuda_device_count",
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List benchmark runs with summary info",
		Long: `List recorded benchmark runs with key summary columns.

Examples:
  benchdb runs
  benchdb runs --experiment rf_model_gpu -n 50
  benchdb runs --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Experiment, "experiment", "e", "", "filter by experiment name")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "max rows to show")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	rows, err := registry.Runs(ctx, st, opts.Experiment)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load runs", err)
	}

	total := len(rows)
	if opts.Limit > 0 && total > opts.Limit {
		rows = rows[:opts.Limit]
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: out, Verbose: opts.Verbose}
	if formatter.JSON() {
		data := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			data = append(data, row.Unflatten())
		}
		return formatter.Success(data)
	}

	if total == 0 {
		fmt.Fprintln(out, "No benchmark runs found.")
		return nil
	}

	columns := presentColumns(rows, runsDisplayColumns)
	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(columns))
		for _, col := range columns {
			cell := cellString(row[col])
			if col == "run_id" {
				cell = truncateRunID(cell)
			}
			cells = append(cells, truncateValue(cell, 40))
		}
		table = append(table, cells)
	}
	renderTable(out, columns, table)

	if total > len(rows) {
		fmt.Fprintf(out, "\n... showing %d of %d runs (use -n to show more)\n", len(rows), total)
	}
	return nil
}

// presentColumns keeps the wanted columns that exist in at least one row,
// preserving the wanted order.
func presentColumns(rows []record.Row, wanted []string) []string {
	present := []string{}
	for _, col := range wanted {
		for _, row := range rows {
			if _, ok := row[col]; ok {
				present = append(present, col)
				break
			}
		}
	}
	return present
}
