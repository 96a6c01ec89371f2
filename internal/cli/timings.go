package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
	"github.com/ncclementi/tabarena-cuml-poc/internal/registry"
	"github.com/ncclementi/tabarena-cuml-poc/internal/store"
)

// timingsDisplayColumns are the timing columns shown in text output.
var timingsDisplayColumns = []string{"stage", "time_ms", "time_s", "timestamp"}

// NewTimingsCommand creates the timings command.
func NewTimingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timings <run-id-prefix>",
		Short: "Show timing breakdown for a specific run",
		Long: `Show the per-stage timing breakdown of one run.

The run identifier may be a unique prefix; a prefix matching several
runs lists the candidates instead of picking one.

Examples:
  benchdb timings ab12
  benchdb timings ab12cd34 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimings(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runTimings(opts *RootOptions, cmd *cobra.Command, prefix string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	rows, runID, err := registry.TimingsForRun(ctx, st, prefix)
	if err != nil {
		return asExitError(err, "failed to resolve run")
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: out, Verbose: opts.Verbose}
	if formatter.JSON() {
		data := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			data = append(data, row.Unflatten())
		}
		return formatter.Success(map[string]any{"run_id": runID, "timings": data})
	}

	experiment := ""
	if len(rows) > 0 {
		experiment, _ = record.AsString(rows[0]["experiment_name"])
	}

	fmt.Fprintf(out, "Timings for run: %s\n", runID)
	fmt.Fprintf(out, "Experiment: %s\n", experiment)
	fmt.Fprintln(out, "------------------------------------------------------------")

	columns := presentColumns(rows, timingsDisplayColumns)
	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(columns))
		for _, col := range columns {
			cells = append(cells, cellString(row[col]))
		}
		table = append(table, cells)
	}
	renderTable(out, columns, table)
	return nil
}
