package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
	"github.com/ncclementi/tabarena-cuml-poc/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Limit int
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <table>",
		Short: "Show raw data from a specific table",
		Long: `Dump raw rows from one table, for inspecting columns the
other commands do not surface.

Examples:
  benchdb query benchmark_timings
  benchdb query benchmark_runs -n 3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd, args[0])
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "max rows to show")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command, table string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	rows, err := st.Load(ctx, table)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to query table %q", table), err)
	}
	if opts.Limit > 0 && len(rows) > opts.Limit {
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

	if len(rows) == 0 {
		fmt.Fprintf(out, "Table %q is empty.\n", table)
		return nil
	}

	columns := record.ColumnUnion(rows)
	display := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(columns))
		for _, col := range columns {
			cells = append(cells, truncateValue(cellString(row[col]), 30))
		}
		display = append(display, cells)
	}
	renderTable(out, columns, display)

	fmt.Fprintf(out, "\nColumns: %s\n", strings.Join(columns, ", "))
	return nil
}
