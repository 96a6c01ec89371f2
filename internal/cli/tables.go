package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ncclementi/tabarena-cuml-poc/internal/store"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tables",
		Short:         "List all tables in the database",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(rootOpts, cmd)
		},
	}
	return cmd
}

func runTables(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	tables, err := st.Tables(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list tables", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: out, Verbose: opts.Verbose}
	if formatter.JSON() {
		return formatter.Success(tables)
	}

	if len(tables) == 0 {
		fmt.Fprintln(out, "No tables found in database.")
		return nil
	}

	fmt.Fprintln(out, "Tables in database:")
	for _, table := range tables {
		fmt.Fprintf(out, "  - %s (%d rows)\n", table.Name, table.Rows)
	}
	return nil
}
