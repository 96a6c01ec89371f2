package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ncclementi/tabarena-cuml-poc/internal/registry"
	"github.com/ncclementi/tabarena-cuml-poc/internal/store"
)

// MigrateOptions holds flags for the migrate-experiment-id command.
type MigrateOptions struct {
	*RootOptions
	DryRun bool
}

// NewMigrateCommand creates the migrate-experiment-id command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate-experiment-id",
		Short: "Backfill experiment identifiers on stored timing rows",
		Long: `Derive the experiment identifier from each timing row's
experiment name and fill it into rows recorded before the identifier
column existed.

Examples:
  benchdb migrate-experiment-id --dry-run
  benchdb migrate-experiment-id`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report changes without writing")

	return cmd
}

func runMigrate(opts *MigrateOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	report, err := registry.BackfillExperimentIDs(ctx, st, opts.DryRun)
	if err != nil {
		return WrapExitError(ExitCommandError, "migration failed", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: out, Verbose: opts.Verbose}
	if formatter.JSON() {
		return formatter.Success(report)
	}

	action := "backfilled"
	if opts.DryRun {
		action = "would backfill"
	}
	fmt.Fprintf(out, "Scanned %d timing rows, %d missing an experiment id, %s %d.\n",
		report.Scanned, report.Missing, action, report.Backfilled)
	return nil
}
