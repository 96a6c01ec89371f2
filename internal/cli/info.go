package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
	"github.com/ncclementi/tabarena-cuml-poc/internal/registry"
	"github.com/ncclementi/tabarena-cuml-poc/internal/store"
)

// InfoOptions holds flags for the info command.
type InfoOptions struct {
	*RootOptions
	Category string
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InfoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "info <run-id-prefix>",
		Short: "Show full metadata for a specific run",
		Long: `Show the full environment metadata captured for one run,
grouped by category prefix (system, cuda, runtime, git).

Examples:
  benchdb info ab12
  benchdb info ab12 --category cuda`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Category, "category", "c", "", "filter by category (system, cuda, runtime, git)")

	return cmd
}

func runInfo(opts *InfoOptions, cmd *cobra.Command, prefix string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	row, err := registry.FindRun(ctx, st, prefix)
	if err != nil {
		return asExitError(err, "failed to resolve run")
	}

	if opts.Category != "" {
		row = filterCategory(row, opts.Category)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: out, Verbose: opts.Verbose}
	if formatter.JSON() {
		return formatter.Success(row.Unflatten())
	}

	runID, _ := record.AsString(row["run_id"])
	experiment, _ := record.AsString(row["experiment_name"])
	fmt.Fprintf(out, "Run ID: %s\n", runID)
	fmt.Fprintf(out, "Experiment: %s\n", experiment)
	fmt.Fprintln(out, "============================================================")

	for _, group := range groupByCategory(row) {
		fmt.Fprintf(out, "\n[%s]\n", group.name)
		for _, entry := range group.entries {
			fmt.Fprintf(out, "  %s: %s\n", entry.key, truncateValue(entry.value, 100))
		}
	}
	return nil
}

// filterCategory keeps the run identity plus the keys of one dotted
// category.
func filterCategory(row record.Row, category string) record.Row {
	prefix := category + "."
	out := record.Row{}
	for k, v := range row {
		if strings.HasPrefix(k, prefix) || k == "run_id" || k == "experiment_name" {
			out[k] = v
		}
	}
	return out
}

type infoEntry struct {
	key   string
	value string
}

type infoGroup struct {
	name    string
	entries []infoEntry
}

// groupByCategory buckets row keys by their dotted prefix. Keys without a
// prefix land in "general". Groups and entries are sorted by name.
func groupByCategory(row record.Row) []infoGroup {
	buckets := map[string][]infoEntry{}
	for _, key := range row.Columns() {
		name := "general"
		entryKey := key
		if prefix, rest, found := strings.Cut(key, "."); found {
			name = prefix
			entryKey = rest
		}
		buckets[name] = append(buckets[name], infoEntry{key: entryKey, value: cellString(row[key])})
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]infoGroup, 0, len(names))
	for _, name := range names {
		groups = append(groups, infoGroup{name: name, entries: buckets[name]})
	}
	return groups
}
