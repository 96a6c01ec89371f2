// Package main is the benchdb command line tool for inspecting and
// analyzing benchmark results.
//
// Examples:
//
//	go run ./cmd/benchdb runs --db benchmark_results.db
//	go run ./cmd/benchdb timings ab12cd34
//	go run ./cmd/benchdb speedup --stage model_fit
package main

import (
	"fmt"
	"os"

	"github.com/ncclementi/tabarena-cuml-poc/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
