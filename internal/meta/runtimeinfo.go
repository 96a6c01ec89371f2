package meta

import (
	"context"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
)

// collectRuntime gathers Go toolchain facts and a dependency snapshot.
// The snapshot comes from the binary's embedded build info when present,
// with `go version -m` as a bounded-timeout fallback for binaries built
// without module info. On timeout or failure the modules key is omitted
// rather than failing collection.
func (c *Collector) collectRuntime(ctx context.Context) record.Row {
	row := record.Row{}
	row.Set("go_version", runtime.Version())
	row.Set("compiler", runtime.Compiler)
	row.Set("num_cpu", runtime.NumCPU())

	exe, err := os.Executable()
	if err == nil {
		row.Set("executable", exe)
	}

	if modules := dependencySnapshot(); modules != "" {
		row.Set("modules", modules)
	} else if exe != "" {
		if out, err := c.runCommand(ctx, "go", "version", "-m", exe); err == nil {
			row.Set("modules", strings.TrimSpace(out))
		}
	}

	return row
}

// dependencySnapshot renders the embedded module list one dependency per
// line, the counterpart of a pip freeze capture.
func dependencySnapshot() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	var b strings.Builder
	b.WriteString(info.Main.Path)
	if info.Main.Version != "" {
		b.WriteString(" ")
		b.WriteString(info.Main.Version)
	}
	for _, dep := range info.Deps {
		b.WriteString("\n")
		b.WriteString(dep.Path)
		b.WriteString(" ")
		b.WriteString(dep.Version)
	}
	return b.String()
}
