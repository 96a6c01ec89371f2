package meta

import (
	"os/user"
	"runtime"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"

	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
)

// collectSystem gathers OS, architecture, CPU, and memory facts.
// Individual probe failures become *_error keys; the row is always
// populated with whatever succeeded.
func collectSystem() record.Row {
	row := record.Row{}
	row.Set("os", runtime.GOOS)
	row.Set("architecture", runtime.GOARCH)

	if info, err := host.Info(); err != nil {
		row.Set("host_error", err.Error())
	} else {
		row.Set("hostname", info.Hostname)
		row.Set("os_release", info.Platform)
		row.Set("os_version", info.PlatformVersion)
		row.Set("kernel_version", info.KernelVersion)
	}

	if u, err := user.Current(); err != nil {
		row.Set("user", nil)
	} else {
		row.Set("user", u.Username)
	}

	if logical, err := cpu.Counts(true); err != nil {
		row.Set("cpu_count_error", err.Error())
	} else {
		row.Set("cpu_count", logical)
	}
	if physical, err := cpu.Counts(false); err == nil {
		row.Set("cpu_count_physical", physical)
	}

	if info, err := cpu.Info(); err == nil && len(info) > 0 {
		row.Set("processor", info[0].ModelName)
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		row.Set("memory_error", err.Error())
	} else {
		row.Set("total_ram_bytes", int64(vm.Total))
		row.Set("available_ram_bytes", int64(vm.Available))
	}

	return row
}
