package meta

import (
	"context"
	"encoding/csv"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
)

// collectCUDA probes GPUs through nvidia-smi. A missing binary or any
// query failure reports cuda_available=false plus a cuda_error key; it
// never aborts collection.
func (c *Collector) collectCUDA(ctx context.Context) record.Row {
	row := record.Row{}

	names, err := c.queryCudaDeviceNames(ctx)
	if err != nil {
		row.Set("cuda_available", false)
		row.Set("cuda_device_count", 0)
		row.Set("cuda_device_names", []string{})
		row.Set("cuda_error", err.Error())
		return row
	}

	row.Set("cuda_available", len(names) > 0)
	row.Set("cuda_device_count", len(names))
	row.Set("cuda_device_names", names)

	if version, err := c.queryCudaDriverVersion(ctx); err != nil {
		row.Set("cuda_driver_version_error", err.Error())
	} else {
		row.Set("cuda_driver_version", version)
	}

	return row
}

func (c *Collector) queryCudaDeviceNames(ctx context.Context) ([]string, error) {
	out, err := c.runCommand(ctx, "nvidia-smi", "--query-gpu=name", "--format=csv,noheader")
	if err != nil {
		return nil, err
	}

	names := []string{}
	r := csv.NewReader(strings.NewReader(out))
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parsing nvidia-smi output as csv")
	}
	for _, rec := range records {
		if len(rec) == 0 {
			continue
		}
		names = append(names, strings.TrimSpace(rec[0]))
	}
	return names, nil
}

func (c *Collector) queryCudaDriverVersion(ctx context.Context) (string, error) {
	out, err := c.runCommand(ctx, "nvidia-smi", "--query-gpu=driver_version", "--format=csv,noheader")
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(out)
	if line == "" {
		return "", errors.New("empty nvidia-smi driver version")
	}
	// Multi-GPU hosts repeat the version once per device.
	return strings.TrimSpace(strings.SplitN(line, "\n", 2)[0]), nil
}

// runCommand executes an external command with the collector's timeout
// ceiling applied on top of the caller's context.
func (c *Collector) runCommand(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	// #nosec G204
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", errors.Wrapf(err, "running %s", name)
	}
	return string(out), nil
}
