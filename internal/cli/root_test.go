package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootInvalidFormat(t *testing.T) {
	_, err := execute(t, "tables", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootConfigSetsDatabase(t *testing.T) {
	db := seedDatabase(t)

	cfgPath := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database_path: "+db+"\n"), 0o644))

	out, err := execute(t, "tables", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "benchmark_runs")
}

func TestRootExplicitDatabaseBeatsConfig(t *testing.T) {
	db := seedDatabase(t)
	empty := filepath.Join(t.TempDir(), "empty.db")

	cfgPath := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database_path: "+db+"\n"), 0o644))

	out, err := execute(t, "tables", "--config", cfgPath, "--db", empty)
	require.NoError(t, err)
	assert.Equal(t, "No tables found in database.\n", out)
}

func TestRootInvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("databse_path: typo.db\n"), 0o644))

	_, err := execute(t, "tables", "--config", cfgPath)
	require.Error(t, err)
}
