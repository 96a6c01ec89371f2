package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunsText(t *testing.T) {
	db := seedDatabase(t)

	out, err := execute(t, "runs", "--db", db)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "runs_text", []byte(out))
}

func TestRunsEmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")

	out, err := execute(t, "runs", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No benchmark runs found.\n", out)
}

func TestRunsExperimentFilter(t *testing.T) {
	db := seedDatabase(t)

	out, err := execute(t, "runs", "--db", db, "--experiment", "exp_credit_g")
	require.NoError(t, err)
	assert.Contains(t, out, "exp_credit_g")
	assert.NotContains(t, out, "exp_anneal")
}

func TestRunsLimit(t *testing.T) {
	db := seedDatabase(t)

	out, err := execute(t, "runs", "--db", db, "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "... showing 1 of 3 runs")
}

func TestRunsJSON(t *testing.T) {
	db := seedDatabase(t)

	out, err := execute(t, "runs", "--db", db, "--format", "json")
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)

	rows, ok := response.Data.([]any)
	require.True(t, ok)
	assert.Len(t, rows, 3)

	first, ok := rows[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ab12cd34ab12cd34ab12cd34ab12cd34", first["run_id"])
}
