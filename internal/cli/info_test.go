package cli

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoCategoryFilter(t *testing.T) {
	db := seedDatabase(t)

	out, err := execute(t, "info", "cd00", "--db", db, "--category", "cuda")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "info_cuda", []byte(out))
}

func TestInfoFullListing(t *testing.T) {
	db := seedDatabase(t)

	out, err := execute(t, "info", "ab12", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Run ID: ab12cd34ab12cd34ab12cd34ab12cd34")
	assert.Contains(t, out, "[cuda]")
	assert.Contains(t, out, "[system]")
	assert.Contains(t, out, "hostname: bench-host")
}

func TestInfoAmbiguousPrefix(t *testing.T) {
	db := seedDatabase(t)

	_, err := execute(t, "info", "ab", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestInfoJSON(t *testing.T) {
	db := seedDatabase(t)

	out, err := execute(t, "info", "cd00", "--db", db, "--format", "json")
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	data, ok := response.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "exp_credit_g", data["experiment_name"])
}
