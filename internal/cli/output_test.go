package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncclementi/tabarena-cuml-poc/internal/registry"
)

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "boom")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain error")))

	wrapped := fmt.Errorf("context: %w", NewExitError(ExitCommandError, "inner"))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}

func TestExitErrorUnwrap(t *testing.T) {
	inner := errors.New("root cause")
	err := WrapExitError(ExitCommandError, "failed", inner)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "failed")
	assert.Contains(t, err.Error(), "root cause")
}

func TestAsExitErrorMapsLookupFailures(t *testing.T) {
	notFound := &registry.NotFoundError{What: "run", Key: "zz"}
	assert.Equal(t, ExitFailure, GetExitCode(asExitError(notFound, "resolve")))

	ambiguous := &registry.AmbiguousError{Prefix: "ab", Matches: []string{"ab1", "ab2"}}
	assert.Equal(t, ExitFailure, GetExitCode(asExitError(ambiguous, "resolve")))

	assert.Equal(t, ExitCommandError, GetExitCode(asExitError(errors.New("io"), "resolve")))
}

func TestFormatterSuccessEnvelope(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, f.Success(map[string]any{"n": 1}))

	var response CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Nil(t, response.Error)
}

func TestFormatterFailureText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}
	require.NoError(t, f.Failure("something broke", nil))
	assert.Equal(t, "Error: something broke\n", buf.String())
}

func TestRenderTable(t *testing.T) {
	buf := &bytes.Buffer{}
	renderTable(buf, []string{"name", "count"}, [][]string{
		{"alpha", "1"},
		{"b", "20"},
	})
	assert.Equal(t, "name   count\nalpha  1\nb      20\n", buf.String())
}

func TestTruncateHelpers(t *testing.T) {
	assert.Equal(t, "short", truncateRunID("short"))
	assert.Equal(t, "ab12cd34ab12...", truncateRunID("ab12cd34ab12cd34"))
	assert.Equal(t, "abc", truncateValue("abc", 5))
	assert.Equal(t, "abcde...", truncateValue("abcdefgh", 5))
}
