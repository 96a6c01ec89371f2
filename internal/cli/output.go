package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
	"github.com/ncclementi/tabarena-cuml-poc/internal/registry"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // successful execution
	ExitFailure      = 1 // lookup failure (unknown run, ambiguous prefix, no data)
	ExitCommandError = 2 // command error (database not found, bad arguments)
)

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error // underlying error, optional
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// asExitError maps registry lookup failures to exit-coded errors so the
// shell can tell "run not found" apart from "database broken".
func asExitError(err error, message string) error {
	var notFound *registry.NotFoundError
	var ambiguous *registry.AmbiguousError
	if errors.As(err, &notFound) || errors.As(err, &ambiguous) {
		return WrapExitError(ExitFailure, message, err)
	}
	return WrapExitError(ExitCommandError, message, err)
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool
}

// CLIResponse is the standard JSON envelope for command output.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for JSON responses.
type CLIError struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON reports whether output should be machine readable.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success writes data inside the JSON envelope. Text-mode commands render
// their own output and never call this.
func (f *OutputFormatter) Success(data any) error {
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(CLIResponse{Status: "ok", Data: data})
}

// Failure writes an error in the configured format.
func (f *OutputFormatter) Failure(message string, details any) error {
	if f.JSON() {
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error: %s\n", message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// renderTable writes a left-aligned text table with a header row.
// Column widths fit the widest cell.
func renderTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				fmt.Fprint(w, "  ")
			}
			if i == len(cells)-1 {
				fmt.Fprint(w, cell)
				continue
			}
			fmt.Fprintf(w, "%-*s", widths[i], cell)
		}
		fmt.Fprintln(w)
	}

	writeRow(headers)
	for _, row := range rows {
		writeRow(row)
	}
}

// truncateRunID shortens a run identifier for table display.
func truncateRunID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "..."
}

// truncateValue caps very long cell values in text output.
func truncateValue(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// cellString renders one stored cell for text display. Null cells render
// empty.
func cellString(v record.Value) string {
	switch val := record.Unwrap(v).(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
