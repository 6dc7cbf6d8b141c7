package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Negative result (property absent, scenarios failed)
	ExitCommandError = 2 // Command error (bad config, unreachable graph, I/O failure)
)

// Error codes reported in JSON output.
const (
	CodeConfig     = "E_CONFIG"
	CodeGraph      = "E_GRAPH"
	CodeAbsent     = "E_ABSENT"
	CodeInput      = "E_INPUT"
	CodeSync       = "E_SYNC"
	CodeWatch      = "E_WATCH"
	CodeTestFailed = "E_TEST_FAILED"
	CodeUsage      = "E_USAGE"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	ErrCode string // Machine-readable code (Code* constants)
	Message string // Error message
	Err     error  // Underlying error (optional)
	Silent  bool   // The command already reported the failure
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, errCode, message string) *ExitError {
	return &ExitError{Code: code, ErrCode: errCode, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, errCode, message string, err error) *ExitError {
	return &ExitError{Code: code, ErrCode: errCode, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitCommandError if the error is not an
// ExitError (cobra usage errors end up here).
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E_CONFIG", "E_ABSENT", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a result. JSON output wraps data in the response
// envelope; text output prints text verbatim.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	_, err := io.WriteString(f.Writer, text)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	_, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return err
}

// ReportError renders err once, at the top level. JSON errors go to out so
// the envelope stays on stdout; text errors go to errOut.
func ReportError(format string, out, errOut io.Writer, err error) {
	code := CodeUsage
	message := err.Error()
	var details any

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Silent {
			return
		}
		if exitErr.ErrCode != "" {
			code = exitErr.ErrCode
		}
		message = exitErr.Message
		if exitErr.Err != nil {
			details = exitErr.Err.Error()
		}
	}

	if format == "json" {
		f := &OutputFormatter{Format: format, Writer: out}
		_ = f.Error(code, message, details)
		return
	}

	f := &OutputFormatter{Format: "text", Writer: errOut}
	if details != nil {
		message = fmt.Sprintf("%s: %v", message, details)
	}
	_ = f.Error(code, message, nil)
}
