package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the operation ran and failed (backend error, failing self-test)
	ExitCommandError = 2 // bad flags, arguments or configuration
)

// Error codes reported in JSON output.
const (
	ErrCodeConfig   = "E001"
	ErrCodeInput    = "E002"
	ErrCodeBackend  = "E003"
	ErrCodeSelfTest = "E004"
	ErrCodeDeclined = "E005"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err, defaulting to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success writes data. In text mode render draws it; a nil render prints
// data with fmt.Fprintln.
func (f *OutputFormatter) Success(data any, render func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	if render == nil {
		_, err := fmt.Fprintln(f.Writer, data)
		return err
	}
	render(f.Writer)
	return nil
}

func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.errWriter(), "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.errWriter(), "Details: %v\n", details)
	}
	return nil
}

// Warn prints a non-fatal message to the diagnostic writer in text mode.
// JSON output carries warnings in the data payload instead.
func (f *OutputFormatter) Warn(message string) {
	if f.Format == "json" || message == "" {
		return
	}
	fmt.Fprintf(f.errWriter(), "Warning: %s\n", message)
}

// Note prints an informational message to the diagnostic writer in text mode.
func (f *OutputFormatter) Note(message string) {
	if f.Format == "json" || message == "" {
		return
	}
	fmt.Fprintln(f.errWriter(), message)
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// fail reports an error in the configured format and returns the matching
// ExitError for the caller to propagate.
func fail(f *OutputFormatter, exitCode int, code, message string, err error) error {
	exitErr := WrapExitError(exitCode, message, err)
	if outErr := f.Error(code, exitErr.Error(), nil); outErr != nil {
		return outErr
	}
	return exitErr
}
