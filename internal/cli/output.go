package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dual/doubletake/internal/cache"
	"github.com/dual/doubletake/internal/category"
	"github.com/dual/doubletake/internal/engine"
	"github.com/dual/doubletake/internal/schema"
	"github.com/dual/doubletake/internal/synth"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // successful execution
	ExitFailure      = 1 // scrub/validation failure
	ExitCommandError = 2 // command error (bad paths, bad flags, unreadable input)
)

// ExitError represents an error with a specific exit code.
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

// NewExitError creates a new ExitError with the given code and message.
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

// Error code constants, unified across all CLI commands.
const (
	ErrCodeGeneric         = "E001" // generic/unknown error
	ErrCodeInvalidInput    = "E002" // input is not valid JSON
	ErrCodeSchemaCompile   = "E003" // schema failed to compile
	ErrCodeUnknownCategory = "E004" // category not registered
	ErrCodeNotFound        = "E005" // path not found
	ErrCodeScrubFailed     = "E006" // traversal rejected the input
	ErrCodeWriteFailed     = "E007" // output write error
	ErrCodeCacheFailed     = "E008" // cache or store error
)

// MapScrubError maps library errors onto CLI error codes.
func MapScrubError(err error) string {
	var compileErr *schema.CompileError
	switch {
	case category.IsUnknownCategory(err), category.IsDuplicateCategory(err):
		return ErrCodeUnknownCategory
	case errors.As(err, &compileErr):
		return ErrCodeSchemaCompile
	case engine.IsSchemaMismatch(err), engine.IsMaxDepthExceeded(err), engine.IsCyclicGraph(err):
		return ErrCodeScrubFailed
	case synth.IsTypeMismatch(err):
		return ErrCodeScrubFailed
	case cache.IsExhausted(err):
		return ErrCodeCacheFailed
	default:
		return ErrCodeGeneric
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string          `json:"status"`          // "ok" or "error"
	Data   json.RawMessage `json:"data,omitempty"`  // success payload
	Error  *CLIError       `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessJSON outputs a pre-encoded JSON payload in the configured
// format. In text mode the payload is written as-is with a trailing
// newline.
func (f *OutputFormatter) SuccessJSON(data []byte) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   json.RawMessage(data),
		})
	}
	if _, err := f.Writer.Write(data); err != nil {
		return err
	}
	_, err := fmt.Fprintln(f.Writer)
	return err
}

// Success marshals data and outputs it in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		payload, err := json.Marshal(data)
		if err != nil {
			return err
		}
		return f.SuccessJSON(payload)
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
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

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled. Goes to
// ErrWriter so it never corrupts JSON output on stdout.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
