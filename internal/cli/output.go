package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/roach88/bir/internal/codec"
	"github.com/roach88/bir/internal/compiler"
	"github.com/roach88/bir/internal/store"
	"github.com/roach88/bir/internal/target"
	"github.com/roach88/bir/internal/vm"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Program fault, failed scenario or invalid program
	ExitCommandError = 2 // Command error (bad paths, unreadable module, database errors)
)

// Error codes reported in CLIError.Code.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeNotFound      = "E002" // Path or record not found
	ErrCodeCompile       = "E003" // CUE program did not compile
	ErrCodeFormat        = "E004" // Module bytes could not be decoded
	ErrCodeUnknownTarget = "E005" // No target registered under the name
	ErrCodeBuildFailed   = "E006" // Backend Build failed
	ErrCodeStore         = "E007" // Database error
	ErrCodeBadArgs       = "E008" // Call arguments are not words
	ErrCodeFault         = "E009" // Program faulted
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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
// Returns ExitSuccess for nil and ExitFailure if the error is not an ExitError.
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

// classify maps an error to its CLIError code and exit code.
func classify(err error) (string, int) {
	var unknown *target.UnknownTargetError
	switch {
	case compiler.IsCompileError(err):
		return ErrCodeCompile, ExitFailure
	case codec.IsFormatError(err), codec.IsCorruptData(err):
		return ErrCodeFormat, ExitCommandError
	case errors.As(err, &unknown):
		return ErrCodeUnknownTarget, ExitCommandError
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, store.ErrNotFound):
		return ErrCodeNotFound, ExitCommandError
	case vm.FaultCodeOf(err) != "":
		return ErrCodeFault, ExitFailure
	}
	return ErrCodeGeneric, ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
	NoColor   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
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

	fmt.Fprintf(f.Writer, "%s Error [%s]: %s\n", f.Mark(false), code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err through Error and returns it as an *ExitError with the
// exit code classify picks.
func (f *OutputFormatter) Fail(message string, err error) error {
	code, exit := classify(err)
	_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), nil)
	return WrapExitError(exit, message, err)
}

// Mark returns a check mark for ok and a cross otherwise, coloured when
// Writer is a terminal and colour is not disabled.
func (f *OutputFormatter) Mark(ok bool) string {
	sym, attr := "✓", color.FgGreen
	if !ok {
		sym, attr = "✗", color.FgRed
	}
	c := color.New(attr)
	if f.NoColor || !isTerminal(f.Writer) {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c.Sprint(sym)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
