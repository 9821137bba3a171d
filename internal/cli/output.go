package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/roach88/abz/internal/pipeline"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Run failure (interrupted, dataset rejected, etc.)
	ExitCommandError = 2 // Command error (invalid paths, bad settings, database unusable, etc.)
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
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`           // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`   // success payload
	Error  *CLIError   `json:"error,omitempty"`  // error details
	RunID  string      `json:"run_id,omitempty"` // ledger run id, for commands that write
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E002", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// SuccessRun outputs a successful result tagged with the ledger run id.
// Text output is the same as Success.
func (f *OutputFormatter) SuccessRun(data interface{}, runID string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
			RunID:  runID,
		})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
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

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
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

// Terminal colours for progress lines.
const (
	colourReset = "\x1b[0m"
	colourRed   = "\x1b[31m"
	colourGreen = "\x1b[32m"
)

// ProgressPrinter writes one line per pipeline event.
//
// In text mode a line is the status tag in a fixed-width column followed by
// the file path; failures carrying extractor output or a server response
// print it below. In JSON mode every event is one JSON object per line.
type ProgressPrinter struct {
	Writer  io.Writer
	Format  string
	Colour  bool
	Verbose bool
}

// NewProgressPrinter creates a printer for w. Colour is enabled only when w
// is a terminal.
func NewProgressPrinter(w io.Writer, format string, verbose bool) *ProgressPrinter {
	return &ProgressPrinter{
		Writer:  w,
		Format:  format,
		Colour:  isTerminal(w),
		Verbose: verbose,
	}
}

// Report implements pipeline.Reporter.
func (p *ProgressPrinter) Report(e pipeline.Event) {
	if p.Format == "json" {
		_ = json.NewEncoder(p.Writer).Encode(e)
		return
	}

	tag := e.Outcome.Tag(e.ExitCode)
	if p.Colour {
		colour := colourGreen
		switch {
		case e.Outcome == pipeline.OutcomeNoOutput:
			colour = colourReset
		case e.Outcome.Failed():
			colour = colourRed
		}
		fmt.Fprintf(p.Writer, "%s[%-10s]%s %s\n", colour, tag, colourReset, e.Path)
	} else {
		fmt.Fprintf(p.Writer, "[%-10s] %s\n", tag, e.Path)
	}
	if e.ItemID != "" && p.Verbose {
		fmt.Fprintf(p.Writer, "    item %s\n", e.ItemID)
	}

	if e.Detail == "" || !e.Outcome.Failed() {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(e.Detail, "\n"), "\n") {
		fmt.Fprintf(p.Writer, "    %s\n", line)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
