package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// waitDelay bounds how long Run waits for the output pipe to drain after the
// extractor is killed on cancellation.
const waitDelay = 2 * time.Second

// signalGrace is how long Run waits for ctx to be cancelled after the
// extractor dies from a signal. A terminal interrupt reaches the extractor
// and this process together, and the child can exit first.
const signalGrace = 500 * time.Millisecond

// ProfileKind selects which extractor profile a run uses.
type ProfileKind string

const (
	// ProfileRecordings is used for single recordings; the extractor must
	// find a recording identifier in the file tags.
	ProfileRecordings ProfileKind = "recordings"

	// ProfileDatasets is used for dataset items; no identifier is required.
	ProfileDatasets ProfileKind = "datasets"
)

// ParseProfileKind converts a user-supplied name to a ProfileKind.
func ParseProfileKind(s string) (ProfileKind, error) {
	switch ProfileKind(s) {
	case ProfileRecordings, ProfileDatasets:
		return ProfileKind(s), nil
	}
	return "", fmt.Errorf("unknown profile %q: must be %q or %q", s, ProfileRecordings, ProfileDatasets)
}

// Run is the raw outcome of one extractor execution.
type Run struct {
	ExitCode int
	Output   []byte // stdout and stderr, interleaved
}

// Runner executes the extractor for one input file.
type Runner interface {
	Run(ctx context.Context, inputPath, outputPath string, kind ProfileKind) (Run, error)
}

// Invoker runs the extractor binary as a child process.
type Invoker struct {
	Binary   string
	Profiles map[ProfileKind]string
}

// NewInvoker creates an Invoker for binary using the given profile files.
func NewInvoker(binary string, profiles map[ProfileKind]string) *Invoker {
	return &Invoker{Binary: binary, Profiles: profiles}
}

// Run executes the extractor synchronously and waits for it to exit.
//
// A non-zero exit status is reported through Run.ExitCode, not as an error.
// The error return is reserved for a process that could not be started and
// for ctx being cancelled while the extractor was running; in the latter case
// the error wraps ctx.Err(). An extractor killed by a signal reports exit code
// -1 unless ctx is cancelled shortly after, which counts as cancellation.
func (i *Invoker) Run(ctx context.Context, inputPath, outputPath string, kind ProfileKind) (Run, error) {
	profile, ok := i.Profiles[kind]
	if !ok {
		return Run{}, fmt.Errorf("run extractor: no profile configured for %q", kind)
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, i.Binary, inputPath, outputPath, profile)
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Run{Output: out.Bytes()}, fmt.Errorf("run extractor: %w", ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.ExitCode() == -1 && cancelledWithin(ctx, signalGrace) {
				return Run{Output: out.Bytes()}, fmt.Errorf("run extractor: %w", ctx.Err())
			}
			return Run{ExitCode: exitErr.ExitCode(), Output: out.Bytes()}, nil
		}
		return Run{Output: out.Bytes()}, fmt.Errorf("run extractor: %w", err)
	}

	return Run{ExitCode: 0, Output: out.Bytes()}, nil
}

// cancelledWithin reports whether ctx is done within d.
func cancelledWithin(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-t.C:
		return false
	}
}
