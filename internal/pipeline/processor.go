package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/abz/internal/extractor"
	"github.com/roach88/abz/internal/features"
	"github.com/roach88/abz/internal/submit"
)

// ReasonMalformed is recorded for files whose extractor output is not JSON.
const ReasonMalformed = "json"

// Ledger is the processed-file record consulted and appended by the pipeline.
type Ledger interface {
	Contains(ctx context.Context, path string) (bool, error)
	Record(ctx context.Context, path, reason string) error
}

// Submitter sends documents to the submission server.
type Submitter interface {
	SubmitFeatures(ctx context.Context, recordingID string, doc []byte) error
	SubmitItem(ctx context.Context, doc []byte) (string, error)
	SubmitDataset(ctx context.Context, m *submit.Manifest) (*submit.DatasetResponse, error)
}

// Processor runs files through extraction and submission.
type Processor struct {
	runner    extractor.Runner
	ledger    Ledger
	submitter Submitter
	reporter  Reporter
	allowed   func(path string) bool
	tempDir   string
}

// Option configures a Processor.
type Option func(*Processor)

// WithReporter sets the progress reporter. Default: discard.
func WithReporter(r Reporter) Option {
	return func(p *Processor) {
		p.reporter = r
	}
}

// WithFilter sets the predicate selecting files during directory walks.
// Default: every regular file.
func WithFilter(allowed func(path string) bool) Option {
	return func(p *Processor) {
		p.allowed = allowed
	}
}

// WithTempDir sets where temporary extractor output is written.
// Default: os.TempDir().
func WithTempDir(dir string) Option {
	return func(p *Processor) {
		p.tempDir = dir
	}
}

// New creates a Processor.
func New(runner extractor.Runner, ledger Ledger, submitter Submitter, opts ...Option) *Processor {
	p := &Processor{
		runner:    runner,
		ledger:    ledger,
		submitter: submitter,
		reporter:  discardReporter{},
		allowed:   func(string) bool { return true },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process handles path, which may be a file or a directory.
func (p *Processor) Process(ctx context.Context, path string) (*Summary, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s does not exist", path)
		}
		return nil, fmt.Errorf("process %s: %w", path, err)
	}

	if info.IsDir() {
		return p.ProcessDirectory(ctx, abs)
	}

	summary := NewSummary()
	outcome, err := p.ProcessFile(ctx, abs)
	if err != nil {
		return summary, err
	}
	summary.Add(outcome)
	return summary, nil
}

// ProcessDirectory processes every allowed file under root, in lexical
// order, continuing past per-file failures.
func (p *Processor) ProcessDirectory(ctx context.Context, root string) (*Summary, error) {
	summary := NewSummary()
	slog.Info("processing directory", "root", root)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			slog.Warn("skipping unreadable path", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !isRegularFile(path, d) || !p.allowed(path) {
			return nil
		}

		outcome, err := p.ProcessFile(ctx, path)
		if err != nil {
			return err
		}
		summary.Add(outcome)
		return nil
	})
	if err != nil {
		return summary, err
	}
	return summary, nil
}

// ProcessFile runs one recording through the pipeline.
//
// The returned error is non-nil only when the run must stop: the context was
// cancelled (ErrInterrupted), no temporary file could be created, or the
// extractor could not be started. Every other failure is an Outcome.
func (p *Processor) ProcessFile(ctx context.Context, path string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return 0, interrupted(path, err)
	}

	done, err := p.ledger.Contains(ctx, path)
	if err != nil {
		slog.Error("ledger lookup failed", "path", path, "error", err)
		return p.emit(Event{Path: path, Outcome: OutcomeLedgerError, Detail: err.Error()}), nil
	}
	if done {
		return p.emit(Event{Path: path, Outcome: OutcomeSkipped}), nil
	}

	output, cleanup, err := p.tempOutput()
	if err != nil {
		return 0, err
	}
	defer cleanup()

	res, err := p.extract(ctx, path, output, extractor.ProfileRecordings)
	if err != nil {
		return 0, err
	}

	switch res.Kind {
	case extractor.ExtractFailed, extractor.NoIdentifier:
		reason, _ := res.Reason()
		p.record(ctx, path, reason)
		outcome := OutcomeExtractFailed
		if res.Kind == extractor.NoIdentifier {
			outcome = OutcomeNoIdentifier
		}
		return p.emit(Event{Path: path, Outcome: outcome, ExitCode: res.ExitCode, Detail: string(res.Output)}), nil
	case extractor.Unknown:
		return p.emit(Event{Path: path, Outcome: OutcomeUnknownFailure, ExitCode: res.ExitCode, Detail: string(res.Output)}), nil
	case extractor.Missing:
		slog.Debug("extractor succeeded without output", "path", path, "output", output)
		return p.emit(Event{Path: path, Outcome: OutcomeNoOutput}), nil
	}

	doc, err := features.Load(res.OutputPath)
	if err != nil {
		if errors.Is(err, features.ErrMalformedOutput) {
			p.record(ctx, path, ReasonMalformed)
		}
		return p.emit(Event{Path: path, Outcome: OutcomeMalformed, Detail: err.Error()}), nil
	}

	recordingID, err := doc.RecordingID()
	if err != nil {
		return p.emit(Event{Path: path, Outcome: OutcomeInvalidIdentifier, Detail: err.Error()}), nil
	}

	submitErr := p.submitter.SubmitFeatures(ctx, recordingID, doc.Bytes())
	if submitErr != nil && ctx.Err() != nil {
		return 0, interrupted(path, ctx.Err())
	}

	if submitErr == nil {
		p.record(ctx, path, "")
		return p.emit(Event{Path: path, Outcome: OutcomeSubmitted}), nil
	}

	// A submission the server answered and rejected still marks the file as
	// processed. Without an answer (unreachable host) the file stays eligible.
	var httpErr *submit.HTTPError
	if errors.As(submitErr, &httpErr) {
		p.record(ctx, path, "")
	} else {
		slog.Warn("submission not delivered", "path", path, "error", submitErr)
	}
	return p.emit(Event{Path: path, Outcome: OutcomeSubmitFailed, Detail: submitDetail(submitErr)}), nil
}

// isRegularFile reports whether d is a regular file or a symlink to one.
// Symlinked directories are not followed.
func isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		slog.Warn("skipping broken symlink", "path", path, "error", err)
		return false
	}
	return info.Mode().IsRegular()
}

// extract runs the extractor into output and classifies the result.
func (p *Processor) extract(ctx context.Context, path, output string, kind extractor.ProfileKind) (extractor.Result, error) {
	slog.Debug("running extractor", "path", path, "profile", kind)
	run, err := p.runner.Run(ctx, path, output, kind)
	if err != nil {
		if ctx.Err() != nil {
			return extractor.Result{}, interrupted(path, ctx.Err())
		}
		return extractor.Result{}, fmt.Errorf("extract %s: %w", path, err)
	}
	return extractor.Classify(run, kind, output), nil
}

// tempOutput reserves a fresh path for extractor output. The file itself is
// not left in place so the extractor's failure to write it can be detected.
// cleanup removes whatever ends up at the path.
func (p *Processor) tempOutput() (path string, cleanup func(), err error) {
	f, err := os.CreateTemp(p.tempDir, "abz-*.json")
	if err != nil {
		return "", nil, fmt.Errorf("create temporary output: %w", err)
	}
	path = f.Name()
	f.Close()
	if err := os.Remove(path); err != nil {
		return "", nil, fmt.Errorf("create temporary output: %w", err)
	}

	cleanup = func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to remove temporary output", "path", path, "error", err)
		}
	}
	return path, cleanup, nil
}

// record appends to the ledger. Failures are logged, never returned.
func (p *Processor) record(ctx context.Context, path, reason string) {
	if err := p.ledger.Record(ctx, path, reason); err != nil {
		slog.Error("failed to record file", "path", path, "reason", reason, "error", err)
	}
}

func (p *Processor) emit(e Event) Outcome {
	p.reporter.Report(e)
	return e.Outcome
}

func submitDetail(err error) string {
	var httpErr *submit.HTTPError
	if errors.As(err, &httpErr) {
		if body := strings.TrimSpace(httpErr.Body); body != "" {
			return body
		}
	}
	return err.Error()
}
