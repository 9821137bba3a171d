package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/abz/internal/ledger"
	"github.com/roach88/abz/internal/pipeline"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions

	// RunIDs allows overriding the ledger run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs ledger.RunIDGenerator
}

// SubmitResult is the JSON payload of the submit command.
type SubmitResult struct {
	Paths   []string          `json:"paths"`
	Summary *pipeline.Summary `json:"summary"`
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit [paths...]",
		Short: "Extract and submit features for recordings",
		Long: `Run the feature extractor over every path and submit the features of each
recording to the server.

Directories are walked recursively; only files with an allowed extension are
processed. Files already in the ledger are skipped. Each result is printed as
one status line.

Example:
  abz submit ~/Music
  abz submit --host localhost:8080 --db /tmp/filelog.db song.flac`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			return runSubmit(opts, args, cmd)
		},
	}

	return cmd
}

func runSubmit(opts *SubmitOptions, paths []string, cmd *cobra.Command) error {
	printer := NewProgressPrinter(cmd.OutOrStdout(), opts.Format, opts.Verbose)
	sess, err := openSession(opts.RootOptions, opts.RunIDs, printer)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	total := pipeline.NewSummary()
	for _, path := range paths {
		summary, err := sess.processor.Process(ctx, path)
		if summary != nil {
			for o, n := range summary.Counts {
				total.Counts[o] += n
			}
		}
		if err != nil {
			if pipeline.IsInterrupted(err) {
				slog.Info("run interrupted", "summary", total.String())
				return WrapExitError(ExitFailure, "interrupted", err)
			}
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to process %s", path), err)
		}
	}

	slog.Info("run finished", "run_id", sess.ledger.RunID(), "summary", total.String())
	if opts.Format == "json" {
		f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return f.SuccessRun(SubmitResult{Paths: paths, Summary: total}, sess.ledger.RunID())
	}
	return nil
}
