package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/abz/internal/ledger"
)

// LedgerOptions holds flags for the ledger command.
type LedgerOptions struct {
	*RootOptions
	Reason string
	RunID  string
	Limit  int
	Stats  bool
}

// LedgerResult holds the ledger command output.
type LedgerResult struct {
	Database string               `json:"database"`
	Entries  []ledger.Entry       `json:"entries,omitempty"`
	Stats    []ledger.ReasonCount `json:"stats,omitempty"`
}

// NewLedgerCommand creates the ledger command.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "List processed files",
		Long: `List the files recorded in the ledger, oldest first.

A file is recorded once it was submitted or failed in a way that a retry
would not fix. Remove a row's file from the ledger database to have it
processed again.

Reasons:
  ok         features submitted (or submission rejected by the server)
  extractor  extractor failed
  nombid     no recording identifier in the file tags
  json       extractor output was not valid JSON

Examples:
  abz ledger
  abz ledger --reason nombid --limit 20
  abz ledger --stats --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedger(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Reason, "reason", "", "only rows with this reason (ok for successes)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "only rows written by this run id")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show only the most recent N rows")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "show row counts per reason instead of rows")

	return cmd
}

func runLedger(opts *LedgerOptions, cmd *cobra.Command) error {
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must not be negative")
	}

	settings, err := loadSettings(opts.RootOptions)
	if err != nil {
		return err
	}
	if _, err := os.Stat(settings.Database); err != nil {
		return WrapExitError(ExitCommandError, "ledger not found", err)
	}

	l, err := ledger.Open(settings.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	defer l.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result := LedgerResult{Database: settings.Database}

	if opts.Stats {
		result.Stats, err = l.Stats(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read ledger", err)
		}
	} else {
		result.Entries, err = l.Entries(ctx, ledger.Filter{
			Reason: opts.Reason,
			RunID:  opts.RunID,
			Limit:  opts.Limit,
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read ledger", err)
		}
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(result)
	}
	return outputLedgerText(cmd, opts, result)
}

func outputLedgerText(cmd *cobra.Command, opts *LedgerOptions, result LedgerResult) error {
	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	if opts.Stats {
		total := 0
		for _, s := range result.Stats {
			fmt.Fprintf(w, "%s\t%d\n", s.Reason, s.Count)
			total += s.Count
		}
		fmt.Fprintf(w, "total\t%d\n", total)
		return w.Flush()
	}

	if len(result.Entries) == 0 {
		fmt.Fprintln(out, "No entries.")
		return nil
	}
	for _, e := range result.Entries {
		reason := e.Reason
		if reason == "" {
			reason = ledger.ReasonSuccess
		}
		if opts.Verbose {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.ID, reason, e.RunID, e.Path)
		} else {
			fmt.Fprintf(w, "%s\t%s\n", reason, e.Path)
		}
	}
	return w.Flush()
}
