package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/abz/internal/ledger"
	"github.com/roach88/abz/internal/pipeline"
	"github.com/roach88/abz/internal/submit"
)

// DatasetOptions holds flags for the dataset command.
type DatasetOptions struct {
	*RootOptions
	Name        string
	Description string
	Private     bool

	// RunIDs allows overriding the ledger run id generator (for testing).
	RunIDs ledger.RunIDGenerator
}

// NewDatasetCommand creates the dataset command.
func NewDatasetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DatasetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dataset <dir>",
		Short: "Build and submit a dataset from a directory tree",
		Long: `Submit every recording below <dir> as a dataset item and then submit a
dataset manifest grouping the items into classes.

Each subdirectory is a class named after the directory and holds the files
directly inside it. Classes with no submitted items are left out. The dataset
is named after <dir> unless --name is given.

Example:
  abz dataset ./moods
  abz dataset --name genres --description "rock vs jazz" --private ./genres`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDataset(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "dataset name (default: directory name)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "dataset description")
	cmd.Flags().BoolVar(&opts.Private, "private", false, "create a private dataset")

	return cmd
}

func runDataset(opts *DatasetOptions, root string, cmd *cobra.Command) error {
	printer := NewProgressPrinter(cmd.OutOrStdout(), opts.Format, opts.Verbose)
	sess, err := openSession(opts.RootOptions, opts.RunIDs, printer)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	result, err := sess.processor.RunDataset(ctx, root, pipeline.DatasetOptions{
		Name:        opts.Name,
		Description: opts.Description,
		Private:     opts.Private,
	})
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrEmptyDataset):
		// Nothing to submit is not a failure of the run.
		if opts.Format == "json" {
			return formatter.SuccessRun(result, sess.ledger.RunID())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "No class has submitted items; dataset %q not submitted.\n", result.Manifest.Name)
		return nil
	case pipeline.IsInterrupted(err):
		return WrapExitError(ExitFailure, "interrupted", err)
	default:
		var httpErr *submit.HTTPError
		if errors.As(err, &httpErr) {
			_ = formatter.Error("E_DATASET_REJECTED", "dataset submission rejected", result.Response)
			return WrapExitError(ExitFailure, "dataset submission failed", err)
		}
		if result != nil && result.Manifest != nil {
			return WrapExitError(ExitFailure, "dataset submission failed", err)
		}
		return WrapExitError(ExitCommandError, "failed to build dataset", err)
	}

	if opts.Format == "json" {
		return formatter.SuccessRun(result, sess.ledger.RunID())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Dataset %q submitted: %d classes, %d items\n",
		result.Manifest.Name, len(result.Manifest.Classes), result.Manifest.ItemCount())
	if result.Response != nil && result.Response.Body != nil {
		body, err := json.MarshalIndent(result.Response.Body, "", "  ")
		if err != nil {
			return WrapExitError(ExitFailure, "failed to render server response", err)
		}
		fmt.Fprintf(out, "Server response (%d):\n%s\n", result.Response.Status, body)
	}
	return nil
}
