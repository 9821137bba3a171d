package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/abz/internal/features"
)

// Error codes reported by inspect.
const (
	ErrCodeMalformed    = "E_MALFORMED"
	ErrCodeNoIdentifier = "E_NO_IDENTIFIER"
	ErrCodeRead         = "E_READ"
)

// InspectResult describes an extractor output file.
type InspectResult struct {
	Path        string   `json:"path"`
	Identifiers []string `json:"identifiers"`
	RecordingID string   `json:"recording_id"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <features.json>",
		Short: "Check an extractor output file",
		Long: `Parse an extractor output file and report the recording identifier it
would be submitted under.

The file must be a JSON object whose metadata.tags.musicbrainz_trackid holds a
string or a list of strings; the first UUID among them is the recording id.
Nothing is submitted or recorded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runInspect(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	doc, err := features.Load(path)
	if err != nil {
		if errors.Is(err, features.ErrMalformedOutput) {
			_ = formatter.Error(ErrCodeMalformed, err.Error(), map[string]string{"path": path})
			return WrapExitError(ExitFailure, "malformed output", err)
		}
		_ = formatter.Error(ErrCodeRead, err.Error(), map[string]string{"path": path})
		return WrapExitError(ExitCommandError, "failed to read output file", err)
	}

	result := InspectResult{Path: path, Identifiers: []string{}}
	if ids, err := doc.Identifiers(); err == nil && len(ids) > 0 {
		result.Identifiers = ids
	}
	formatter.VerboseLog("identifier tag holds %d value(s)", len(result.Identifiers))

	result.RecordingID, err = doc.RecordingID()
	if err != nil {
		_ = formatter.Error(ErrCodeNoIdentifier, err.Error(), result)
		return WrapExitError(ExitFailure, "no valid recording identifier", err)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", path)
	fmt.Fprintf(out, "  identifiers:  %s\n", strings.Join(result.Identifiers, ", "))
	fmt.Fprintf(out, "  recording id: %s\n", result.RecordingID)
	return nil
}
