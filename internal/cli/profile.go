package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/abz/internal/extractor"
)

// ProfileOptions holds flags for the profile command.
type ProfileOptions struct {
	*RootOptions
	Output string // output file path
}

// NewProfileCommand creates the profile command.
func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProfileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "profile <recordings|datasets>",
		Short: "Render an extractor profile",
		Long: `Render the extractor profile used for recordings or dataset items.

Without --output the profile is printed. A written profile can be edited and
named in the settings file (profiles.recordings / profiles.datasets) to be
used instead of the built-in one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runProfile(opts *ProfileOptions, name string, cmd *cobra.Command) error {
	kind, err := extractor.ParseProfileKind(name)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid profile", err)
	}
	profile := extractor.NewProfile(kind, Version)

	if opts.Output != "" {
		if err := extractor.WriteProfile(opts.Output, profile); err != nil {
			return WrapExitError(ExitCommandError, "failed to write profile", err)
		}
		if opts.Format == "json" {
			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(map[string]string{"profile": string(kind), "output": opts.Output})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s profile to %s\n", kind, opts.Output)
		return nil
	}

	data, err := profile.Marshal()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render profile", err)
	}
	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(map[string]string{"profile": string(kind), "yaml": string(data)})
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
