// Command abz extracts audio features from local recordings and submits them
// to an AcousticBrainz-compatible server.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/abz/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "abz:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
