package extractor

import (
	"fmt"
	"os"
)

// ResultKind enumerates the outcomes of one extraction.
type ResultKind int

const (
	// Success means exit 0 and the output file exists.
	Success ResultKind = iota

	// Missing means exit 0 but no output file was written. Callers treat
	// this as a silent no-op: neither success nor failure is recorded.
	Missing

	// ExtractFailed means the extractor exited with status 1.
	ExtractFailed

	// NoIdentifier means exit 2 under the recordings profile.
	NoIdentifier

	// Unknown covers every other exit status.
	Unknown
)

// Ledger reasons attached to failed extractions.
const (
	ReasonExtractor    = "extractor"
	ReasonNoIdentifier = "nombid"
)

func (k ResultKind) String() string {
	switch k {
	case Success:
		return "success"
	case Missing:
		return "missing"
	case ExtractFailed:
		return "extract_failed"
	case NoIdentifier:
		return "no_identifier"
	case Unknown:
		return "unknown"
	}
	return fmt.Sprintf("ResultKind(%d)", int(k))
}

// Result is the classified outcome of a Run.
type Result struct {
	Kind       ResultKind
	OutputPath string // set for Success
	ExitCode   int
	Output     []byte
}

// Reason returns the ledger reason for the result and whether one should be
// recorded at all. Success, Missing and Unknown results return ok=false.
func (r Result) Reason() (reason string, ok bool) {
	switch r.Kind {
	case ExtractFailed:
		return ReasonExtractor, true
	case NoIdentifier:
		return ReasonNoIdentifier, true
	}
	return "", false
}

// Classify maps an extractor run to a Result.
//
// Exit status 2 only means "no identifier" under the recordings profile; for
// datasets it is an unknown failure like any other unexpected status.
func Classify(run Run, kind ProfileKind, outputPath string) Result {
	res := Result{ExitCode: run.ExitCode, Output: run.Output}

	switch {
	case run.ExitCode == 0:
		if info, err := os.Stat(outputPath); err == nil && info.Mode().IsRegular() {
			res.Kind = Success
			res.OutputPath = outputPath
		} else {
			res.Kind = Missing
		}
	case run.ExitCode == 1:
		res.Kind = ExtractFailed
	case run.ExitCode == 2 && kind == ProfileRecordings:
		res.Kind = NoIdentifier
	default:
		res.Kind = Unknown
	}

	return res
}
