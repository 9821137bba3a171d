package pipeline

import (
	"fmt"
	"sort"
)

// Outcome is the terminal state reached by one file.
type Outcome int

const (
	// OutcomeSkipped: the ledger already lists the file.
	OutcomeSkipped Outcome = iota
	// OutcomeSubmitted: features submitted and recorded.
	OutcomeSubmitted
	// OutcomeSubmitFailed: the features were not accepted. A file the server
	// answered with an error status is still recorded as processed; one that
	// never reached the server is not.
	OutcomeSubmitFailed
	// OutcomeExtractFailed: extractor exit status 1.
	OutcomeExtractFailed
	// OutcomeNoIdentifier: extractor exit status 2, no identifier in tags.
	OutcomeNoIdentifier
	// OutcomeUnknownFailure: any other extractor exit status.
	OutcomeUnknownFailure
	// OutcomeNoOutput: exit status 0 but no output file. Nothing is recorded.
	OutcomeNoOutput
	// OutcomeMalformed: the output file is not a JSON document.
	OutcomeMalformed
	// OutcomeInvalidIdentifier: no UUID-shaped identifier in the document.
	OutcomeInvalidIdentifier
	// OutcomeLedgerError: the ledger could not be consulted.
	OutcomeLedgerError
	// OutcomeItemSubmitted: dataset item accepted, identifier assigned.
	OutcomeItemSubmitted
	// OutcomeItemFailed: dataset item rejected or unreachable server.
	OutcomeItemFailed
)

var outcomeNames = map[Outcome]string{
	OutcomeSkipped:           "skipped",
	OutcomeSubmitted:         "submitted",
	OutcomeSubmitFailed:      "submit_failed",
	OutcomeExtractFailed:     "extract_failed",
	OutcomeNoIdentifier:      "no_identifier",
	OutcomeUnknownFailure:    "unknown_failure",
	OutcomeNoOutput:          "no_output",
	OutcomeMalformed:         "malformed_output",
	OutcomeInvalidIdentifier: "invalid_identifier",
	OutcomeLedgerError:       "ledger_error",
	OutcomeItemSubmitted:     "item_submitted",
	OutcomeItemFailed:        "item_failed",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Failed reports whether the outcome should be shown as a failure.
// OutcomeNoOutput is neither success nor failure.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeSkipped, OutcomeSubmitted, OutcomeItemSubmitted, OutcomeNoOutput:
		return false
	}
	return true
}

// Tag returns the short status shown next to the file in progress output.
func (o Outcome) Tag(exitCode int) string {
	switch o {
	case OutcomeSkipped:
		return ":) done"
	case OutcomeSubmitted:
		return ":)"
	case OutcomeSubmitFailed:
		return ":( submit"
	case OutcomeExtractFailed:
		return ":( extract"
	case OutcomeNoIdentifier:
		return ":( nombid"
	case OutcomeUnknownFailure:
		return fmt.Sprintf(":( unk %d", exitCode)
	case OutcomeNoOutput:
		return ":| no output"
	case OutcomeMalformed:
		return ":( json"
	case OutcomeInvalidIdentifier:
		return ":( badmbid"
	case OutcomeLedgerError:
		return ":( ledger"
	case OutcomeItemSubmitted:
		return ":) uuid"
	case OutcomeItemFailed:
		return ":( no uuid"
	}
	return o.String()
}

// Event describes the outcome of one file, for progress reporting.
type Event struct {
	Path     string  `json:"path"`
	Outcome  Outcome `json:"outcome"`
	ExitCode int     `json:"exit_code,omitempty"`
	// Detail carries extractor output, a server response or an error
	// message, when there is one.
	Detail string `json:"detail,omitempty"`
	// ItemID is set for OutcomeItemSubmitted.
	ItemID string `json:"item_id,omitempty"`
}

// Reporter receives one Event per processed file.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

// Report calls f(e).
func (f ReporterFunc) Report(e Event) { f(e) }

type discardReporter struct{}

func (discardReporter) Report(Event) {}

// Summary counts outcomes over a run.
type Summary struct {
	Counts map[Outcome]int `json:"counts"`
}

// NewSummary returns an empty Summary.
func NewSummary() *Summary {
	return &Summary{Counts: make(map[Outcome]int)}
}

// Add counts one outcome.
func (s *Summary) Add(o Outcome) {
	s.Counts[o]++
}

// Count returns the number of files that reached o.
func (s *Summary) Count(o Outcome) int {
	return s.Counts[o]
}

// Total returns the number of files seen.
func (s *Summary) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// Failures returns the number of files whose outcome is a failure.
func (s *Summary) Failures() int {
	n := 0
	for o, c := range s.Counts {
		if o.Failed() {
			n += c
		}
	}
	return n
}

// String renders non-zero counts in outcome order, e.g.
// "3 files: submitted=2 skipped=1".
func (s *Summary) String() string {
	outcomes := make([]Outcome, 0, len(s.Counts))
	for o, c := range s.Counts {
		if c > 0 {
			outcomes = append(outcomes, o)
		}
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })

	out := fmt.Sprintf("%d files:", s.Total())
	for _, o := range outcomes {
		out += fmt.Sprintf(" %s=%d", o, s.Counts[o])
	}
	return out
}
