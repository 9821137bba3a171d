// Package pipeline drives files through extraction and submission.
//
// Single recordings follow a fixed state machine:
//
//	ledger check -> extract -> classify -> parse -> identify -> submit -> record
//
// Every failure is handled for the file at hand (reported, and for most
// kinds recorded in the ledger) and the run continues with the next file.
// A run aborts only when it cannot go on at all: the run context was
// cancelled (ErrInterrupted, after the in-flight temporary file has been
// removed), no temporary file could be created, or the extractor could not
// be started.
//
// Dataset mode walks class directories, submits each file as a dataset item
// and assembles the returned item identifiers into a manifest.
//
// Processing is strictly sequential. A concurrent caller would need to
// serialize work per path so the same file cannot be submitted twice.
package pipeline
