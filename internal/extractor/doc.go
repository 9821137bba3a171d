// Package extractor runs the external feature extractor and classifies its
// outcome.
//
// The extractor contract is exit-code based:
//
//	extractor <input> <output.json> <profile>
//
//	0  features written to <output.json>
//	1  extraction failed
//	2  the input carries no recording identifier (recordings profile only)
//	*  unknown failure
//
// Run captures the exit status and merged stdout/stderr; Classify turns that
// into a Result consumed uniformly by the single-file and dataset pipelines.
package extractor
