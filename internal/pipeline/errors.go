package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrInterrupted is returned when the run context is cancelled.
	ErrInterrupted = errors.New("interrupted")

	// ErrEmptyDataset is returned when no dataset class yielded a submitted
	// item, so there is no manifest to submit.
	ErrEmptyDataset = errors.New("dataset has no classes with submitted items")
)

// interrupted wraps the context error with the file being processed.
func interrupted(path string, cause error) error {
	return fmt.Errorf("%w while processing %s: %v", ErrInterrupted, path, cause)
}

// IsInterrupted reports whether err is an interruption.
// Uses errors.Is to handle wrapped errors.
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted)
}
