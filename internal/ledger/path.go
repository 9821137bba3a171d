package ledger

import (
	"fmt"
	"path/filepath"

	"golang.org/x/text/unicode/norm"
)

// Canonical returns the ledger key for path: absolute, cleaned and in
// Unicode normalization form C.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("canonical path %q: %w", path, err)
	}
	return norm.NFC.String(abs), nil
}
