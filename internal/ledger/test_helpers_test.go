package ledger

import (
	"path/filepath"
	"testing"

	"github.com/roach88/abz/internal/testutil"
)

// createTestLedger opens a ledger in a temp directory with a fixed run id.
func createTestLedger(t *testing.T) *Ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	l, err := Open(path, WithRunIDGenerator(testutil.NewFixedRunID("run-1")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}
