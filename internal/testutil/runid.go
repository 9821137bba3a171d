package testutil

// FixedRunID returns the same run id every time.
//
// Ledger rows written by a test then carry a predictable run_id, which keeps
// golden output and equality assertions stable.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a generator for id.
// If id is empty, Generate returns "test-run-default".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed run id.
func (g *FixedRunID) Generate() string {
	return g.id
}
