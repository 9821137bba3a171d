package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// Record appends a row for path. An empty reason records a successful
// submission (stored as NULL).
//
// Duplicate rows for the same path are accepted; callers check Contains first.
func (l *Ledger) Record(ctx context.Context, path, reason string) error {
	key, err := Canonical(path)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}

	var r sql.NullString
	if reason != "" {
		r = sql.NullString{String: reason, Valid: true}
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO filelog (filename, reason, run_id)
		VALUES (?, ?, ?)
	`, key, r, l.runID)
	if err != nil {
		return fmt.Errorf("record %s: %w", key, err)
	}
	return nil
}
