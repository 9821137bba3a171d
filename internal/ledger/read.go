package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ReasonSuccess is the display name for rows without a failure reason.
const ReasonSuccess = "ok"

// Entry is one ledger row.
type Entry struct {
	ID     int64  `json:"id"`
	Path   string `json:"path"`
	Reason string `json:"reason,omitempty"` // empty for successful submissions
	RunID  string `json:"run_id,omitempty"`
}

// Filter narrows Entries. Zero values match everything.
type Filter struct {
	// Reason selects rows with this reason; ReasonSuccess selects rows
	// without one.
	Reason string
	// RunID selects rows written by one run.
	RunID string
	// Limit caps the number of rows returned (most recent first when set).
	Limit int
}

// ReasonCount is the number of rows sharing a reason.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// Contains reports whether any row exists for path, whatever its reason.
func (l *Ledger) Contains(ctx context.Context, path string) (bool, error) {
	key, err := Canonical(path)
	if err != nil {
		return false, fmt.Errorf("contains: %w", err)
	}

	var found int
	err = l.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM filelog WHERE filename = ?)
	`, key).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("contains %s: %w", key, err)
	}
	return found == 1, nil
}

// Entries returns rows matching f in insertion order.
//
// Returns an empty slice (not nil) if nothing matches.
func (l *Ledger) Entries(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	switch f.Reason {
	case "":
	case ReasonSuccess:
		where = append(where, "reason IS NULL")
	default:
		where = append(where, "reason = ?")
		args = append(args, f.Reason)
	}
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}

	query := "SELECT rowid AS seq, filename, reason, run_id FROM filelog"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Limit > 0 {
		// Most recent rows, returned oldest first.
		query = "SELECT * FROM (" + query + " ORDER BY seq DESC LIMIT ?) ORDER BY seq ASC"
		args = append(args, f.Limit)
	} else {
		query += " ORDER BY seq ASC"
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e      Entry
			reason sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Path, &reason, &e.RunID); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Reason = reason.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return entries, nil
}

// Stats counts rows per reason, successful rows reported as ReasonSuccess.
// Results are ordered by reason.
func (l *Ledger) Stats(ctx context.Context) ([]ReasonCount, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT COALESCE(reason, ?), COUNT(*)
		FROM filelog
		GROUP BY COALESCE(reason, ?)
		ORDER BY 1 ASC
	`, ReasonSuccess, ReasonSuccess)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	counts := []ReasonCount{}
	for rows.Next() {
		var rc ReasonCount
		if err := rows.Scan(&rc.Reason, &rc.Count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		counts = append(counts, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return counts, nil
}
