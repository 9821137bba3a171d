// Package ledger provides the SQLite-backed record of processed files.
//
// The ledger is an append-only log of (path, reason) rows:
//   - reason NULL: the file was extracted and submitted
//   - reason "nombid", "extractor", "json": the file failed in a way that
//     retrying will not fix
//
// A file is "already processed" when any row exists for its canonical path,
// whatever the reason. Uniqueness is not enforced; a second row for the same
// path is harmless because lookups only test existence.
//
// # Canonical paths
//
// Paths are made absolute, cleaned and NFC-normalized before they are stored
// or looked up, so a file reached through a relative path or an NFD
// filesystem maps to a single key.
//
// # Database Configuration
//
//   - WAL mode
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - single connection (the pipeline is sequential)
package ledger
