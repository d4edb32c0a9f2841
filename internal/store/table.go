package store

import "fmt"

const sqliteSchemaVersion = 1

// Migrate brings the SQLite schema up to date, tracked in PRAGMA user_version.
func (d *SQLite) Migrate() error {
	tx, err := d.Pool.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= sqliteSchemaVersion {
		return tx.Commit()
	}

	stmts := []string{`
CREATE TABLE IF NOT EXISTS opening_signals (
  id TEXT PRIMARY KEY,
  listing_hash TEXT NOT NULL UNIQUE,
  company_name TEXT NOT NULL,
  role_title TEXT NOT NULL,
  location TEXT,
  apply_url TEXT,
  term TEXT NOT NULL,
  source TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  first_seen_at TEXT NOT NULL,
  last_seen_at TEXT NOT NULL,
  posted_at TEXT,
  age_days INTEGER,
  updated_at TEXT NOT NULL
);`, `
CREATE INDEX IF NOT EXISTS idx_opening_signals_active_seen
ON opening_signals(is_active, last_seen_at DESC);`, `
CREATE TABLE IF NOT EXISTS opening_inbox (
  user_id TEXT NOT NULL,
  opening_signal_id TEXT NOT NULL REFERENCES opening_signals(id) ON DELETE CASCADE,
  status TEXT NOT NULL CHECK (status IN ('active','archived','hidden')),
  updated_at TEXT NOT NULL,
  PRIMARY KEY (user_id, opening_signal_id)
);`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d;`, sqliteSchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}
