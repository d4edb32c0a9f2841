package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"internwatch-engine/internal/domain"
)

// fixed width so TEXT comparison orders like time
const tsLayout = "2006-01-02T15:04:05.000000Z"

func formatTS(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTS(s string) time.Time {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

func (d *SQLite) KnownSignals(ctx context.Context, hashes []string) (map[string]domain.KnownSignal, error) {
	out := make(map[string]domain.KnownSignal, len(hashes))
	for _, chunk := range chunks(hashes, lookupChunk) {
		args := make([]any, len(chunk))
		for i, h := range chunk {
			args[i] = h
		}
		q := `
SELECT listing_hash, posted_at, age_days, first_seen_at
FROM opening_signals
WHERE listing_hash IN (` + strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",") + `);`

		rows, err := d.Pool.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, fmt.Errorf("select known signals: %w", err)
		}
		for rows.Next() {
			var (
				k         domain.KnownSignal
				posted    sql.NullString
				age       sql.NullInt64
				firstSeen string
			)
			if err := rows.Scan(&k.ListingHash, &posted, &age, &firstSeen); err != nil {
				rows.Close()
				return nil, err
			}
			if posted.Valid && posted.String != "" {
				t := parseTS(posted.String)
				k.PostedAt = &t
			}
			if age.Valid {
				a := int(age.Int64)
				k.AgeDays = &a
			}
			k.FirstSeenAt = parseTS(firstSeen)
			out[k.ListingHash] = k
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

const sqliteUpsert = `
INSERT INTO opening_signals (
  id, listing_hash, company_name, role_title, location, apply_url, term, source,
  is_active, first_seen_at, last_seen_at, posted_at, age_days, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(listing_hash) DO UPDATE SET
  company_name = excluded.company_name,
  role_title = excluded.role_title,
  location = excluded.location,
  apply_url = excluded.apply_url,
  term = excluded.term,
  source = excluded.source,
  is_active = excluded.is_active,
  last_seen_at = excluded.last_seen_at,
  posted_at = excluded.posted_at,
  age_days = excluded.age_days,
  updated_at = excluded.updated_at;`

// UpsertSignals writes one batch in a single transaction. id and
// first_seen_at are only ever written by the insert branch.
func (d *SQLite) UpsertSignals(ctx context.Context, rows []domain.OpeningSignal) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := formatTS(time.Now())
	for _, r := range rows {
		var posted, age any
		if r.PostedAt != nil {
			posted = formatTS(*r.PostedAt)
		}
		if r.AgeDays != nil {
			age = *r.AgeDays
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.ListingHash, r.CompanyName, r.RoleTitle, nullable(r.Location), nullable(r.ApplyURL),
			r.Term, r.Source, r.IsActive, formatTS(r.FirstSeenAt), formatTS(r.LastSeenAt), posted, age, now,
		); err != nil {
			return fmt.Errorf("upsert signal %s: %w", r.ListingHash, err)
		}
	}
	return tx.Commit()
}

func (d *SQLite) DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.Pool.ExecContext(ctx, `
UPDATE opening_signals
SET is_active = 0, updated_at = ?
WHERE is_active = 1 AND last_seen_at < ?;`,
		formatTS(time.Now()), formatTS(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("deactivate stale signals: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

const signalColumns = `id, listing_hash, company_name, role_title, location, apply_url, term, source,
  is_active, first_seen_at, last_seen_at, posted_at, age_days`

func (d *SQLite) ListActive(ctx context.Context, opts ListOpts) ([]domain.OpeningSignal, error) {
	where := []string{"is_active = 1"}
	var args []any
	if opts.Source != "" {
		where = append(where, "source = ?")
		args = append(args, opts.Source)
	}
	if opts.Term != "" {
		where = append(where, "term = ?")
		args = append(args, opts.Term)
	}
	args = append(args, defaultLimit(opts.Limit))

	rows, err := d.Pool.QueryContext(ctx, `
SELECT `+signalColumns+`
FROM opening_signals
WHERE `+strings.Join(where, " AND ")+`
ORDER BY last_seen_at DESC
LIMIT ?;`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.OpeningSignal{}
	for rows.Next() {
		s, err := scanSQLiteSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSignal is used by tests and the inbox join.
func (d *SQLite) GetSignal(ctx context.Context, hash string) (domain.OpeningSignal, error) {
	row := d.Pool.QueryRowContext(ctx, `SELECT `+signalColumns+` FROM opening_signals WHERE listing_hash = ?;`, hash)
	s, err := scanSQLiteSignal(row)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSignal(sc scanner) (domain.OpeningSignal, error) {
	var (
		s                   domain.OpeningSignal
		location, applyURL  sql.NullString
		firstSeen, lastSeen string
		posted              sql.NullString
		age                 sql.NullInt64
	)
	if err := sc.Scan(
		&s.ID, &s.ListingHash, &s.CompanyName, &s.RoleTitle, &location, &applyURL, &s.Term, &s.Source,
		&s.IsActive, &firstSeen, &lastSeen, &posted, &age,
	); err != nil {
		return s, err
	}
	s.Location = location.String
	s.ApplyURL = applyURL.String
	s.FirstSeenAt = parseTS(firstSeen)
	s.LastSeenAt = parseTS(lastSeen)
	if posted.Valid && posted.String != "" {
		t := parseTS(posted.String)
		s.PostedAt = &t
	}
	if age.Valid {
		a := int(age.Int64)
		s.AgeDays = &a
	}
	return s, nil
}
