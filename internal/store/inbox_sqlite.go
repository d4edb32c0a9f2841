package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"internwatch-engine/internal/domain"
)

func (d *SQLite) SetInboxStatus(ctx context.Context, userID, signalID string, status domain.InboxStatus) error {
	var one int
	err := d.Pool.QueryRowContext(ctx, `SELECT 1 FROM opening_signals WHERE id = ?;`, signalID).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	_, err = d.Pool.ExecContext(ctx, `
INSERT INTO opening_inbox (user_id, opening_signal_id, status, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(user_id, opening_signal_id) DO UPDATE SET
  status = excluded.status,
  updated_at = excluded.updated_at;`,
		userID, signalID, string(status), formatTS(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("set inbox status: %w", err)
	}
	return nil
}

func (d *SQLite) ListInbox(ctx context.Context, userID string, status domain.InboxStatus) ([]domain.InboxItem, error) {
	q := `
SELECT i.user_id, i.opening_signal_id, i.status, i.updated_at,
  s.id, s.listing_hash, s.company_name, s.role_title, s.location, s.apply_url, s.term, s.source,
  s.is_active, s.first_seen_at, s.last_seen_at, s.posted_at, s.age_days
FROM opening_inbox i
JOIN opening_signals s ON s.id = i.opening_signal_id
WHERE i.user_id = ?`
	args := []any{userID}
	if status != "" {
		q += ` AND i.status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY s.last_seen_at DESC;`

	rows, err := d.Pool.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.InboxItem{}
	for rows.Next() {
		var (
			it        domain.InboxItem
			st        string
			updatedAt string
			sig       domain.OpeningSignal
			loc, url  sql.NullString
			first     string
			last      string
			posted    sql.NullString
			age       sql.NullInt64
		)
		if err := rows.Scan(&it.UserID, &it.OpeningSignalID, &st, &updatedAt,
			&sig.ID, &sig.ListingHash, &sig.CompanyName, &sig.RoleTitle, &loc, &url, &sig.Term, &sig.Source,
			&sig.IsActive, &first, &last, &posted, &age,
		); err != nil {
			return nil, err
		}
		it.Status = domain.InboxStatus(st)
		it.UpdatedAt = parseTS(updatedAt)
		sig.Location, sig.ApplyURL = loc.String, url.String
		sig.FirstSeenAt, sig.LastSeenAt = parseTS(first), parseTS(last)
		if posted.Valid {
			t := parseTS(posted.String)
			sig.PostedAt = &t
		}
		if age.Valid {
			a := int(age.Int64)
			sig.AgeDays = &a
		}
		it.Signal = &sig
		out = append(out, it)
	}
	return out, rows.Err()
}
