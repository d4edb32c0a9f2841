package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"internwatch-engine/internal/domain"
)

func (p *Postgres) SetInboxStatus(ctx context.Context, userID, signalID string, status domain.InboxStatus) error {
	var one int
	err := p.Pool.QueryRow(ctx, `SELECT 1 FROM opening_signals WHERE id::text = $1`, signalID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	_, err = p.Pool.Exec(ctx, `
INSERT INTO opening_inbox (user_id, opening_signal_id, status, updated_at)
VALUES ($1, $2::uuid, $3, now())
ON CONFLICT (user_id, opening_signal_id) DO UPDATE SET
  status = EXCLUDED.status,
  updated_at = now()`, userID, signalID, string(status))
	if err != nil {
		return fmt.Errorf("set inbox status: %w", err)
	}
	return nil
}

func (p *Postgres) ListInbox(ctx context.Context, userID string, status domain.InboxStatus) ([]domain.InboxItem, error) {
	rows, err := p.Pool.Query(ctx, `
SELECT i.user_id, i.opening_signal_id::text, i.status, i.updated_at,
  s.id::text, s.listing_hash, s.company_name, s.role_title, s.location, s.apply_url, s.term, s.source,
  s.is_active, s.first_seen_at, s.last_seen_at, s.posted_at, s.age_days
FROM opening_inbox i
JOIN opening_signals s ON s.id = i.opening_signal_id
WHERE i.user_id = $1 AND ($2 = '' OR i.status = $2)
ORDER BY s.last_seen_at DESC`, userID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.InboxItem{}
	for rows.Next() {
		var (
			it            domain.InboxItem
			st            string
			sig           domain.OpeningSignal
			location, url *string
		)
		if err := rows.Scan(&it.UserID, &it.OpeningSignalID, &st, &it.UpdatedAt,
			&sig.ID, &sig.ListingHash, &sig.CompanyName, &sig.RoleTitle, &location, &url, &sig.Term, &sig.Source,
			&sig.IsActive, &sig.FirstSeenAt, &sig.LastSeenAt, &sig.PostedAt, &sig.AgeDays,
		); err != nil {
			return nil, err
		}
		it.Status = domain.InboxStatus(st)
		if location != nil {
			sig.Location = *location
		}
		if url != nil {
			sig.ApplyURL = *url
		}
		it.Signal = &sig
		out = append(out, it)
	}
	return out, rows.Err()
}
