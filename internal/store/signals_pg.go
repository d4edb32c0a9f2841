package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"internwatch-engine/internal/domain"
)

func (p *Postgres) KnownSignals(ctx context.Context, hashes []string) (map[string]domain.KnownSignal, error) {
	out := make(map[string]domain.KnownSignal, len(hashes))
	for _, chunk := range chunks(hashes, lookupChunk) {
		rows, err := p.Pool.Query(ctx, `
SELECT listing_hash, posted_at, age_days, first_seen_at
FROM opening_signals
WHERE listing_hash = ANY($1)`, chunk)
		if err != nil {
			return nil, fmt.Errorf("select known signals: %w", err)
		}
		for rows.Next() {
			var k domain.KnownSignal
			if err := rows.Scan(&k.ListingHash, &k.PostedAt, &k.AgeDays, &k.FirstSeenAt); err != nil {
				rows.Close()
				return nil, err
			}
			out[k.ListingHash] = k
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

const pgUpsert = `
INSERT INTO opening_signals (
  id, listing_hash, company_name, role_title, location, apply_url, term, source,
  is_active, first_seen_at, last_seen_at, posted_at, age_days, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
ON CONFLICT (listing_hash) DO UPDATE SET
  company_name = EXCLUDED.company_name,
  role_title = EXCLUDED.role_title,
  location = EXCLUDED.location,
  apply_url = EXCLUDED.apply_url,
  term = EXCLUDED.term,
  source = EXCLUDED.source,
  is_active = EXCLUDED.is_active,
  last_seen_at = EXCLUDED.last_seen_at,
  posted_at = EXCLUDED.posted_at,
  age_days = EXCLUDED.age_days,
  updated_at = now()`

// UpsertSignals queues the batch and sends it inside one transaction.
func (p *Postgres) UpsertSignals(ctx context.Context, rows []domain.OpeningSignal) error {
	if len(rows) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, p.Pool, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		for _, r := range rows {
			b.Queue(pgUpsert,
				r.ID, r.ListingHash, r.CompanyName, r.RoleTitle, nullable(r.Location), nullable(r.ApplyURL),
				r.Term, r.Source, r.IsActive, r.FirstSeenAt, r.LastSeenAt, r.PostedAt, r.AgeDays,
			)
		}
		br := tx.SendBatch(ctx, b)
		for _, r := range rows {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("upsert signal %s: %w", r.ListingHash, err)
			}
		}
		return br.Close()
	})
}

func (p *Postgres) DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.Pool.Exec(ctx, `
UPDATE opening_signals
SET is_active = FALSE, updated_at = now()
WHERE is_active AND last_seen_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deactivate stale signals: %w", err)
	}
	return tag.RowsAffected(), nil
}

const pgSignalColumns = `id::text, listing_hash, company_name, role_title, location, apply_url, term, source,
  is_active, first_seen_at, last_seen_at, posted_at, age_days`

func (p *Postgres) ListActive(ctx context.Context, opts ListOpts) ([]domain.OpeningSignal, error) {
	rows, err := p.Pool.Query(ctx, `
SELECT `+pgSignalColumns+`
FROM opening_signals
WHERE is_active
  AND ($1 = '' OR source = $1)
  AND ($2 = '' OR term = $2)
ORDER BY last_seen_at DESC
LIMIT $3`, opts.Source, opts.Term, defaultLimit(opts.Limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.OpeningSignal{}
	for rows.Next() {
		s, err := scanPGSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanPGSignal(row pgx.Row) (domain.OpeningSignal, error) {
	var (
		s             domain.OpeningSignal
		location, url *string
	)
	err := row.Scan(
		&s.ID, &s.ListingHash, &s.CompanyName, &s.RoleTitle, &location, &url, &s.Term, &s.Source,
		&s.IsActive, &s.FirstSeenAt, &s.LastSeenAt, &s.PostedAt, &s.AgeDays,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, ErrNotFound
	}
	if location != nil {
		s.Location = *location
	}
	if url != nil {
		s.ApplyURL = *url
	}
	return s, err
}
