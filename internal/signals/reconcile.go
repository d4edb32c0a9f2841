package signals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"internwatch-engine/internal/domain"
)

const DefaultBatchSize = 200

type ReconcileResult struct {
	Inserted int      `json:"inserted"`
	Updated  int      `json:"updated"`
	Total    int      `json:"total"`
	Errors   []string `json:"errors"`
}

type Reconciler struct {
	Store     Store
	BatchSize int
	Now       func() time.Time
}

// Reconcile merges fresh rows with what is already stored and upserts them
// keyed on the listing hash. An existing posted_at always wins; age_days is
// derived from the final posted_at. Every row leaves active with
// last_seen_at = now. A failed batch stops the run; counts cover the
// batches written before it.
func (r *Reconciler) Reconcile(ctx context.Context, fresh []domain.ParsedListing, term, source string) (ReconcileResult, error) {
	res := ReconcileResult{Errors: []string{}}
	now := r.now()
	log := zerolog.Ctx(ctx)

	hashes := make([]string, 0, len(fresh))
	byHash := make(map[string]domain.ParsedListing, len(fresh))
	for _, row := range fresh {
		h := ListingHash(row.CompanyName, row.RoleTitle, row.Location, term, row.ApplyURL)
		if _, dup := byHash[h]; dup {
			continue
		}
		byHash[h] = row
		hashes = append(hashes, h)
	}
	if len(hashes) == 0 {
		return res, nil
	}

	known, err := r.Store.KnownSignals(ctx, hashes)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res, fmt.Errorf("lookup existing signals: %w", err)
	}

	batch := r.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	for start := 0; start < len(hashes); start += batch {
		end := min(start+batch, len(hashes))

		rows := make([]domain.OpeningSignal, 0, end-start)
		inserted, updated := 0, 0
		for _, h := range hashes[start:end] {
			k, exists := known[h]
			rows = append(rows, merge(h, byHash[h], k, exists, term, source, now))
			if exists {
				updated++
			} else {
				inserted++
			}
		}

		if err := r.Store.UpsertSignals(ctx, rows); err != nil {
			res.Errors = append(res.Errors, err.Error())
			return res, fmt.Errorf("upsert signals %d-%d: %w", start, end, err)
		}
		res.Inserted += inserted
		res.Updated += updated
		res.Total += len(rows)
		log.Debug().Int("batch_start", start).Int("rows", len(rows)).Msg("upserted batch")
	}
	return res, nil
}

func merge(hash string, row domain.ParsedListing, k domain.KnownSignal, exists bool, term, source string, now time.Time) domain.OpeningSignal {
	posted := row.PostedAt
	if exists && k.PostedAt != nil && !k.PostedAt.IsZero() {
		posted = *k.PostedAt
	}
	posted, age := AgeFromPosted(posted, now)

	firstSeen := now
	if exists && !k.FirstSeenAt.IsZero() {
		firstSeen = k.FirstSeenAt
	}

	return domain.OpeningSignal{
		ID:          uuid.NewString(),
		ListingHash: hash,
		CompanyName: row.CompanyName,
		RoleTitle:   row.RoleTitle,
		Location:    row.Location,
		ApplyURL:    row.ApplyURL,
		Term:        term,
		Source:      source,
		IsActive:    true,
		FirstSeenAt: firstSeen,
		LastSeenAt:  now,
		PostedAt:    &posted,
		AgeDays:     &age,
	}
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}
