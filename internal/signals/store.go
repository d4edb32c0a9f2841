package signals

import (
	"context"
	"time"

	"internwatch-engine/internal/domain"
)

// Store is the persistence the pipeline needs: a keyed read, a keyed
// upsert that never rewrites first_seen_at, and a predicate update.
type Store interface {
	KnownSignals(ctx context.Context, hashes []string) (map[string]domain.KnownSignal, error)
	UpsertSignals(ctx context.Context, rows []domain.OpeningSignal) error
	DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error)
}
