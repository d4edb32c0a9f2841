package signals

import (
	"context"
	"errors"
	"sync"
	"time"

	"internwatch-engine/internal/domain"
)

var _ Store = (*memStore)(nil)

// memStore mimics ON CONFLICT(listing_hash) DO UPDATE: id and
// first_seen_at survive, everything else is replaced.
type memStore struct {
	mu        sync.Mutex
	rows      map[string]domain.OpeningSignal
	failAfter int // fail the n-th UpsertSignals call (1-based); 0 never
	calls     int
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]domain.OpeningSignal{}}
}

func (m *memStore) KnownSignals(_ context.Context, hashes []string) (map[string]domain.KnownSignal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]domain.KnownSignal{}
	for _, h := range hashes {
		if r, ok := m.rows[h]; ok {
			out[h] = domain.KnownSignal{ListingHash: h, PostedAt: r.PostedAt, AgeDays: r.AgeDays, FirstSeenAt: r.FirstSeenAt}
		}
	}
	return out, nil
}

func (m *memStore) UpsertSignals(_ context.Context, rows []domain.OpeningSignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failAfter > 0 && m.calls >= m.failAfter {
		return errors.New("connection reset")
	}
	for _, r := range rows {
		if old, ok := m.rows[r.ListingHash]; ok {
			r.ID = old.ID
			r.FirstSeenAt = old.FirstSeenAt
		}
		m.rows[r.ListingHash] = r
	}
	return nil
}

func (m *memStore) DeactivateStale(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for h, r := range m.rows {
		if r.IsActive && r.LastSeenAt.Before(cutoff) {
			r.IsActive = false
			m.rows[h] = r
			n++
		}
	}
	return n, nil
}

func (m *memStore) get(hash string) (domain.OpeningSignal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[hash]
	return r, ok
}
