package signals

import (
	"context"
	"time"
)

const DefaultFreshnessWindow = 48 * time.Hour

// Sweeper deactivates signals that have not been re-observed within Window.
type Sweeper struct {
	Store  Store
	Window time.Duration
	Now    func() time.Time
}

func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	window := s.Window
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	return s.Store.DeactivateStale(ctx, now.Add(-window))
}
