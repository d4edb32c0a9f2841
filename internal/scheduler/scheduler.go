package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type Task func(ctx context.Context) error

// Every runs task now and then on each tick until ctx is done. Ticks that
// arrive while the task is still running are dropped by the ticker.
func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	log := zerolog.Ctx(ctx).With().Str("task", name).Logger()
	if interval <= 0 {
		log.Debug().Msg("interval disabled")
		return
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	run := func() {
		if err := task(ctx); err != nil {
			log.Error().Err(err).Msg("scheduled run failed")
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
