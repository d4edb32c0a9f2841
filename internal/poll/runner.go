package poll

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"internwatch-engine/internal/events"
	"internwatch-engine/internal/runlock"
	"internwatch-engine/internal/scrape/types"
)

const (
	NameRefresh = "refresh"
	NameSearch  = "search"
)

// Runner serializes pipeline runs per name, keeps their status, and
// announces completions on the hub. It is shared by the HTTP handlers, the
// scheduler and the CLI.
type Runner struct {
	Lock runlock.Locker
	Hub  *events.Hub

	mu     sync.Mutex
	status map[string]types.RunStatus
}

func NewRunner(lock runlock.Locker, hub *events.Hub) *Runner {
	if lock == nil {
		lock = runlock.Noop{}
	}
	return &Runner{Lock: lock, Hub: hub, status: map[string]types.RunStatus{}}
}

// Refresh runs p unless another refresh holds the lock, in which case it
// returns runlock.ErrLocked without touching the store.
func (r *Runner) Refresh(ctx context.Context, p *Refresher) (Report, error) {
	return run(ctx, r, NameRefresh, events.TypeRefreshCompleted, p.Run)
}

func (r *Runner) Search(ctx context.Context, p *SearchPipeline) (SearchReport, error) {
	return run(ctx, r, NameSearch, events.TypeSearchCompleted, p.Run)
}

func run[T outcome](ctx context.Context, r *Runner, name, evt string, fn func(context.Context) T) (T, error) {
	var zero T
	log := zerolog.Ctx(ctx)

	if !r.begin(name) {
		return zero, runlock.ErrLocked
	}
	// clears Running on lock failure or if fn panics
	ended := false
	defer func() {
		if !ended {
			r.abort(name)
		}
	}()
	release, err := r.Lock.TryLock(ctx, name)
	if err != nil {
		if !errors.Is(err, runlock.ErrLocked) {
			log.Error().Err(err).Str("pipeline", name).Msg("acquire run lock")
		}
		return zero, err
	}
	defer release()

	r.Hub.Publish(events.MakeEvent(events.RequestID(ctx), events.TypeRunStarted, 1, map[string]string{"pipeline": name}))

	out := fn(ctx)

	r.end(name, out)
	ended = true
	r.Hub.Publish(events.MakeEvent(events.RequestID(ctx), evt, 1, out.summary()))
	return out, nil
}

func (r *Runner) begin(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.status[name]
	if st.Running {
		return false
	}
	st.Running = true
	st.LastRunAt = time.Now().UTC().Format(time.RFC3339)
	r.status[name] = st
	return true
}

func (r *Runner) abort(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.status[name]
	st.Running = false
	r.status[name] = st
}

func (r *Runner) end(name string, out outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.status[name]
	st.Running = false
	st.LastRunID = out.runID()
	st.LastInserted, st.LastUpdated = out.counts()
	if msg := out.failure(); msg != "" {
		st.LastError = msg
	} else {
		st.LastError = ""
		st.LastOkAt = time.Now().UTC().Format(time.RFC3339)
	}
	r.status[name] = st
}

// Status returns a copy of every pipeline's last known state.
func (r *Runner) Status() map[string]types.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]types.RunStatus, len(r.status))
	for k, v := range r.status {
		out[k] = v
	}
	return out
}
