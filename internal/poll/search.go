package poll

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"internwatch-engine/internal/scrape/search"
	"internwatch-engine/internal/signals"
)

// SearchPipeline runs search-canada-internships:
// SEARCHING -> DEDUPING -> RECONCILING -> DONE. It never sweeps.
type SearchPipeline struct {
	Store    signals.Store
	Searcher *search.Searcher
	Queries  []string
	Term     string
	Source   string

	BatchSize int
	Now       func() time.Time
}

func (p *SearchPipeline) Run(ctx context.Context) SearchReport {
	start := time.Now()
	now := time.Now().UTC()
	if p.Now != nil {
		now = p.Now().UTC()
	}
	rep := SearchReport{Debug: SearchDebug{
		RunID:  uuid.NewString(),
		Upsert: signals.ReconcileResult{Errors: []string{}},
		Notes:  []string{},
	}}
	log := zerolog.Ctx(ctx).With().Str("run_id", rep.Debug.RunID).Str("pipeline", "search").Logger()
	ctx = log.WithContext(ctx)

	enter := func(s State) {
		rep.Debug.State = s
		log.Info().Str("state", string(s)).Msg("search state")
	}
	finish := func() SearchReport {
		rep.Debug.DurationMS = time.Since(start).Milliseconds()
		rep.OK = rep.Debug.State == StateDone
		return rep
	}

	enter(StateSearching)
	if len(p.Queries) == 0 {
		rep.Debug.Notes = append(rep.Debug.Notes, "no search queries configured")
		enter(StateDone)
		return finish()
	}
	res, err := p.Searcher.Run(ctx, p.Queries)
	rep.Debug.Search = res
	if err != nil {
		rep.Error = err.Error()
		enter(StateFailed)
		return finish()
	}
	if len(res.Listings) == 0 {
		rep.Debug.Notes = append(rep.Debug.Notes, "no search hits kept; nothing to reconcile")
		enter(StateDone)
		return finish()
	}

	enter(StateDeduping)
	rows := signals.DedupeByApplyURL(res.Listings)
	rep.Debug.Deduped = len(res.Listings) - len(rows)

	enter(StateReconciling)
	rec := &signals.Reconciler{Store: p.Store, BatchSize: p.BatchSize, Now: func() time.Time { return now }}
	up, err := rec.Reconcile(ctx, rows, p.Term, p.Source)
	rep.Debug.Upsert = up
	rep.Inserted, rep.Updated, rep.Total = up.Inserted, up.Updated, up.Total
	if err != nil {
		rep.Error = err.Error()
		enter(StateFailed)
		return finish()
	}

	enter(StateDone)
	return finish()
}
