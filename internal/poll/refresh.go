package poll

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"internwatch-engine/internal/scrape/listing"
	"internwatch-engine/internal/scrape/types"
	"internwatch-engine/internal/scrape/util"
	"internwatch-engine/internal/signals"
)

const (
	htmlAccept       = "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5"
	structuredAccept = "application/json,text/csv;q=0.9,*/*;q=0.5"
)

// Refresher runs one refresh_opening_signals pass:
// SWEEPING -> FETCHING -> PARSING -> DEDUPING -> RECONCILING -> DONE,
// with FAILED reachable from FETCHING and RECONCILING only.
type Refresher struct {
	Store   signals.Store
	Fetcher types.Fetcher

	SourceURL      string
	StructuredURLs []string
	Term           string
	Source         string

	BatchSize       int
	FreshnessWindow time.Duration
	FetchTimeout    time.Duration
	Now             func() time.Time
}

type fetched struct {
	method string
	fetch  SourceFetch
	body   []byte
	parsed listing.Structured // set when method is structured
}

func (r *Refresher) Run(ctx context.Context) Report {
	start := time.Now()
	now := r.now()
	rep := Report{Debug: Debug{
		RunID:   uuid.NewString(),
		Parsing: Parsing{Errors: []string{}},
		Upsert:  signals.ReconcileResult{Errors: []string{}},
		Notes:   []string{},
	}}
	log := zerolog.Ctx(ctx).With().Str("run_id", rep.Debug.RunID).Str("pipeline", "refresh").Logger()
	ctx = log.WithContext(ctx)

	enter := func(s State) {
		rep.Debug.State = s
		log.Info().Str("state", string(s)).Msg("refresh state")
	}
	finish := func() Report {
		rep.Debug.DurationMS = time.Since(start).Milliseconds()
		rep.OK = rep.Debug.State == StateDone
		return rep
	}

	enter(StateSweeping)
	sw := &signals.Sweeper{Store: r.Store, Window: r.FreshnessWindow, Now: func() time.Time { return now }}
	n, err := sw.Sweep(ctx)
	rep.Debug.StaleCleanup.Deactivated = n
	rep.Deactivated = n
	if err != nil {
		rep.Debug.StaleCleanup.Error = err.Error()
		log.Warn().Err(err).Msg("stale sweep failed")
	}

	enter(StateFetching)
	src, err := r.fetch(ctx, now)
	rep.Debug.SourceFetch = src.fetch
	if err != nil {
		rep.Error = err.Error()
		enter(StateFailed)
		return finish()
	}
	rep.Debug.Parsing.Method = src.method

	enter(StateParsing)
	opts := listing.Options{Term: r.Term, BaseURL: src.fetch.URL, Now: now}
	var active listing.TableResult
	switch src.method {
	case "structured":
		active = src.parsed.Active
		rep.Debug.Parsing.InactiveRows = len(src.parsed.Inactive.Rows)
		rep.Debug.Notes = append(rep.Debug.Notes, "structured source "+src.fetch.URL+" used; html parsing skipped")
	default:
		tables, err := listing.ExtractTablesHTML(string(src.body))
		if err != nil {
			rep.Debug.Parsing.Errors = append(rep.Debug.Parsing.Errors, "document: "+err.Error())
		}
		rep.Debug.Parsing.TablesFound = tables.Count()
		rep.Debug.Parsing.ActiveTables = len(tables.Active)
		rep.Debug.Parsing.InactiveTables = len(tables.Inactive)

		active = listing.ParseTables(tables.Active, opts)

		inOpts := opts
		inOpts.AllowMissingApplyURL = true
		inactive := listing.ParseTables(tables.Inactive, inOpts)
		rep.Debug.Parsing.InactiveRows = len(inactive.Rows)
		for _, e := range inactive.Errors {
			rep.Debug.Parsing.Errors = append(rep.Debug.Parsing.Errors, "inactive "+e)
		}
		rep.Debug.Parsing.Skipped += inactive.Skipped

		if tables.Count() == 0 {
			rep.Debug.Notes = append(rep.Debug.Notes, "no tables found in source document")
		}
	}
	rep.Debug.Parsing.RowsParsed = len(active.Rows)
	rep.Debug.Parsing.Skipped += active.Skipped
	rep.Debug.Parsing.Errors = append(rep.Debug.Parsing.Errors, active.Errors...)

	if len(active.Rows) == 0 {
		rep.Debug.Notes = append(rep.Debug.Notes, "no active rows parsed; nothing to reconcile")
		enter(StateDone)
		return finish()
	}

	enter(StateDeduping)
	rows := signals.DedupeByApplyURL(active.Rows)
	rep.Debug.Parsing.Deduped = len(active.Rows) - len(rows)

	enter(StateReconciling)
	rec := &signals.Reconciler{Store: r.Store, BatchSize: r.BatchSize, Now: func() time.Time { return now }}
	res, err := rec.Reconcile(ctx, rows, r.Term, r.Source)
	rep.Debug.Upsert = res
	rep.Inserted, rep.Updated, rep.Total = res.Inserted, res.Updated, res.Total
	if err != nil {
		rep.Error = err.Error()
		enter(StateFailed)
		return finish()
	}

	enter(StateDone)
	return finish()
}

// fetch tries the structured probes first and falls back to the HTML
// source. Probe failures are never reported.
func (r *Refresher) fetch(ctx context.Context, now time.Time) (fetched, error) {
	if hit, ok := r.probe(ctx, now); ok {
		return hit, nil
	}

	out := fetched{method: "html", fetch: SourceFetch{URL: r.SourceURL}}
	if strings.TrimSpace(r.SourceURL) == "" {
		out.fetch.Error = "no source url configured"
		return out, errors.New(out.fetch.Error)
	}

	fctx, cancel := r.withTimeout(ctx)
	defer cancel()
	res, err := r.Fetcher.Get(fctx, r.SourceURL, htmlAccept)
	out.fetch.Status = res.Status
	out.fetch.SizeBytes = len(res.Body)
	if err != nil {
		if out.fetch.Status == 0 {
			out.fetch.Status = statusOf(err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("fetch %s: timed out: %w", r.SourceURL, err)
		}
		out.fetch.Error = err.Error()
		return out, err
	}
	out.body = res.Body
	return out, nil
}

// probe fetches every structured URL concurrently; the first one that
// parses to at least one active row wins and cancels the rest.
func (r *Refresher) probe(ctx context.Context, now time.Time) (fetched, bool) {
	if len(r.StructuredURLs) == 0 {
		return fetched{}, false
	}

	pctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var (
		mu     sync.Mutex
		winner *fetched
	)
	g, gctx := errgroup.WithContext(pctx)
	for _, u := range r.StructuredURLs {
		u := u
		g.Go(func() error {
			res, err := r.Fetcher.Get(gctx, u, structuredAccept)
			if err != nil {
				return nil
			}
			parsed, err := listing.ParseStructured(res.Body, res.ContentType, listing.Options{
				Term: r.Term, BaseURL: u, Now: now,
			})
			if err != nil || len(parsed.Active.Rows) == 0 {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			if winner == nil {
				winner = &fetched{
					method: "structured",
					fetch:  SourceFetch{Status: res.Status, URL: u, SizeBytes: len(res.Body)},
					parsed: parsed,
				}
				cancel()
			}
			return nil
		})
	}
	_ = g.Wait()

	if winner == nil {
		return fetched{}, false
	}
	return *winner, true
}

func (r *Refresher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	d := r.FetchTimeout
	if d <= 0 {
		d = 30 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (r *Refresher) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// statusOf pulls the upstream status out of a fetch error, 0 if none.
func statusOf(err error) int {
	var se *util.HTTPStatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
