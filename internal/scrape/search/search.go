// Package search turns search-engine result feeds into listings: it runs
// the configured queries in small paced batches, scores each hit, and keeps
// the ones that look like Canadian internships.
package search

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"internwatch-engine/internal/domain"
	"internwatch-engine/internal/rank"
)

const (
	DefaultBatchSize  = 3
	DefaultBatchPause = time.Second
)

var ErrAllQueriesFailed = errors.New("all search queries failed")

type QueryReport struct {
	Query string `json:"query"`
	Hits  int    `json:"hits"`
	Kept  int    `json:"kept"`
	Error string `json:"error,omitempty"`
}

type Result struct {
	Listings []domain.ParsedListing `json:"-"`
	Queries  []QueryReport          `json:"queries"`
	Hits     int                    `json:"hits"`
	Kept     int                    `json:"kept"`
	Failed   int                    `json:"failed"`
	Dropped  map[string]int         `json:"dropped"`
}

type Searcher struct {
	Provider   Provider
	Scorer     rank.Scorer
	Filter     Filter
	MinScore   int
	Term       string
	BatchSize  int
	BatchPause time.Duration

	// Sleep waits between batches; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Run executes queries BatchSize at a time, waiting BatchPause between
// batches. A failing query is recorded and skipped; the run only fails when
// every query did.
func (s *Searcher) Run(ctx context.Context, queries []string) (Result, error) {
	res := Result{Queries: []QueryReport{}, Dropped: map[string]int{}}
	log := zerolog.Ctx(ctx)

	size := s.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	for start := 0; start < len(queries); start += size {
		if start > 0 {
			if err := s.sleep(ctx, s.BatchPause); err != nil {
				return res, err
			}
		}
		end := min(start+size, len(queries))
		batch := queries[start:end]

		reports := make([]QueryReport, len(batch))
		found := make([][]domain.ParsedListing, len(batch))
		dropped := make([]map[string]int, len(batch))

		var g errgroup.Group
		g.SetLimit(size)
		for i, q := range batch {
			i, q := i, q
			g.Go(func() error {
				reports[i], found[i], dropped[i] = s.runQuery(ctx, q)
				return nil
			})
		}
		_ = g.Wait()

		for i := range batch {
			res.Queries = append(res.Queries, reports[i])
			res.Hits += reports[i].Hits
			res.Kept += reports[i].Kept
			res.Listings = append(res.Listings, found[i]...)
			if reports[i].Error != "" {
				res.Failed++
				log.Warn().Str("query", reports[i].Query).Str("error", reports[i].Error).Msg("search query failed")
			}
			for k, v := range dropped[i] {
				res.Dropped[k] += v
			}
		}
		log.Debug().Int("batch_start", start).Int("queries", len(batch)).Msg("search batch done")
	}

	if len(queries) > 0 && res.Failed == len(queries) {
		return res, ErrAllQueriesFailed
	}
	return res, nil
}

func (s *Searcher) runQuery(ctx context.Context, q string) (QueryReport, []domain.ParsedListing, map[string]int) {
	rep := QueryReport{Query: q}
	dropped := map[string]int{}

	hits, err := s.Provider.Search(ctx, q)
	if err != nil {
		rep.Error = err.Error()
		return rep, nil, dropped
	}
	rep.Hits = len(hits)

	var out []domain.ParsedListing
	for _, h := range hits {
		if s.Scorer != nil {
			if score, _ := s.Scorer.Score(h); score < s.MinScore {
				dropped["low_score"]++
				continue
			}
		}
		l, ok := Extract(h, s.Term)
		if !ok {
			dropped["unparseable"]++
			continue
		}
		if keep, reason := s.Filter.Keep(l, h); !keep {
			dropped[reason]++
			continue
		}
		out = append(out, l)
	}
	rep.Kept = len(out)
	return rep, out, dropped
}

func (s *Searcher) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

