package poll

import (
	"internwatch-engine/internal/config"
	"internwatch-engine/internal/rank"
	"internwatch-engine/internal/scrape/boards"
	"internwatch-engine/internal/scrape/search"
	"internwatch-engine/internal/scrape/types"
	"internwatch-engine/internal/signals"
)

// NewRefresher wires a refresh pass from the current config.
func NewRefresher(cfg config.Config, st signals.Store, f types.Fetcher) *Refresher {
	return &Refresher{
		Store:           st,
		Fetcher:         f,
		SourceURL:       cfg.Refresh.SourceURL,
		StructuredURLs:  cfg.Refresh.StructuredURLs,
		Term:            cfg.Refresh.Term,
		Source:          cfg.Refresh.Source,
		BatchSize:       cfg.Store.UpsertBatch,
		FreshnessWindow: cfg.FreshnessWindow(),
		FetchTimeout:    cfg.FetchTimeout(),
	}
}

// NewSearchPipeline wires a search pass; provider is usually a
// search.FeedProvider over the shared client.
func NewSearchPipeline(cfg config.Config, st signals.Store, provider search.Provider) *SearchPipeline {
	return &SearchPipeline{
		Store: st,
		Searcher: &search.Searcher{
			Provider:   provider,
			Scorer:     rank.YAMLScorer{Cfg: cfg},
			Filter:     search.Filter{Allow: cfg.Search.LocationsAllow, Block: cfg.Search.LocationsBlock},
			MinScore:   cfg.Search.MinScore,
			Term:       cfg.Search.Term,
			BatchSize:  cfg.Search.BatchSize,
			BatchPause: cfg.BatchPause(),
		},
		Queries:   cfg.Search.Queries,
		Term:      cfg.Search.Term,
		Source:    cfg.Search.Source,
		BatchSize: cfg.Store.UpsertBatch,
	}
}

// NewProvider answers "<ats>:<slug>" queries from the public board APIs
// and sends free-text queries to cfg.Search.ProviderURL.
func NewProvider(cfg config.Config, f types.Fetcher) search.Provider {
	return boards.Provider{
		Client:   f,
		Fallback: search.FeedProvider{Client: f, URLTemplate: cfg.Search.ProviderURL},
	}
}
