package httpapi

import (
	"context"
	"net/http"
	"sync/atomic"

	"internwatch-engine/internal/config"
	"internwatch-engine/internal/poll"
	"internwatch-engine/internal/scrape/search"
	"internwatch-engine/internal/scrape/types"
	"internwatch-engine/internal/store"
)

// FunctionsHandler exposes the two ingestion pipelines. Bodies are ignored;
// every answer, including failures, is the run report.
type FunctionsHandler struct {
	Store    store.Store
	Runner   *poll.Runner
	CfgVal   *atomic.Value // config.Config
	Fetcher  types.Fetcher
	Provider func(cfg config.Config) search.Provider
}

func (h FunctionsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)
	p := poll.NewRefresher(cfg, h.Store, h.Fetcher)

	// A dropped client must not abort a run halfway through reconcile.
	rep, err := h.Runner.Refresh(context.WithoutCancel(r.Context()), p)
	if err != nil {
		writeRunError(w, r, err)
		return
	}
	WriteJSON(w, reportStatus(rep.OK), rep)
}

func (h FunctionsHandler) Search(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)
	provider := poll.NewProvider(cfg, h.Fetcher)
	if h.Provider != nil {
		provider = h.Provider(cfg)
	}
	p := poll.NewSearchPipeline(cfg, h.Store, provider)

	rep, err := h.Runner.Search(context.WithoutCancel(r.Context()), p)
	if err != nil {
		writeRunError(w, r, err)
		return
	}
	WriteJSON(w, reportStatus(rep.OK), rep)
}

func (h FunctionsHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Runner.Status())
}

func reportStatus(ok bool) int {
	if ok {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}
