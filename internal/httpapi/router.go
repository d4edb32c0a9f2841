package httpapi

import (
	"net/http"

	"github.com/rs/zerolog"
)

// NewMux registers every route. Handler wraps it with the middleware chain.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Functions
	fh := FunctionsHandler{
		Store:    d.Store,
		Runner:   d.Runner,
		CfgVal:   d.CfgVal,
		Fetcher:  d.Fetcher,
		Provider: d.Provider,
	}
	auth := RequireFunctionKey(d.FunctionKey)
	mux.Handle("/functions/refresh-opening-signals", auth(methodMux(map[string]http.HandlerFunc{
		http.MethodPost: fh.Refresh,
	})))
	mux.Handle("/functions/search-canada-internships", auth(methodMux(map[string]http.HandlerFunc{
		http.MethodPost: fh.Search,
	})))
	mux.HandleFunc("/functions/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: fh.Status,
	}))

	// Listings + inbox
	sh := SignalsHandler{Store: d.Store}
	mux.HandleFunc("/opening-signals", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sh.List,
	}))
	ih := InboxHandler{Store: d.Store}
	mux.HandleFunc("/inbox/", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ih.List,      // /inbox/{user}
		http.MethodPut: ih.SetStatus, // /inbox/{user}/{opening_id}
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	hh := HealthHandler{Store: d.Store}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	return mux
}

// Wrap puts h behind CORS, request ids, logging and panic recovery.
func Wrap(h http.Handler, logger zerolog.Logger, allowedOrigins []string) http.Handler {
	return Chain(h,
		RequestID,
		Logger(logger),
		AccessLog,
		Recover,
		CORS(allowedOrigins),
	)
}

// Handler is NewMux behind Wrap.
func Handler(d Deps, allowedOrigins []string) http.Handler {
	return Wrap(NewMux(d), d.Logger, allowedOrigins)
}
