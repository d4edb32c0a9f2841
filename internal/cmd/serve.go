package cmd

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"internwatch-engine/internal/config"
	"internwatch-engine/internal/events"
	"internwatch-engine/internal/httpapi"
	"internwatch-engine/internal/poll"
	"internwatch-engine/internal/runlock"
	"internwatch-engine/internal/scheduler"
	"internwatch-engine/internal/secrets"
	"internwatch-engine/internal/scrape/util"
	"internwatch-engine/internal/store"
)

type ServeCmd struct {
	Addr          string `help:"Listen address (default app.addr)."`
	ShutdownToken string `help:"Enables POST /shutdown from localhost with this X-Shutdown-Token." env:"INTERNWATCH_SHUTDOWN_TOKEN"`
}

func (c *ServeCmd) Run(ctx *Context) error {
	ctx.Overrides.Addr = c.Addr
	cfg, err := ctx.LoadConfig()
	if err != nil {
		return err
	}
	log := ctx.Logger

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	cfgVal.Store(cfg)
	loadCfg := func() (config.Config, error) {
		return ctx.LoadConfig()
	}

	st, err := ctx.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	lock, closeLock, err := ctx.OpenLock(cfg)
	if err != nil {
		return err
	}
	defer closeLock()

	key, err := secrets.FunctionKey()
	switch {
	case errors.Is(err, secrets.ErrNoFunctionKey):
		log.Warn().Msg("no function key configured; /functions endpoints are unauthenticated")
	case err != nil:
		log.Warn().Err(err).Msg("keychain unavailable; /functions endpoints are unauthenticated")
	}

	hub := events.NewHub()
	runner := poll.NewRunner(lock, hub)
	fetcher := NewFetcher(cfg)

	mux := httpapi.NewMux(httpapi.Deps{
		Store:       st,
		Hub:         hub,
		Runner:      runner,
		CfgVal:      &cfgVal,
		UserCfgPath: ctx.ConfigPath,
		LoadCfg:     loadCfg,
		Fetcher:     fetcher,
		FunctionKey: key,
		Logger:      log,
	})

	ln, err := net.Listen("tcp", cfg.App.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           httpapi.Wrap(mux, log, cfg.HTTP.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if c.ShutdownToken != "" {
		mux.HandleFunc("/shutdown", shutdownHandler(c.ShutdownToken, srv))
	}

	runCtx, stop := context.WithCancel(ctx.Ctx)
	defer stop()
	var wg sync.WaitGroup
	startSchedules(runCtx, &wg, &cfgVal, st, runner, fetcher)

	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", "http://"+ln.Addr().String()).Str("store", cfg.Store.Driver).Str("lock", cfg.Lock.Backend).Msg("engine listening")
	err = srv.Serve(ln)
	stop()
	wg.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		log.Info().Msg("engine stopped")
		return nil
	}
	return err
}

// startSchedules launches the periodic pipelines. Each tick reads the
// current config so edits made over /config apply on the next run.
func startSchedules(ctx context.Context, wg *sync.WaitGroup, cfgVal *atomic.Value, st store.Store, runner *poll.Runner, fetcher *util.Client) {
	cfg := cfgVal.Load().(config.Config)

	wg.Add(1)
	go func() {
		defer wg.Done()
		interval := time.Duration(cfg.Refresh.IntervalMinutes) * time.Minute
		scheduler.Every(ctx, interval, poll.NameRefresh, func(ctx context.Context) error {
			cur := cfgVal.Load().(config.Config)
			rep, err := runner.Refresh(ctx, poll.NewRefresher(cur, st, fetcher))
			return scheduledResult(rep.OK, rep.Error, err)
		})
	}()

	if !cfg.Search.Enabled {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		interval := time.Duration(cfg.Search.IntervalMinutes) * time.Minute
		scheduler.Every(ctx, interval, poll.NameSearch, func(ctx context.Context) error {
			cur := cfgVal.Load().(config.Config)
			if !cur.Search.Enabled {
				return nil
			}
			p := poll.NewSearchPipeline(cur, st, poll.NewProvider(cur, fetcher))
			rep, err := runner.Search(ctx, p)
			return scheduledResult(rep.OK, rep.Error, err)
		})
	}()
}

func scheduledResult(ok bool, msg string, err error) error {
	switch {
	case errors.Is(err, runlock.ErrLocked):
		// another instance or a manual call has it
		return nil
	case err != nil:
		return err
	case !ok:
		return fmt.Errorf("%w: %s", ErrRunFailed, msg)
	}
	return nil
}

func shutdownHandler(token string, srv *http.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		got := r.Header.Get("X-Shutdown-Token")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// Respond immediately, then shutdown asynchronously
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("shutting down\n"))

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}
}
