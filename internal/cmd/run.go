package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"internwatch-engine/internal/config"
	"internwatch-engine/internal/poll"
	"internwatch-engine/internal/runlock"
	"internwatch-engine/internal/signals"
)

// ErrRunFailed makes the process exit non-zero after the report has been
// printed.
var ErrRunFailed = errors.New("run failed")

type RefreshCmd struct {
	SourceURL string `help:"Override refresh.source_url." name:"source-url"`
	Term      string `help:"Override refresh.term."`
}

func (c *RefreshCmd) Run(ctx *Context) error {
	cfg, err := ctx.LoadConfig()
	if err != nil {
		return err
	}
	config.Overlay(&cfg, config.Overrides{SourceURL: c.SourceURL, Term: c.Term})

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

	runner := poll.NewRunner(lock, nil)
	rep, err := runner.Refresh(ctx.Ctx, poll.NewRefresher(cfg, st, NewFetcher(cfg)))
	if err != nil {
		return printRunError(ctx.Out, err)
	}
	if err := printJSON(ctx.Out, rep); err != nil {
		return err
	}
	if !rep.OK {
		return fmt.Errorf("%w: %s", ErrRunFailed, rep.Error)
	}
	return nil
}

type SearchCmd struct {
	Query []string `help:"Query to run instead of search.queries (repeatable)." short:"q"`
}

func (c *SearchCmd) Run(ctx *Context) error {
	cfg, err := ctx.LoadConfig()
	if err != nil {
		return err
	}
	if len(c.Query) > 0 {
		cfg.Search.Queries = c.Query
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

	fetcher := NewFetcher(cfg)
	runner := poll.NewRunner(lock, nil)
	rep, err := runner.Search(ctx.Ctx, poll.NewSearchPipeline(cfg, st, poll.NewProvider(cfg, fetcher)))
	if err != nil {
		return printRunError(ctx.Out, err)
	}
	if err := printJSON(ctx.Out, rep); err != nil {
		return err
	}
	if !rep.OK {
		return fmt.Errorf("%w: %s", ErrRunFailed, rep.Error)
	}
	return nil
}

type SweepCmd struct {
	Hours int `help:"Freshness window in hours (default refresh.freshness_hours)."`
}

func (c *SweepCmd) Run(ctx *Context) error {
	cfg, err := ctx.LoadConfig()
	if err != nil {
		return err
	}
	st, err := ctx.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if c.Hours > 0 {
		cfg.Refresh.FreshnessHours = c.Hours
	}
	window := cfg.FreshnessWindow()
	n, err := (&signals.Sweeper{Store: st, Window: window}).Sweep(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	ctx.Logger.Info().Int64("deactivated", n).Dur("window", window).Msg("sweep done")
	return printJSON(ctx.Out, map[string]any{"ok": true, "deactivated": n})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRunError reports a run that never started, in the same shape the
// function endpoints use.
func printRunError(w io.Writer, err error) error {
	_ = printJSON(w, map[string]any{"ok": false, "error": err.Error()})
	if errors.Is(err, runlock.ErrLocked) {
		return fmt.Errorf("%w: %w", ErrRunFailed, err)
	}
	return err
}
