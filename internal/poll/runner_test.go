package poll

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"internwatch-engine/internal/domain"
	"internwatch-engine/internal/events"
	"internwatch-engine/internal/runlock"
	"internwatch-engine/internal/scrape/search"
	"internwatch-engine/internal/store"
)

type staticProvider map[string][]domain.SearchHit

func (p staticProvider) Search(_ context.Context, q string) ([]domain.SearchHit, error) {
	hits, ok := p[q]
	if !ok {
		return nil, errors.New("no such query")
	}
	return hits, nil
}

func newSearchPipeline(st store.Store, provider search.Provider, queries ...string) *SearchPipeline {
	return &SearchPipeline{
		Store: st,
		Searcher: &search.Searcher{
			Provider: provider,
			Term:     "Summer 2026",
			Sleep:    func(context.Context, time.Duration) error { return nil },
		},
		Queries: queries,
		Term:    "Summer 2026",
		Source:  "search",
	}
}

func TestSearchPipeline(t *testing.T) {
	db := openStore(t)
	hit := domain.SearchHit{Title: "Software Intern at Acme - Toronto, ON", Link: "https://jobs.lever.co/acme/1"}
	dup := domain.SearchHit{Title: "Software Intern - Acme", Link: "https://jobs.lever.co/acme/1?utm_source=feed"}
	p := newSearchPipeline(db, staticProvider{"a": {hit}, "b": {dup}}, "a", "b", "c")

	rep := p.Run(context.Background())
	if !rep.OK || rep.Debug.State != StateDone {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Inserted != 1 || rep.Debug.Deduped != 1 {
		t.Fatalf("inserted=%d deduped=%d", rep.Inserted, rep.Debug.Deduped)
	}
	if rep.Debug.Search.Failed != 1 {
		t.Fatalf("failed queries = %d, want 1", rep.Debug.Search.Failed)
	}

	active, err := db.ListActive(context.Background(), store.ListOpts{Source: "search"})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].CompanyName != "Acme" || active[0].Location != "Toronto, ON" {
		t.Fatalf("active = %+v", active)
	}
}

func TestSearchPipelineAllQueriesFail(t *testing.T) {
	db := openStore(t)
	rep := newSearchPipeline(db, staticProvider{}, "x", "y").Run(context.Background())
	if rep.OK || rep.Debug.State != StateFailed || rep.Error == "" {
		t.Fatalf("report = %+v", rep)
	}
}

func TestRunnerRejectsOverlap(t *testing.T) {
	hub := events.NewHub()
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	lock := runlock.File{Path: filepath.Join(t.TempDir(), "iw.lock")}
	r := NewRunner(lock, hub)
	db := openStore(t)
	up := newUpstream(t, twoRows)
	now := time.Now().UTC()
	ref := newRefresher(db, up.srv.URL, &now)

	// hold the cross-process lock as another instance would
	release, err := lock.TryLock(context.Background(), NameRefresh)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Refresh(context.Background(), ref); !errors.Is(err, runlock.ErrLocked) {
		t.Fatalf("err = %v, want ErrLocked", err)
	}
	if st := r.Status()[NameRefresh]; st.Running {
		t.Fatal("status left running after lock conflict")
	}
	if up.hits.Load() != 0 {
		t.Fatal("pipeline ran while locked")
	}
	release()

	ctx := events.WithRequestID(context.Background(), "req-42")
	rep, err := r.Refresh(ctx, ref)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !rep.OK {
		t.Fatalf("report = %+v", rep)
	}

	st := r.Status()[NameRefresh]
	if st.Running || st.LastError != "" || st.LastInserted != 2 || st.LastRunID != rep.Debug.RunID || st.LastOkAt == "" {
		t.Fatalf("status = %+v", st)
	}

	var types []string
	for len(sub) > 0 {
		var e events.Event
		if err := json.Unmarshal([]byte(<-sub), &e); err != nil {
			t.Fatal(err)
		}
		if e.RequestID != "req-42" {
			t.Fatalf("event request id = %q", e.RequestID)
		}
		types = append(types, e.Type)
	}
	if len(types) != 2 || types[0] != events.TypeRunStarted || types[1] != events.TypeRefreshCompleted {
		t.Fatalf("events = %v", types)
	}
}

func TestRunnerInProcessGuard(t *testing.T) {
	r := NewRunner(nil, nil)
	if !r.begin(NameSearch) {
		t.Fatal("first begin refused")
	}
	db := openStore(t)
	_, err := r.Search(context.Background(), newSearchPipeline(db, staticProvider{}, "q"))
	if !errors.Is(err, runlock.ErrLocked) {
		t.Fatalf("err = %v, want ErrLocked", err)
	}
}

func TestRunnerClearsStatusAfterPanic(t *testing.T) {
	r := NewRunner(nil, events.NewHub())
	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("panic was swallowed")
			}
		}()
		_, _ = run(context.Background(), r, NameRefresh, events.TypeRefreshCompleted, func(context.Context) Report {
			panic("boom")
		})
	}()
	if r.Status()[NameRefresh].Running {
		t.Fatal("status left running after panic")
	}
	if !r.begin(NameRefresh) {
		t.Fatal("refresh still blocked after panic")
	}
}
