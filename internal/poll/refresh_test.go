package poll

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"internwatch-engine/internal/domain"
	"internwatch-engine/internal/scrape/util"
	"internwatch-engine/internal/signals"
	"internwatch-engine/internal/store"
)

const twoRows = `<html><body>
<table>
<thead><tr><th>Company</th><th>Role</th><th>Location</th><th>Application/Link</th></tr></thead>
<tbody>
<tr><td><strong><a href="https://google.com">Google</a></strong></td><td>SWE Intern — Summer 2026</td><td>Waterloo, ON</td><td><a href="https://x/apply1">Apply</a></td></tr>
<tr><td>↳</td><td>Data Intern</td><td>Remote</td><td><a href="https://x/apply2">Apply</a></td></tr>
</tbody>
</table>
<details><summary><strong>Inactive roles</strong></summary>
<table>
<thead><tr><th>Company</th><th>Role</th><th>Location</th><th>Application/Link</th></tr></thead>
<tbody><tr><td>Old Co</td><td>Closed Intern</td><td>NYC</td><td>🔒</td></tr></tbody>
</table>
</details>
</body></html>`

const oneRow = `<table>
<thead><tr><th>Company</th><th>Role</th><th>Location</th><th>Application/Link</th></tr></thead>
<tbody>
<tr><td><strong>Google</strong></td><td>SWE Intern — Summer 2026</td><td>Waterloo, ON</td><td><a href="https://x/apply1">Apply</a></td></tr>
</tbody>
</table>`

type upstream struct {
	mu     sync.Mutex
	body   string
	status int
	hits   atomic.Int32
	srv    *httptest.Server
}

func newUpstream(t *testing.T, body string) *upstream {
	u := &upstream{body: body, status: http.StatusOK}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		u.mu.Lock()
		defer u.mu.Unlock()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(u.status)
		_, _ = w.Write([]byte(u.body))
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) set(status int, body string) {
	u.mu.Lock()
	u.status, u.body = status, body
	u.mu.Unlock()
}

func openStore(t *testing.T) *store.SQLite {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "poll.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newRefresher(st signals.Store, sourceURL string, now *time.Time) *Refresher {
	return &Refresher{
		Store:     st,
		Fetcher:   util.NewClient(5*time.Second, nil, ""),
		SourceURL: sourceURL,
		Term:      "Summer 2026",
		Source:    "github",
		Now:       func() time.Time { return *now },
	}
}

func TestRefreshEndToEnd(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	up := newUpstream(t, twoRows)

	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := t0
	r := newRefresher(db, up.srv.URL, &now)

	rep := r.Run(ctx)
	if !rep.OK || rep.Debug.State != StateDone {
		t.Fatalf("report not ok: %+v", rep)
	}
	if rep.Inserted != 2 || rep.Updated != 0 || rep.Total != 2 {
		t.Fatalf("counts = %d/%d/%d, want 2/0/2", rep.Inserted, rep.Updated, rep.Total)
	}
	p := rep.Debug.Parsing
	if p.Method != "html" || p.TablesFound != 2 || p.ActiveTables != 1 || p.InactiveTables != 1 {
		t.Fatalf("parsing = %+v", p)
	}
	if p.RowsParsed != 2 || p.InactiveRows != 1 || p.Skipped != 0 {
		t.Fatalf("parsing rows = %+v", p)
	}
	if rep.Debug.SourceFetch.Status != http.StatusOK || rep.Debug.SourceFetch.SizeBytes == 0 {
		t.Fatalf("source_fetch = %+v", rep.Debug.SourceFetch)
	}

	active, err := db.ListActive(ctx, store.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 {
		t.Fatalf("active = %d, want 2", len(active))
	}
	byURL := map[string]domain.OpeningSignal{}
	for _, s := range active {
		byURL[s.ApplyURL] = s
	}
	a1, a2 := byURL["https://x/apply1"], byURL["https://x/apply2"]
	if a1.CompanyName != "Google" || a2.CompanyName != "Google" {
		t.Fatalf("companies = %q, %q", a1.CompanyName, a2.CompanyName)
	}
	if strings.Contains(a1.RoleTitle, "Summer") || strings.Contains(a1.RoleTitle, "2026") {
		t.Fatalf("role not normalized: %q", a1.RoleTitle)
	}
	if a1.ListingHash == a2.ListingHash {
		t.Fatal("hashes collide")
	}
	for _, s := range active {
		if s.AgeDays == nil || *s.AgeDays != 0 {
			t.Fatalf("age_days = %v, want 0", s.AgeDays)
		}
		if s.PostedAt == nil || !s.PostedAt.Equal(t0) {
			t.Fatalf("posted_at = %v, want %v", s.PostedAt, t0)
		}
		if s.Term != "Summer 2026" || !s.IsActive {
			t.Fatalf("signal = %+v", s)
		}
	}

	// second pass, apply2 gone upstream
	up.set(http.StatusOK, oneRow)
	now = t0.Add(2 * time.Hour)
	rep = r.Run(ctx)
	if !rep.OK || rep.Inserted != 0 || rep.Updated != 1 {
		t.Fatalf("second run = %+v", rep)
	}

	// 49h after apply2 was last seen
	now = t0.Add(49 * time.Hour)
	rep = r.Run(ctx)
	if !rep.OK {
		t.Fatalf("third run failed: %s", rep.Error)
	}
	if rep.Deactivated != 1 || rep.Debug.StaleCleanup.Deactivated != 1 {
		t.Fatalf("deactivated = %d", rep.Deactivated)
	}

	gone, err := db.GetSignal(ctx, a2.ListingHash)
	if err != nil {
		t.Fatal(err)
	}
	if gone.IsActive {
		t.Fatal("apply2 still active after 49h")
	}
	kept, err := db.GetSignal(ctx, a1.ListingHash)
	if err != nil {
		t.Fatal(err)
	}
	if !kept.IsActive || !kept.FirstSeenAt.Equal(a1.FirstSeenAt) || kept.ID != a1.ID {
		t.Fatalf("apply1 = %+v, want active with unchanged identity", kept)
	}
}

func TestRefreshFetchFailureStillSweeps(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	up := newUpstream(t, twoRows)

	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := t0
	r := newRefresher(db, up.srv.URL, &now)
	if rep := r.Run(ctx); !rep.OK {
		t.Fatalf("seed run: %+v", rep)
	}

	up.set(http.StatusServiceUnavailable, "down")
	now = t0.Add(72 * time.Hour)
	rep := r.Run(ctx)
	if rep.OK || rep.Debug.State != StateFailed {
		t.Fatalf("expected failure, got %+v", rep)
	}
	if rep.Debug.SourceFetch.Status != http.StatusServiceUnavailable || rep.Debug.SourceFetch.Error == "" {
		t.Fatalf("source_fetch = %+v", rep.Debug.SourceFetch)
	}
	if rep.Error == "" {
		t.Fatal("error message missing")
	}
	if rep.Deactivated != 2 {
		t.Fatalf("sweep should still run: deactivated = %d", rep.Deactivated)
	}
}

func TestRefreshEmptyDocumentIsDone(t *testing.T) {
	db := openStore(t)
	up := newUpstream(t, "<html><body><p>No roles right now</p></body></html>")
	now := time.Now().UTC()
	rep := newRefresher(db, up.srv.URL, &now).Run(context.Background())

	if !rep.OK || rep.Debug.State != StateDone {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Total != 0 || len(rep.Debug.Notes) == 0 {
		t.Fatalf("want zero counts and a note, got total=%d notes=%v", rep.Total, rep.Debug.Notes)
	}
}

func TestRefreshBrokenRowIsIsolated(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<table><thead><tr><th>Company</th><th>Role</th><th>Location</th><th>Link</th></tr></thead><tbody>`)
	for i := 0; i < 9; i++ {
		b.WriteString(`<tr><td>Acme</td><td>Intern ` + string(rune('A'+i)) + `</td><td>Remote</td><td><a href="https://acme.example/` + string(rune('a'+i)) + `">Apply</a></td></tr>`)
	}
	b.WriteString(`<tr><td>only one cell</td></tr></tbody></table>`)

	db := openStore(t)
	up := newUpstream(t, b.String())
	now := time.Now().UTC()
	rep := newRefresher(db, up.srv.URL, &now).Run(context.Background())

	if !rep.OK || rep.Inserted != 9 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Debug.Parsing.Skipped != 1 || len(rep.Debug.Parsing.Errors) == 0 {
		t.Fatalf("parsing = %+v", rep.Debug.Parsing)
	}
}

func TestRefreshStructuredProbeWins(t *testing.T) {
	var htmlHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/missing.json", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/empty.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/listings.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"company_name":"Acme","title":"Backend Intern (Summer 2026)","locations":["Toronto, ON","Remote"],"url":"https://jobs.example.com/1","age":"3d"},
			{"company":"Acme","role":"Closed Intern","url":"https://jobs.example.com/2","active":false}
		]`))
	})
	mux.HandleFunc("/readme", func(w http.ResponseWriter, r *http.Request) {
		htmlHits.Add(1)
		_, _ = w.Write([]byte(twoRows))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	db := openStore(t)
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	r := newRefresher(db, srv.URL+"/readme", &now)
	r.StructuredURLs = []string{srv.URL + "/missing.json", srv.URL + "/empty.json", srv.URL + "/listings.json"}

	rep := r.Run(context.Background())
	if !rep.OK || rep.Inserted != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Debug.Parsing.Method != "structured" || rep.Debug.Parsing.InactiveRows != 1 {
		t.Fatalf("parsing = %+v", rep.Debug.Parsing)
	}
	if !strings.HasSuffix(rep.Debug.SourceFetch.URL, "/listings.json") {
		t.Fatalf("source_fetch.url = %q", rep.Debug.SourceFetch.URL)
	}
	if htmlHits.Load() != 0 {
		t.Fatal("html source fetched although a probe returned rows")
	}

	active, err := db.ListActive(context.Background(), store.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].AgeDays == nil || *active[0].AgeDays != 3 {
		t.Fatalf("active = %+v", active)
	}
}

// failingStore accepts lookups and fails every upsert.
type failingStore struct{ signals.Store }

func (failingStore) KnownSignals(context.Context, []string) (map[string]domain.KnownSignal, error) {
	return map[string]domain.KnownSignal{}, nil
}
func (failingStore) UpsertSignals(context.Context, []domain.OpeningSignal) error {
	return errors.New("connection reset")
}
func (failingStore) DeactivateStale(context.Context, time.Time) (int64, error) {
	return 0, errors.New("sweep unavailable")
}

func TestRefreshUpsertFailure(t *testing.T) {
	up := newUpstream(t, twoRows)
	now := time.Now().UTC()
	rep := newRefresher(failingStore{}, up.srv.URL, &now).Run(context.Background())

	if rep.OK || rep.Debug.State != StateFailed {
		t.Fatalf("report = %+v", rep)
	}
	if !strings.Contains(rep.Error, "connection reset") || len(rep.Debug.Upsert.Errors) != 1 {
		t.Fatalf("error = %q upsert = %+v", rep.Error, rep.Debug.Upsert)
	}
	if rep.Debug.StaleCleanup.Error != "sweep unavailable" {
		t.Fatalf("stale_cleanup = %+v", rep.Debug.StaleCleanup)
	}
	if rep.Debug.Parsing.RowsParsed != 2 {
		t.Fatalf("parsing diagnostics lost: %+v", rep.Debug.Parsing)
	}
}

func TestRefreshWithoutSource(t *testing.T) {
	now := time.Now().UTC()
	rep := newRefresher(failingStore{}, "", &now).Run(context.Background())
	if rep.OK || rep.Debug.State != StateFailed || rep.Debug.SourceFetch.Error == "" {
		t.Fatalf("report = %+v", rep)
	}
}
