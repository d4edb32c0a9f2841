package signals

import (
	"context"
	"testing"
	"time"

	"internwatch-engine/internal/domain"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func listing(company, role, url string) domain.ParsedListing {
	return domain.ParsedListing{CompanyName: company, RoleTitle: role, Location: "Remote", ApplyURL: url}
}

func TestListingHash(t *testing.T) {
	base := ListingHash("Acme", "SWE Intern", "Toronto, ON", "Summer 2026", "https://x/apply")
	if base != ListingHash("Acme", "SWE Intern", "Toronto, ON", "Summer 2026", "https://x/apply") {
		t.Fatal("hash not stable")
	}
	if len(base) != 64 {
		t.Fatalf("want 64 hex chars, got %d", len(base))
	}
	if base != ListingHash(" acme ", "SWE  intern", "toronto, on", "summer 2026", "HTTPS://X/APPLY") {
		t.Fatal("whitespace/casing changed the hash")
	}

	variants := [][5]string{
		{"Acme2", "SWE Intern", "Toronto, ON", "Summer 2026", "https://x/apply"},
		{"Acme", "Data Intern", "Toronto, ON", "Summer 2026", "https://x/apply"},
		{"Acme", "SWE Intern", "", "Summer 2026", "https://x/apply"},
		{"Acme", "SWE Intern", "Toronto, ON", "Fall 2026", "https://x/apply"},
		{"Acme", "SWE Intern", "Toronto, ON", "Summer 2026", "https://x/apply2"},
	}
	seen := map[string]bool{base: true}
	for _, v := range variants {
		h := ListingHash(v[0], v[1], v[2], v[3], v[4])
		if seen[h] {
			t.Fatalf("collision for %v", v)
		}
		seen[h] = true
	}

	// field boundaries matter
	if ListingHash("ab", "c", "", "", "") == ListingHash("a", "bc", "", "", "") {
		t.Fatal("shifted field boundary collided")
	}
}

func TestDedupeByApplyURL(t *testing.T) {
	rows := []domain.ParsedListing{
		listing("First", "A", "https://x.com/Apply"),
		listing("Second", "B", "  HTTPS://X.COM/apply "),
		listing("NoURL", "C", ""),
		listing("Third", "D", "https://x.com/other"),
	}
	got := DedupeByApplyURL(rows)
	if len(got) != 2 {
		t.Fatalf("want 2 rows, got %d: %+v", len(got), got)
	}
	if got[0].CompanyName != "First" || got[1].CompanyName != "Third" {
		t.Fatalf("wrong survivors: %+v", got)
	}
}

func TestAgeDerivation(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	posted, age := PostedFromAge(3, now)
	if age != 3 || !posted.Equal(now.Add(-72*time.Hour)) {
		t.Fatalf("PostedFromAge: %v %d", posted, age)
	}
	if p, a := AgeFromPosted(posted, now); a != 3 || !p.Equal(posted) {
		t.Fatalf("round trip: %v %d", p, a)
	}
	if p, a := AgeFromPosted(now.Add(-36*time.Hour), now); a != 1 || p.IsZero() {
		t.Fatalf("floor: %d", a)
	}
	if p, a := AgeFromPosted(now.Add(48*time.Hour), now); a != 0 || !p.Equal(now) {
		t.Fatalf("future date not clamped: %v %d", p, a)
	}
	if p, a := AgeFromPosted(time.Time{}, now); a != 0 || !p.Equal(now) {
		t.Fatalf("zero date: %v %d", p, a)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	clk := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	r := &Reconciler{Store: st, Now: clk.Now}

	rows := []domain.ParsedListing{
		listing("Google", "SWE Intern", "https://x/apply1"),
		listing("Google", "Data Intern", "https://x/apply2"),
	}
	for i := range rows {
		rows[i].PostedAt = clk.t
	}

	first, err := r.Reconcile(ctx, rows, "Summer 2026", "github")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Inserted != 2 || first.Updated != 0 || first.Total != 2 {
		t.Fatalf("first run counts: %+v", first)
	}

	h := ListingHash("Google", "SWE Intern", "Remote", "Summer 2026", "https://x/apply1")
	before, _ := st.get(h)

	clk.t = clk.t.Add(6 * time.Hour)
	second, err := r.Reconcile(ctx, rows, "Summer 2026", "github")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Inserted != 0 || second.Updated != 2 {
		t.Fatalf("second run counts: %+v", second)
	}

	after, _ := st.get(h)
	if !after.FirstSeenAt.Equal(before.FirstSeenAt) || after.ID != before.ID {
		t.Fatalf("identity changed: %+v -> %+v", before, after)
	}
	if !after.LastSeenAt.After(before.LastSeenAt) {
		t.Fatalf("last_seen_at did not advance")
	}
	if !after.IsActive {
		t.Fatal("row not active")
	}
}

func TestReconcilePreservesPostedAt(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	clk := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	r := &Reconciler{Store: st, Now: clk.Now}

	row := listing("Acme", "Intern", "https://acme.dev/jobs/1")
	row.PostedAt, row.AgeDays = PostedFromAge(5, clk.t)
	if _, err := r.Reconcile(ctx, []domain.ParsedListing{row}, "T", "s"); err != nil {
		t.Fatal(err)
	}

	// a later run reads a stale "0d" age; the stored posted_at must win
	clk.t = clk.t.Add(72 * time.Hour)
	row.PostedAt, row.AgeDays = PostedFromAge(0, clk.t)
	if _, err := r.Reconcile(ctx, []domain.ParsedListing{row}, "T", "s"); err != nil {
		t.Fatal(err)
	}

	got, _ := st.get(ListingHash("Acme", "Intern", "Remote", "T", "https://acme.dev/jobs/1"))
	wantPosted := time.Date(2026, 2, 24, 9, 0, 0, 0, time.UTC)
	if got.PostedAt == nil || !got.PostedAt.Equal(wantPosted) {
		t.Fatalf("posted_at = %v, want %v", got.PostedAt, wantPosted)
	}
	if got.AgeDays == nil || *got.AgeDays != 8 {
		t.Fatalf("age_days = %v, want 8", got.AgeDays)
	}
}

func TestReconcileBatchFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.failAfter = 2
	r := &Reconciler{Store: st, BatchSize: 2}

	rows := []domain.ParsedListing{
		listing("A", "R", "https://a/1"),
		listing("B", "R", "https://a/2"),
		listing("C", "R", "https://a/3"),
	}
	res, err := r.Reconcile(ctx, rows, "T", "s")
	if err == nil {
		t.Fatal("expected error from failing batch")
	}
	if res.Inserted != 2 || res.Total != 2 || len(res.Errors) != 1 {
		t.Fatalf("counts before failure: %+v", res)
	}
}

func TestSweeperBoundary(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	now := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	st.rows["fresh"] = domain.OpeningSignal{ListingHash: "fresh", IsActive: true, LastSeenAt: now.Add(-47 * time.Hour)}
	st.rows["stale"] = domain.OpeningSignal{ListingHash: "stale", IsActive: true, LastSeenAt: now.Add(-49 * time.Hour)}

	sw := &Sweeper{Store: st, Now: func() time.Time { return now }}
	n, err := sw.Sweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("deactivated %d, want 1", n)
	}
	if r, _ := st.get("fresh"); !r.IsActive {
		t.Fatal("47h row was deactivated")
	}
	if r, _ := st.get("stale"); r.IsActive {
		t.Fatal("49h row is still active")
	}
}
