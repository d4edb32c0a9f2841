package poll

import (
	"internwatch-engine/internal/scrape/search"
	"internwatch-engine/internal/signals"
)

type State string

const (
	StateSweeping    State = "SWEEPING"
	StateFetching    State = "FETCHING"
	StateSearching   State = "SEARCHING"
	StateParsing     State = "PARSING"
	StateDeduping    State = "DEDUPING"
	StateReconciling State = "RECONCILING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

type SourceFetch struct {
	Status    int    `json:"status"`
	URL       string `json:"url"`
	SizeBytes int    `json:"size_bytes,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Parsing struct {
	Method         string   `json:"method"` // structured | html
	TablesFound    int      `json:"tables_found"`
	ActiveTables   int      `json:"active_tables"`
	InactiveTables int      `json:"inactive_tables"`
	RowsParsed     int      `json:"rows_parsed"`
	Errors         []string `json:"errors"`
	Skipped        int      `json:"skipped"`
	InactiveRows   int      `json:"inactive_rows"`
	Deduped        int      `json:"deduped"`
}

type StaleCleanup struct {
	Deactivated int64  `json:"deactivated"`
	Error       string `json:"error,omitempty"`
}

type Debug struct {
	RunID        string                  `json:"run_id"`
	State        State                   `json:"state"`
	SourceFetch  SourceFetch             `json:"source_fetch"`
	Parsing      Parsing                 `json:"parsing"`
	Upsert       signals.ReconcileResult `json:"upsert"`
	StaleCleanup StaleCleanup            `json:"stale_cleanup"`
	DurationMS   int64                   `json:"duration_ms"`
	Notes        []string                `json:"notes"`
}

// Report is the body every refresh answers with, success or not.
type Report struct {
	OK          bool   `json:"ok"`
	Inserted    int    `json:"inserted"`
	Updated     int    `json:"updated"`
	Deactivated int64  `json:"deactivated"`
	Total       int    `json:"total"`
	Error       string `json:"error,omitempty"`
	Debug       Debug  `json:"debug"`
}

type SearchDebug struct {
	RunID      string                  `json:"run_id"`
	State      State                   `json:"state"`
	Search     search.Result           `json:"search"`
	Deduped    int                     `json:"deduped"`
	Upsert     signals.ReconcileResult `json:"upsert"`
	DurationMS int64                   `json:"duration_ms"`
	Notes      []string                `json:"notes"`
}

type SearchReport struct {
	OK       bool        `json:"ok"`
	Inserted int         `json:"inserted"`
	Updated  int         `json:"updated"`
	Total    int         `json:"total"`
	Error    string      `json:"error,omitempty"`
	Debug    SearchDebug `json:"debug"`
}

// outcome is what Runner needs to know about a finished run.
type outcome interface {
	runID() string
	failure() string
	counts() (inserted, updated int)
	summary() map[string]any
}

func (r Report) runID() string { return r.Debug.RunID }
func (r Report) failure() string { return r.Error }
func (r Report) counts() (int, int) { return r.Inserted, r.Updated }
func (r SearchReport) runID() string { return r.Debug.RunID }
func (r SearchReport) failure() string { return r.Error }
func (r SearchReport) counts() (int, int) { return r.Inserted, r.Updated }

func (r Report) summary() map[string]any {
	return map[string]any{
		"ok": r.OK, "run_id": r.Debug.RunID, "inserted": r.Inserted, "updated": r.Updated,
		"deactivated": r.Deactivated, "total": r.Total, "error": r.Error,
	}
}

func (r SearchReport) summary() map[string]any {
	return map[string]any{
		"ok": r.OK, "run_id": r.Debug.RunID, "inserted": r.Inserted, "updated": r.Updated,
		"total": r.Total, "queries": len(r.Debug.Search.Queries), "error": r.Error,
	}
}
