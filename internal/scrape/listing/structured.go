package listing

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"internwatch-engine/internal/domain"
	"internwatch-engine/internal/scrape/util"
	"internwatch-engine/internal/signals"
)

// Structured is the probe path's result: the same listings the HTML path
// would produce, split by open/closed.
type Structured struct {
	Active   TableResult
	Inactive TableResult
}

var errNotStructured = errors.New("body is neither a JSON array nor CSV")

// ParseStructured sniffs JSON vs CSV. opts.AllowMissingApplyURL is ignored;
// closed entries are routed to Inactive.
func ParseStructured(body []byte, contentType string, opts Options) (Structured, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Structured{}, errNotStructured
	}
	if trimmed[0] == '[' || trimmed[0] == '{' || strings.Contains(contentType, "json") {
		return ParseJSON(trimmed, opts)
	}
	if trimmed[0] == '<' {
		return Structured{}, errNotStructured
	}
	return ParseCSV(trimmed, opts)
}

// ParseJSON reads an array of listing objects, or an object wrapping one
// under listings/data/items/jobs.
func ParseJSON(body []byte, opts Options) (Structured, error) {
	var entries []map[string]any
	if err := json.Unmarshal(body, &entries); err != nil {
		var wrapped map[string]json.RawMessage
		if err2 := json.Unmarshal(body, &wrapped); err2 != nil {
			return Structured{}, fmt.Errorf("decode listings json: %w", err)
		}
		found := false
		for _, k := range []string{"listings", "data", "items", "jobs"} {
			if raw, ok := wrapped[k]; ok && json.Unmarshal(raw, &entries) == nil {
				found = true
				break
			}
		}
		if !found {
			return Structured{}, errNotStructured
		}
	}

	now := opts.now()
	var active, inactive []rawRow
	var activeNums, inactiveNums []int
	for i, e := range entries {
		raw := rawRow{
			company:  str(e, "company", "company_name"),
			role:     str(e, "role", "title", "position"),
			location: str(e, "location", "locations"),
		}
		if u := str(e, "apply_url", "url", "link"); util.LooksLikeURL(u) {
			raw.applyURL = util.AbsoluteURL(opts.BaseURL, u)
		}
		raw.posted, raw.days, raw.hasAge = jsonAge(e, now)

		if isClosed(e) {
			inactive = append(inactive, raw)
			inactiveNums = append(inactiveNums, i+1)
			continue
		}
		active = append(active, raw)
		activeNums = append(activeNums, i+1)
	}

	activeOpts, inactiveOpts := opts, opts
	activeOpts.AllowMissingApplyURL = false
	inactiveOpts.AllowMissingApplyURL = true
	return Structured{
		Active:   fold(active, activeNums, activeOpts),
		Inactive: fold(inactive, inactiveNums, inactiveOpts),
	}, nil
}

// ParseCSV reads a CSV with a header row detected the same way as HTML
// table headers. Without a recognizable header the first line is data.
func ParseCSV(body []byte, opts Options) (Structured, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Structured{}, fmt.Errorf("read csv: %w", err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return Structured{}, errNotStructured
	}

	cm, detected := DetectColumns(records[0])
	start := 0
	if detected {
		start = 1
	}
	headerHasAge := detected && cm.Index(ColAge) >= 0

	now := opts.now()
	var raws []rawRow
	var nums []int
	for i := start; i < len(records); i++ {
		rec := records[i]
		if len(rec) < 2 {
			raws = append(raws, rawRow{badCell: fmt.Sprintf("expected at least 2 fields, got %d", len(rec))})
			nums = append(nums, i+1)
			continue
		}
		field := func(role ColumnRole) string {
			j := cm.Index(role)
			if j < 0 || j >= len(rec) {
				return ""
			}
			return rec[j]
		}
		raw := rawRow{
			company:  field(ColCompany),
			role:     field(ColRole),
			location: util.NormalizeLocation(field(ColLocation)),
		}
		if u := util.CleanText(field(ColApply)); util.LooksLikeURL(u) {
			raw.applyURL = util.AbsoluteURL(opts.BaseURL, u)
		}
		raw.posted, raw.days, raw.hasAge = ageFromCells(rec, cm, headerHasAge, now)
		raws = append(raws, raw)
		nums = append(nums, i+1)
	}

	activeOpts := opts
	activeOpts.AllowMissingApplyURL = false
	return Structured{
		Active:   fold(raws, nums, activeOpts),
		Inactive: TableResult{Rows: []domain.ParsedListing{}, Errors: []string{}},
	}, nil
}

func str(e map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := e[k].(type) {
		case string:
			if s := util.CleanText(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case []any:
			var parts []string
			for _, x := range v {
				if s, ok := x.(string); ok {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				return util.JoinLocations(parts)
			}
		}
	}
	return ""
}

func jsonAge(e map[string]any, now time.Time) (time.Time, int, bool) {
	switch v := e["age"].(type) {
	case float64:
		posted, days := signals.PostedFromAge(int(v), now)
		return posted, days, true
	case string:
		if posted, days, ok := parseAge(v, now); ok {
			return posted, days, true
		}
	}
	for _, k := range []string{"posted_at", "date_posted", "date_updated"} {
		switch v := e[k].(type) {
		case float64:
			if v <= 0 {
				continue
			}
			posted, days := signals.AgeFromPosted(time.Unix(int64(v), 0).UTC(), now)
			return posted, days, true
		case string:
			if t, ok := parseDate(util.CleanText(v), now); ok {
				posted, days := signals.AgeFromPosted(t, now)
				return posted, days, true
			}
		}
	}
	return time.Time{}, 0, false
}

func isClosed(e map[string]any) bool {
	for _, k := range []string{"active", "is_visible"} {
		if b, ok := e[k].(bool); ok && !b {
			return true
		}
	}
	return false
}
