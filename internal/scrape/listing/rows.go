package listing

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"internwatch-engine/internal/domain"
	"internwatch-engine/internal/scrape/util"
)

// Options controls one table parse.
type Options struct {
	// AllowMissingApplyURL accepts rows whose apply cell is locked or
	// empty; set for inactive tables.
	AllowMissingApplyURL bool
	Term                 string
	BaseURL              string
	Now                  time.Time
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now().UTC()
	}
	return o.Now
}

type RowError struct {
	Row    int
	Reason string
}

func (e *RowError) Error() string { return fmt.Sprintf("row %d: %s", e.Row, e.Reason) }

type TableResult struct {
	Rows    []domain.ParsedListing
	Errors  []string
	Skipped int
}

func (r *TableResult) merge(o TableResult) {
	r.Rows = append(r.Rows, o.Rows...)
	r.Errors = append(r.Errors, o.Errors...)
	r.Skipped += o.Skipped
}

// rawRow is one record before validation, whatever format it came from.
type rawRow struct {
	company  string
	role     string
	location string
	applyURL string

	posted  time.Time
	days    int
	hasAge  bool
	badCell string
}

type rowResult struct {
	listing domain.ParsedListing
	err     *RowError
}

// foldState carries the last company name seen so "↳" rows can borrow it.
type foldState struct {
	company string
}

func (s foldState) step(n int, raw rawRow, opts Options) (foldState, rowResult) {
	if raw.badCell != "" {
		return s, rowResult{err: &RowError{Row: n, Reason: raw.badCell}}
	}

	company := util.CleanText(util.StripPictographs(raw.company))
	if company == "" || isContinuation(company) {
		if s.company == "" {
			return s, rowResult{err: &RowError{Row: n, Reason: "continuation row before any company"}}
		}
		company = s.company
	} else {
		s.company = company
	}

	role := util.NormalizeTitle(raw.role, opts.Term)
	if role == "" {
		return s, rowResult{err: &RowError{Row: n, Reason: "missing role title"}}
	}

	if raw.applyURL == "" && !opts.AllowMissingApplyURL {
		return s, rowResult{err: &RowError{Row: n, Reason: "missing apply link"}}
	}

	now := opts.now()
	posted, days := now, 0
	if raw.hasAge {
		posted, days = raw.posted, raw.days
	}

	return s, rowResult{listing: domain.ParsedListing{
		CompanyName: company,
		RoleTitle:   role,
		Location:    util.CleanText(raw.location),
		ApplyURL:    raw.applyURL,
		AgeDays:     days,
		PostedAt:    posted,
		Inactive:    opts.AllowMissingApplyURL,
	}}
}

// fold runs the rows through foldState in order and partitions the
// results into listings and diagnostics.
func fold(raws []rawRow, rowNums []int, opts Options) TableResult {
	res := TableResult{Rows: []domain.ParsedListing{}, Errors: []string{}}
	var st foldState
	for i, raw := range raws {
		var out rowResult
		st, out = st.step(rowNums[i], raw, opts)
		if out.err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, out.err.Error())
			continue
		}
		res.Rows = append(res.Rows, out.listing)
	}
	return res
}

func isContinuation(s string) bool {
	switch strings.TrimSpace(s) {
	case "↳", "→", "⤷", "↪":
		return true
	}
	return false
}

// ParseTable turns one HTML table into listings. It never fails: bad rows
// are skipped and reported in Errors, one entry per skipped row.
func ParseTable(tbl *goquery.Selection, opts Options) TableResult {
	body := tbl.ChildrenFiltered("tbody")
	if body.Length() == 0 {
		return TableResult{Rows: []domain.ParsedListing{}, Errors: []string{"table has no row container"}}
	}

	trs := body.ChildrenFiltered("tr")
	var headers []string
	if head := tbl.ChildrenFiltered("thead").Find("tr").First(); head.Length() > 0 {
		headers = cellTexts(head.ChildrenFiltered("th, td"))
	} else if first := trs.First(); first.Length() > 0 && isHeaderRow(first) {
		headers = cellTexts(first.ChildrenFiltered("th, td"))
	}

	cm, detected := DefaultColumns(), false
	if len(headers) > 0 {
		cm, detected = DetectColumns(headers)
	}
	headerHasAge := detected && cm.Index(ColAge) >= 0

	now := opts.now()
	var raws []rawRow
	var nums []int
	trs.Each(func(i int, tr *goquery.Selection) {
		if isHeaderRow(tr) {
			return
		}
		raws = append(raws, extractRow(tr, cm, headerHasAge, opts.BaseURL, now))
		nums = append(nums, i+1)
	})

	if len(raws) == 0 {
		return TableResult{Rows: []domain.ParsedListing{}, Errors: []string{"table has no data rows"}}
	}
	return fold(raws, nums, opts)
}

// ParseTableHTML parses the first table found in an HTML fragment.
func ParseTableHTML(html string, opts Options) TableResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return TableResult{Rows: []domain.ParsedListing{}, Errors: []string{err.Error()}}
	}
	tbl := doc.Find("table").First()
	if tbl.Length() == 0 {
		return TableResult{Rows: []domain.ParsedListing{}, Errors: []string{"no table in fragment"}}
	}
	return ParseTable(tbl, opts)
}

// ParseTables parses every table of one kind and sums the diagnostics.
func ParseTables(tables []*goquery.Selection, opts Options) TableResult {
	total := TableResult{Rows: []domain.ParsedListing{}, Errors: []string{}}
	for i, tbl := range tables {
		r := ParseTable(tbl, opts)
		for j, e := range r.Errors {
			r.Errors[j] = fmt.Sprintf("table %d: %s", i+1, e)
		}
		total.merge(r)
	}
	return total
}

func extractRow(tr *goquery.Selection, cm ColumnMap, headerHasAge bool, baseURL string, now time.Time) (raw rawRow) {
	defer func() {
		if rec := recover(); rec != nil {
			raw = rawRow{badCell: fmt.Sprintf("unreadable row: %v", rec)}
		}
	}()

	cells := tr.ChildrenFiltered("td, th")
	if cells.Length() < 2 {
		return rawRow{badCell: fmt.Sprintf("expected at least 2 cells, got %d", cells.Length())}
	}
	cell := func(role ColumnRole) *goquery.Selection {
		i := cm.Index(role)
		if i < 0 || i >= cells.Length() {
			return nil
		}
		return cells.Eq(i)
	}

	if c := cell(ColCompany); c != nil {
		raw.company = companyText(c)
	}
	if c := cell(ColRole); c != nil {
		raw.role = c.Text()
	}
	if c := cell(ColLocation); c != nil {
		raw.location = locationText(c)
	}
	if c := cell(ColApply); c != nil {
		raw.applyURL = applyLink(c, baseURL)
	}

	raw.posted, raw.days, raw.hasAge = ageFromCells(cellTexts(cells), cm, headerHasAge, now)
	return raw
}

func companyText(c *goquery.Selection) string {
	if t := util.CleanText(c.Find("strong, b, a").First().Text()); t != "" {
		return t
	}
	return c.Text()
}

// locationText flattens "<br>" lists and "N locations" disclosures.
func locationText(c *goquery.Selection) string {
	cl := c.Clone()
	cl.Find("summary").Remove()
	cl.Find("br").ReplaceWithHtml("\n")
	var parts []string
	for _, line := range strings.Split(cl.Text(), "\n") {
		if l := util.CleanText(line); l != "" {
			parts = append(parts, l)
		}
	}
	return util.JoinLocations(parts)
}

// applyLink prefers the first usable anchor href, then a bare URL in the
// cell text. Locked ("🔒") and empty cells have no link.
func applyLink(c *goquery.Selection, baseURL string) string {
	var href string
	c.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		v, _ := a.Attr("href")
		href = util.AbsoluteURL(baseURL, v)
		return href == ""
	})
	if href != "" {
		return href
	}

	text := util.CleanText(c.Text())
	if text == "" || isLocked(text) || !util.LooksLikeURL(text) {
		return ""
	}
	return util.AbsoluteURL(baseURL, text)
}

func isLocked(s string) bool {
	l := strings.ToLower(s)
	return strings.Contains(s, "🔒") || strings.Contains(l, "locked") || strings.Contains(l, "closed")
}

func isHeaderRow(tr *goquery.Selection) bool {
	return tr.ChildrenFiltered("th").Length() > 0 && tr.ChildrenFiltered("td").Length() == 0
}

func cellTexts(cells *goquery.Selection) []string {
	out := make([]string, 0, cells.Length())
	cells.Each(func(_ int, c *goquery.Selection) {
		out = append(out, util.CleanText(c.Text()))
	})
	return out
}
