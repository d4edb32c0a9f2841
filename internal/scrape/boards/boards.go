// Package boards reads public ATS job-board APIs so a search pass can
// watch specific employers alongside free-text queries.
//
// A board is named in search.queries as "<ats>:<slug>", e.g. "lever:shopify"
// or "greenhouse:wealthsimple". Every other query goes to the fallback
// provider.
package boards

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"internwatch-engine/internal/domain"
	"internwatch-engine/internal/scrape/search"
	"internwatch-engine/internal/scrape/types"
	"internwatch-engine/internal/scrape/util"
)

const (
	ATSLever           = "lever"
	ATSGreenhouse      = "greenhouse"
	ATSSmartRecruiters = "smartrecruiters"
)

// DefaultEndpoints are the public list APIs; {slug} is the company id.
var DefaultEndpoints = map[string]string{
	ATSLever:           "https://api.lever.co/v0/postings/{slug}?mode=json",
	ATSGreenhouse:      "https://boards-api.greenhouse.io/v1/boards/{slug}/jobs",
	ATSSmartRecruiters: "https://api.smartrecruiters.com/v1/companies/{slug}/postings?limit=100",
}

const jsonAccept = "application/json"

type Board struct {
	ATS  string
	Slug string
}

// ParseBoard recognizes "<ats>:<slug>" queries.
func ParseBoard(query string) (Board, bool) {
	ats, slug, ok := strings.Cut(strings.TrimSpace(query), ":")
	if !ok {
		return Board{}, false
	}
	ats = strings.ToLower(strings.TrimSpace(ats))
	slug = strings.TrimSpace(slug)
	if slug == "" || strings.ContainsAny(slug, " /?#") {
		return Board{}, false
	}
	if _, known := DefaultEndpoints[ats]; !known {
		return Board{}, false
	}
	return Board{ATS: ats, Slug: slug}, true
}

// Provider answers board queries itself and hands the rest to Fallback.
type Provider struct {
	Client    types.Fetcher
	Fallback  search.Provider
	Endpoints map[string]string // nil: DefaultEndpoints
}

var _ search.Provider = Provider{}

func (p Provider) Search(ctx context.Context, query string) ([]domain.SearchHit, error) {
	b, ok := ParseBoard(query)
	if !ok {
		if p.Fallback == nil {
			return nil, fmt.Errorf("no provider for query %q", query)
		}
		return p.Fallback.Search(ctx, query)
	}

	res, err := p.Client.Get(ctx, p.endpoint(b), jsonAccept)
	if err != nil {
		return nil, fmt.Errorf("%s board %s: %w", b.ATS, b.Slug, err)
	}

	var hits []domain.SearchHit
	switch b.ATS {
	case ATSLever:
		hits, err = leverHits(res.Body)
	case ATSGreenhouse:
		hits, err = greenhouseHits(res.Body)
	case ATSSmartRecruiters:
		hits, err = smartRecruitersHits(b.Slug, res.Body)
	}
	if err != nil {
		return nil, fmt.Errorf("%s board %s: %w", b.ATS, b.Slug, err)
	}
	for i := range hits {
		hits[i].Query = query
	}
	return hits, nil
}

func (p Provider) endpoint(b Board) string {
	tmpl := DefaultEndpoints[b.ATS]
	if t, ok := p.Endpoints[b.ATS]; ok && t != "" {
		tmpl = t
	}
	return strings.ReplaceAll(tmpl, "{slug}", b.Slug)
}

// hitTitle joins role and location the way search results print them so
// the shared title splitter can recover both.
func hitTitle(role, location string) string {
	role = util.CleanText(role)
	location = util.NormalizeLocation(location)
	if location == "" {
		return role
	}
	return role + " - " + location
}

// htmlText flattens a posting description to plain text for scoring.
func htmlText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	text := util.CleanText(doc.Text())
	if r := []rune(text); len(r) > 500 {
		text = string(r[:500])
	}
	return text
}
