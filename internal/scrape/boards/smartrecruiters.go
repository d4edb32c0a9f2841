package boards

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"internwatch-engine/internal/domain"
)

// Response schema (public API) is typically:
// { "content": [...], "totalFound": N, "offset": O, "limit": L }
// but only what a hit needs is decoded.
type postingsResponse struct {
	Content []struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		ReleasedDate time.Time `json:"releasedDate"`
		Location     struct {
			City    string `json:"city"`
			Region  string `json:"region"`
			Country string `json:"country"`
			Remote  bool   `json:"remote"`
		} `json:"location"`
		TypeOfEmployment struct {
			Label string `json:"label"`
		} `json:"typeOfEmployment"`
	} `json:"content"`
}

func smartRecruitersHits(slug string, body []byte) ([]domain.SearchHit, error) {
	var res postingsResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("smartrecruiters decode: %w", err)
	}

	out := make([]domain.SearchHit, 0, len(res.Content))
	for _, p := range res.Content {
		if p.ID == "" || strings.TrimSpace(p.Name) == "" {
			continue
		}
		var parts []string
		for _, s := range []string{p.Location.City, strings.ToUpper(p.Location.Region), countryName(p.Location.Country)} {
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
		loc := strings.Join(parts, ", ")
		if p.Location.Remote {
			loc = strings.TrimPrefix(loc+", Remote", ", ")
		}
		hit := domain.SearchHit{
			Title:   hitTitle(p.Name, loc),
			Link:    "https://jobs.smartrecruiters.com/" + url.PathEscape(slug) + "/" + url.PathEscape(p.ID),
			Snippet: p.TypeOfEmployment.Label,
		}
		if !p.ReleasedDate.IsZero() {
			hit.Published = p.ReleasedDate.UTC()
		}
		out = append(out, hit)
	}
	return out, nil
}

// countryName spells out the ISO codes location filters care about; a bare
// "CA" reads as California.
func countryName(code string) string {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "ca":
		return "Canada"
	case "us":
		return "USA"
	}
	return strings.ToUpper(strings.TrimSpace(code))
}
