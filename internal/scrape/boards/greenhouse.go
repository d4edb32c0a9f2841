package boards

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"internwatch-engine/internal/domain"
)

type greenhouseJobs struct {
	Jobs []struct {
		ID          int64  `json:"id"`
		Title       string `json:"title"`
		AbsoluteURL string `json:"absolute_url"`
		UpdatedAt   string `json:"updated_at"`
		Location    struct {
			Name string `json:"name"`
		} `json:"location"`
		Content string `json:"content"` // only with ?content=true
	} `json:"jobs"`
}

func greenhouseHits(body []byte) ([]domain.SearchHit, error) {
	var res greenhouseJobs
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("greenhouse decode: %w", err)
	}

	out := make([]domain.SearchHit, 0, len(res.Jobs))
	for _, j := range res.Jobs {
		if j.AbsoluteURL == "" || strings.TrimSpace(j.Title) == "" {
			continue
		}
		hit := domain.SearchHit{
			Title:   hitTitle(j.Title, j.Location.Name),
			Link:    j.AbsoluteURL,
			Snippet: htmlText(j.Content),
		}
		if t, err := time.Parse(time.RFC3339, j.UpdatedAt); err == nil {
			hit.Published = t.UTC()
		}
		out = append(out, hit)
	}
	return out, nil
}
