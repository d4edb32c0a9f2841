package boards

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"internwatch-engine/internal/domain"
)

type leverPosting struct {
	ID         string `json:"id"`
	Text       string `json:"text"` // title
	HostedURL  string `json:"hostedUrl"`
	CreatedAt  int64  `json:"createdAt"` // ms epoch
	Categories struct {
		Location   string `json:"location"`
		Team       string `json:"team"`
		Commitment string `json:"commitment"`
	} `json:"categories"`
	DescriptionPlain string `json:"descriptionPlain"`
	Description      string `json:"description"` // html
}

func leverHits(body []byte) ([]domain.SearchHit, error) {
	var postings []leverPosting
	if err := json.Unmarshal(body, &postings); err != nil {
		return nil, fmt.Errorf("lever decode: %w", err)
	}

	out := make([]domain.SearchHit, 0, len(postings))
	for _, p := range postings {
		if p.ID == "" || p.HostedURL == "" || strings.TrimSpace(p.Text) == "" {
			continue
		}
		snippet := strings.TrimSpace(p.DescriptionPlain)
		if snippet == "" {
			snippet = htmlText(p.Description)
		}
		if c := strings.TrimSpace(p.Categories.Commitment); c != "" {
			snippet = c + ". " + snippet
		}
		hit := domain.SearchHit{
			Title:   hitTitle(p.Text, p.Categories.Location),
			Link:    p.HostedURL,
			Snippet: strings.TrimSpace(snippet),
		}
		if p.CreatedAt > 0 {
			hit.Published = time.UnixMilli(p.CreatedAt).UTC()
		}
		out = append(out, hit)
	}
	return out, nil
}
