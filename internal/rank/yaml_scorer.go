package rank

import (
	"strings"

	"internwatch-engine/internal/config"
	"internwatch-engine/internal/domain"
)

// YAMLScorer scores a search hit against the scoring rules in config. Title
// rules look at the title only; keyword rules and penalties at title and
// snippet together.
type YAMLScorer struct {
	Cfg config.Config
}

func (s YAMLScorer) Score(hit domain.SearchHit) (int, []string) {
	title := strings.ToLower(hit.Title)
	text := title + " " + strings.ToLower(hit.Snippet)

	score := 0
	var tags []string

	applyRules := func(haystack string, rules []config.Rule) {
		for _, r := range rules {
			for _, needle := range r.Any {
				n := strings.ToLower(strings.TrimSpace(needle))
				if n != "" && strings.Contains(haystack, n) {
					score += r.Weight
					tags = append(tags, r.Tag)
					break
				}
			}
		}
	}

	applyRules(title, s.Cfg.Scoring.TitleRules)
	applyRules(text, s.Cfg.Scoring.KeywordRules)

	for _, p := range s.Cfg.Scoring.Penalties {
		for _, needle := range p.Any {
			n := strings.ToLower(strings.TrimSpace(needle))
			if n != "" && strings.Contains(text, n) {
				score += p.Weight
				tags = append(tags, "-"+p.Reason)
				break
			}
		}
	}

	return score, uniq(tags)
}

func uniq(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, t := range in {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
