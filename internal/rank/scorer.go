package rank

import "internwatch-engine/internal/domain"

type Scorer interface {
	Score(hit domain.SearchHit) (score int, tags []string)
}
