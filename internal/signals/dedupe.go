package signals

import (
	"strings"

	"golang.org/x/text/cases"

	"internwatch-engine/internal/domain"
)

// DedupeByApplyURL keeps the first row per case-folded, trimmed apply URL.
// Rows without an apply URL are dropped.
func DedupeByApplyURL(rows []domain.ParsedListing) []domain.ParsedListing {
	fold := cases.Fold()
	seen := make(map[string]struct{}, len(rows))
	out := make([]domain.ParsedListing, 0, len(rows))
	for _, r := range rows {
		key := fold.String(strings.TrimSpace(r.ApplyURL))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
