package util

import "strings"

// ExtractLocationFromLabeledText returns the text after a "Location:" style
// label, cut at the first line or list separator.
func ExtractLocationFromLabeledText(s string) string {
	low := strings.ToLower(s)

	labels := []string{
		"job location:",
		"locations:",
		"location:",
	}

	for _, lab := range labels {
		if i := strings.Index(low, lab); i >= 0 {
			rest := strings.TrimSpace(s[i+len(lab):])

			for _, cut := range []string{"\n", "\r", " | ", " · ", ". "} {
				if j := strings.Index(rest, cut); j >= 0 {
					rest = rest[:j]
				}
			}

			rest = strings.TrimRight(CleanText(rest), ".;")
			if rest != "" && len(rest) <= 80 {
				return rest
			}
		}
	}
	return ""
}
