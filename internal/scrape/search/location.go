package search

import (
	"regexp"
	"strings"

	"internwatch-engine/internal/domain"
)

const DefaultLocation = "Canada"

var provinces = []struct{ code, name string }{
	{"ON", "Ontario"},
	{"BC", "British Columbia"},
	{"QC", "Quebec"},
	{"AB", "Alberta"},
	{"MB", "Manitoba"},
	{"SK", "Saskatchewan"},
	{"NS", "Nova Scotia"},
	{"NB", "New Brunswick"},
	{"NL", "Newfoundland"},
	{"PE", "Prince Edward Island"},
}

// city -> province code; ambiguous names (London, Victoria, Richmond) need
// a province next to them and are left out.
var cities = []struct{ name, prov string }{
	{"Toronto", "ON"}, {"Ottawa", "ON"}, {"Waterloo", "ON"}, {"Kitchener", "ON"},
	{"Mississauga", "ON"}, {"Markham", "ON"}, {"Oakville", "ON"}, {"Hamilton", "ON"},
	{"Burlington", "ON"}, {"Guelph", "ON"}, {"Richmond Hill", "ON"}, {"Vaughan", "ON"},
	{"Vancouver", "BC"}, {"Burnaby", "BC"}, {"Surrey", "BC"},
	{"Montreal", "QC"}, {"Montréal", "QC"}, {"Quebec City", "QC"}, {"Laval", "QC"},
	{"Calgary", "AB"}, {"Edmonton", "AB"},
	{"Winnipeg", "MB"}, {"Saskatoon", "SK"}, {"Regina", "SK"},
	{"Halifax", "NS"}, {"Fredericton", "NB"}, {"St. John's", "NL"},
}

var (
	cityPatterns     []*regexp.Regexp
	provinceCodeRe   = regexp.MustCompile(`(?:,|\s-)\s*(ON|BC|QC|AB|MB|SK|NS|NB|NL|PE)\b`)
	cityBeforeProvRe = regexp.MustCompile(`\b([A-Z][\p{L}.'-]+),\s*(ON|BC|QC|AB|MB|SK|NS|NB|NL|PE)\b`)
	canadaRe         = regexp.MustCompile(`(?i)\bcanada\b|\bcanadian\b`)
	remoteRe         = regexp.MustCompile(`(?i)\bremote\b`)
	usRe             = regexp.MustCompile(`(?:,\s*(?:CA|NY|WA|TX|MA|IL|NJ|GA|CO|VA|PA|NC|OR|FL)\b)|(?i:\bunited states\b|\busa\b)`)
)

func init() {
	for _, c := range cities {
		cityPatterns = append(cityPatterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(c.name)+`\b`))
	}
}

// DetectLocation looks for a Canadian place in free text. found is false
// when nothing Canadian was named and DefaultLocation was returned.
func DetectLocation(text string) (loc string, found bool) {
	for i, re := range cityPatterns {
		if re.MatchString(text) {
			return cities[i].name + ", " + cities[i].prov, true
		}
	}
	if m := cityBeforeProvRe.FindStringSubmatch(text); m != nil {
		return m[1] + ", " + m[2], true
	}
	if m := provinceCodeRe.FindStringSubmatch(text); m != nil {
		return m[1] + ", Canada", true
	}
	lower := strings.ToLower(text)
	for _, p := range provinces {
		if strings.Contains(lower, strings.ToLower(p.name)) {
			return p.name + ", Canada", true
		}
	}
	if canadaRe.MatchString(text) {
		if remoteRe.MatchString(text) {
			return "Remote, Canada", true
		}
		return DefaultLocation, true
	}
	return DefaultLocation, false
}

// LooksNonCanadian reports text that names a US location and nothing
// Canadian.
func LooksNonCanadian(text string) bool {
	if _, found := DetectLocation(text); found {
		return false
	}
	return usRe.MatchString(text)
}

// Filter applies the configured allow and block lists.
type Filter struct {
	Allow []string
	Block []string
}

// Keep reports whether a listing passes. The block list wins; an empty
// allow list admits everything else.
func (f Filter) Keep(l domain.ParsedListing, hit domain.SearchHit) (bool, string) {
	text := strings.ToLower(strings.TrimSpace(l.Location))
	title := strings.ToLower(strings.TrimSpace(hit.Title))
	desc := strings.ToLower(strings.TrimSpace(hit.Snippet))

	if LooksNonCanadian(hit.Title + " " + hit.Snippet) {
		return false, "not_canada"
	}

	for _, b := range f.Block {
		b = strings.ToLower(strings.TrimSpace(b))
		if b == "" {
			continue
		}
		if strings.Contains(text, b) || strings.Contains(title, b) || strings.Contains(desc, b) {
			return false, "location_blocked"
		}
	}

	if len(f.Allow) == 0 {
		return true, ""
	}
	for _, a := range f.Allow {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if strings.Contains(text, a) || strings.Contains(title, a) || strings.Contains(desc, a) {
			return true, ""
		}
	}
	return false, "location_not_allowed"
}
