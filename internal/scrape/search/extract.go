package search

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"internwatch-engine/internal/domain"
	"internwatch-engine/internal/scrape/util"
)

// path-slug hosts: the first path segment names the company
var pathSlugHosts = map[string]bool{
	"boards.greenhouse.io":     true,
	"job-boards.greenhouse.io": true,
	"jobs.lever.co":            true,
	"jobs.ashbyhq.com":         true,
	"jobs.smartrecruiters.com": true,
	"apply.workable.com":       true,
	"jobs.jobvite.com":         true,
}

// subdomain-slug hosts: the leftmost label names the company
var subdomainSlugSuffixes = []string{
	".myworkdayjobs.com",
	".bamboohr.com",
	".applytojob.com",
	".icims.com",
	".recruitee.com",
	".teamtailor.com",
}

// aggregators whose name shows up as a title segment
var siteNames = []string{
	"linkedin", "indeed", "glassdoor", "ziprecruiter", "monster", "simplyhired",
	"workopolis", "eluta", "talent.com", "jobbank", "job bank", "careers", "jobs",
}

var (
	roleHintRe = regexp.MustCompile(`(?i)\b(intern(ship)?s?|co-?op|student|trainee|apprentice)\b`)
	titleSepRe = regexp.MustCompile(`\s+[-–—|·•]\s+`)
	slugNoise  = regexp.MustCompile(`(?i)^(careers?|jobs?|external|en|en-us|en-ca)$`)
)

// CompanyFromURL reads a company name out of an ATS job link.
func CompanyFromURL(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(strings.TrimPrefix(u.Host, "www."))

	if pathSlugHosts[host] {
		for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
			if seg != "" && !slugNoise.MatchString(seg) {
				return slugToName(seg)
			}
		}
		return ""
	}
	for _, suf := range subdomainSlugSuffixes {
		if strings.HasSuffix(host, suf) {
			label := strings.Split(host, ".")[0]
			label = strings.TrimPrefix(label, "careers-")
			label = strings.TrimSuffix(label, "-careers")
			if label == "" || label == "www" || slugNoise.MatchString(label) {
				return ""
			}
			return slugToName(label)
		}
	}
	return ""
}

func slugToName(slug string) string {
	s, err := url.PathUnescape(slug)
	if err != nil {
		s = slug
	}
	s = strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(s)
	s = util.CleanText(s)
	if s == "" {
		return ""
	}
	return cases.Title(language.English).String(s)
}

// SplitTitle separates a result title into role and company. It knows
// "Role at Company" and separator-joined segments, dropping aggregator
// names. company is "" when the title names none.
func SplitTitle(title string) (role, company string) {
	title = util.CleanText(title)

	var parts []string
	for _, p := range titleSepRe.Split(title, -1) {
		p = strings.TrimSpace(p)
		if p == "" || isSiteName(p) {
			continue
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return "", ""
	}

	roleIdx := 0
	for i, p := range parts {
		if roleHintRe.MatchString(p) {
			roleIdx = i
			break
		}
	}
	role = parts[roleIdx]

	if i := strings.LastIndex(strings.ToLower(role), " at "); i > 0 {
		return strings.TrimSpace(role[:i]), strings.TrimSpace(role[i+4:])
	}

	for i, p := range parts {
		if i == roleIdx {
			continue
		}
		if _, isPlace := DetectLocation(p); isPlace && len(strings.Fields(p)) <= 3 {
			continue
		}
		return role, p
	}
	return role, ""
}

func isSiteName(s string) bool {
	l := strings.ToLower(strings.TrimSpace(s))
	l = strings.TrimSuffix(l, ".com")
	l = strings.TrimSuffix(l, ".ca")
	for _, n := range siteNames {
		if l == n {
			return true
		}
	}
	return false
}

// Extract turns a hit into a listing. ok is false when no role, company or
// link can be recovered.
func Extract(hit domain.SearchHit, term string) (domain.ParsedListing, bool) {
	link := util.CanonicalizeURL(util.AbsoluteURL("", hit.Link))
	if link == "" {
		return domain.ParsedListing{}, false
	}

	role, company := SplitTitle(hit.Title)
	if fromURL := CompanyFromURL(link); fromURL != "" {
		company = fromURL
	}
	role = util.NormalizeTitle(role, term)
	company = util.CleanText(util.StripPictographs(company))
	if role == "" || company == "" {
		return domain.ParsedListing{}, false
	}

	loc, found := DetectLocation(util.ExtractLocationFromLabeledText(hit.Snippet))
	if !found {
		loc, _ = DetectLocation(hit.Title + " " + hit.Snippet)
	}

	return domain.ParsedListing{
		CompanyName: company,
		RoleTitle:   role,
		Location:    loc,
		ApplyURL:    link,
		PostedAt:    hit.Published,
	}, true
}
