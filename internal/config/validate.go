package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a trimmed copy plus everything Validate
// rejects and a few softer warnings.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Refresh.SourceURL = strings.TrimSpace(out.Refresh.SourceURL)
	out.Refresh.StructuredURLs = trimList(out.Refresh.StructuredURLs)
	out.Refresh.Term = strings.TrimSpace(out.Refresh.Term)
	out.Search.Term = strings.TrimSpace(out.Search.Term)
	out.Search.Queries = trimList(out.Search.Queries)
	out.Search.LocationsAllow = trimList(out.Search.LocationsAllow)
	out.Search.LocationsBlock = trimList(out.Search.LocationsBlock)
	out.HTTP.AllowedOrigins = trimList(out.HTTP.AllowedOrigins)

	res.Errors = append(res.Errors, problems(out)...)

	if out.Refresh.SourceURL == "" && len(out.Refresh.StructuredURLs) == 0 {
		res.addWarn("refresh.source_url and refresh.structured_urls are both empty; refresh will fail to fetch.")
	}
	if out.Refresh.FetchTimeoutSeconds > 120 {
		res.addWarn("refresh.fetch_timeout_seconds is very high (%d).", out.Refresh.FetchTimeoutSeconds)
	}
	if out.Refresh.IntervalMinutes > 0 && out.Refresh.IntervalMinutes >= out.Refresh.FreshnessHours*60 {
		res.addWarn("refresh.interval_minutes (%d) is not shorter than the freshness window; live rows may be swept between runs.", out.Refresh.IntervalMinutes)
	}

	if out.Search.Enabled {
		if len(out.Search.Queries) == 0 {
			res.addWarn("search.enabled is true but search.queries is empty; search will find nothing.")
		}
		if out.Search.BatchPauseMS < 250 {
			res.addWarn("search.batch_pause_ms is very low (%d) and may cause rate limits.", out.Search.BatchPauseMS)
		}
		if len(out.Scoring.TitleRules) == 0 && len(out.Scoring.KeywordRules) == 0 && out.Search.MinScore > 0 {
			res.addWarn("search.min_score is %d but no scoring rules are defined; every hit will be dropped.", out.Search.MinScore)
		}
	}

	if out.Lock.Backend == "redis" && out.Lock.RedisURL == "" {
		res.addWarn("lock.backend is redis but lock.redis_url is empty; REDIS_URL must be set.")
	}
	if out.Store.Driver == "postgres" && out.Store.PostgresDSN == "" {
		res.addWarn("store.driver is postgres but store.postgres_dsn is empty; DATABASE_URL must be set.")
	}

	// simple conflict check
	blockSet := map[string]bool{}
	for _, b := range out.Search.LocationsBlock {
		blockSet[strings.ToLower(b)] = true
	}
	for _, a := range out.Search.LocationsAllow {
		if blockSet[strings.ToLower(a)] {
			res.addWarn("location appears in both allow and block: %q", a)
		}
	}

	return out, res
}
