package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

func Validate(cfg Config) error {
	if errs := problems(cfg); len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

func problems(cfg Config) []string {
	var errs []string

	if strings.TrimSpace(cfg.App.Addr) == "" {
		errs = append(errs, "app.addr is required")
	}

	switch cfg.Store.Driver {
	case "sqlite":
		if cfg.Store.SQLitePath == "" {
			errs = append(errs, "store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", cfg.Store.Driver))
	}
	if cfg.Store.UpsertBatch <= 0 {
		errs = append(errs, "store.upsert_batch must be > 0")
	}

	switch cfg.Lock.Backend {
	case "file", "redis", "none":
	default:
		errs = append(errs, fmt.Sprintf("lock.backend must be file, redis or none, got %q", cfg.Lock.Backend))
	}

	if cfg.Refresh.SourceURL != "" {
		if u, err := url.Parse(cfg.Refresh.SourceURL); err != nil || u.Host == "" {
			errs = append(errs, "refresh.source_url must be an absolute URL")
		}
	}
	if strings.TrimSpace(cfg.Refresh.Term) == "" {
		errs = append(errs, "refresh.term is required")
	}
	if cfg.Refresh.FetchTimeoutSeconds <= 0 {
		errs = append(errs, "refresh.fetch_timeout_seconds must be > 0")
	}
	if cfg.Refresh.FreshnessHours <= 0 {
		errs = append(errs, "refresh.freshness_hours must be > 0")
	}

	if cfg.Search.Enabled {
		if !strings.Contains(cfg.Search.ProviderURL, "{query}") {
			errs = append(errs, "search.provider_url must contain {query}")
		}
		if cfg.Search.BatchSize <= 0 {
			errs = append(errs, "search.batch_size must be > 0")
		}
	}
	if cfg.Search.BatchPauseMS < 0 {
		errs = append(errs, "search.batch_pause_ms must be >= 0")
	}

	// Rule helpers
	checkRules := func(name string, rules []Rule) {
		for i, r := range rules {
			if r.Tag == "" {
				errs = append(errs, fmt.Sprintf("%s[%d].tag is required", name, i))
			}
			if len(r.Any) == 0 {
				errs = append(errs, fmt.Sprintf("%s[%d].any must have at least 1 term", name, i))
			}
			for j, term := range r.Any {
				if term == "" {
					errs = append(errs, fmt.Sprintf("%s[%d].any[%d] cannot be empty", name, i, j))
				}
			}
		}
	}

	checkRules("scoring.title_rules", cfg.Scoring.TitleRules)
	checkRules("scoring.keyword_rules", cfg.Scoring.KeywordRules)
	for i, p := range cfg.Scoring.Penalties {
		if p.Reason == "" {
			errs = append(errs, fmt.Sprintf("scoring.penalties[%d].reason is required", i))
		}
		if len(p.Any) == 0 {
			errs = append(errs, fmt.Sprintf("scoring.penalties[%d].any must have at least 1 term", i))
		}
	}

	return errs
}

func SaveAtomic(path string, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	bak := path + ".bak"

	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}

	_ = os.Remove(bak)
	_ = os.Rename(path, bak)

	return os.Rename(tmp, path)
}
