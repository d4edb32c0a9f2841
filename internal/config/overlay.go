package config

import (
	"path/filepath"
	"strings"
)

// Overrides are values taken from flags or the environment. Empty fields
// leave the file value alone.
type Overrides struct {
	DataDir     string
	Addr        string
	DatabaseURL string
	RedisURL    string
	SourceURL   string
	Term        string
}

// Overlay applies o on top of cfg and resolves relative store and lock
// paths against the data dir.
func Overlay(cfg *Config, o Overrides) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&cfg.App.DataDir, o.DataDir)
	set(&cfg.App.Addr, o.Addr)
	set(&cfg.Refresh.SourceURL, o.SourceURL)
	set(&cfg.Refresh.Term, o.Term)
	set(&cfg.Lock.RedisURL, o.RedisURL)

	if v := strings.TrimSpace(o.DatabaseURL); v != "" {
		cfg.Store.PostgresDSN = v
		cfg.Store.Driver = "postgres"
	}
	if strings.TrimSpace(o.RedisURL) != "" && cfg.Lock.Backend == "file" {
		cfg.Lock.Backend = "redis"
	}

	cfg.Store.SQLitePath = underDataDir(cfg.App.DataDir, cfg.Store.SQLitePath)
	cfg.Lock.Path = underDataDir(cfg.App.DataDir, cfg.Lock.Path)
}

func underDataDir(dataDir, p string) string {
	if p == "" || filepath.IsAbs(p) || dataDir == "" {
		return p
	}
	if strings.HasPrefix(filepath.Clean(p), filepath.Clean(dataDir)+string(filepath.Separator)) {
		return p
	}
	return filepath.Join(dataDir, p)
}
