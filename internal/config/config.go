package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Rule struct {
	Tag    string   `yaml:"tag" json:"tag"`
	Weight int      `yaml:"weight" json:"weight"`
	Any    []string `yaml:"any" json:"any"`
}

type Penalty struct {
	Reason string   `yaml:"reason" json:"reason"`
	Weight int      `yaml:"weight" json:"weight"`
	Any    []string `yaml:"any" json:"any"`
}

type Config struct {
	App struct {
		Addr    string `yaml:"addr" json:"addr"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
	} `yaml:"app" json:"app"`

	Store struct {
		Driver      string `yaml:"driver" json:"driver"`
		SQLitePath  string `yaml:"sqlite_path" json:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn" json:"postgres_dsn"`
		MaxConns    int    `yaml:"max_conns" json:"max_conns"`
		ViaBouncer  bool   `yaml:"via_bouncer" json:"via_bouncer"`
		UpsertBatch int    `yaml:"upsert_batch" json:"upsert_batch"`
	} `yaml:"store" json:"store"`

	Lock struct {
		Backend    string `yaml:"backend" json:"backend"` // file | redis | none
		Path       string `yaml:"path" json:"path"`
		RedisURL   string `yaml:"redis_url" json:"redis_url"`
		TTLSeconds int    `yaml:"ttl_seconds" json:"ttl_seconds"`
	} `yaml:"lock" json:"lock"`

	Refresh struct {
		SourceURL           string   `yaml:"source_url" json:"source_url"`
		StructuredURLs      []string `yaml:"structured_urls" json:"structured_urls"`
		Term                string   `yaml:"term" json:"term"`
		Source              string   `yaml:"source" json:"source"`
		FetchTimeoutSeconds int      `yaml:"fetch_timeout_seconds" json:"fetch_timeout_seconds"`
		FreshnessHours      int      `yaml:"freshness_hours" json:"freshness_hours"`
		IntervalMinutes     int      `yaml:"interval_minutes" json:"interval_minutes"`
		UserAgent           string   `yaml:"user_agent" json:"user_agent"`
		RequestsPerSecond   float64  `yaml:"requests_per_second" json:"requests_per_second"`
	} `yaml:"refresh" json:"refresh"`

	Search struct {
		Enabled         bool     `yaml:"enabled" json:"enabled"`
		ProviderURL     string   `yaml:"provider_url" json:"provider_url"`
		Queries         []string `yaml:"queries" json:"queries"`
		Term            string   `yaml:"term" json:"term"`
		Source          string   `yaml:"source" json:"source"`
		BatchSize       int      `yaml:"batch_size" json:"batch_size"`
		BatchPauseMS    int      `yaml:"batch_pause_ms" json:"batch_pause_ms"`
		IntervalMinutes int      `yaml:"interval_minutes" json:"interval_minutes"`
		MinScore        int      `yaml:"min_score" json:"min_score"`
		LocationsAllow  []string `yaml:"locations_allow" json:"locations_allow"`
		LocationsBlock  []string `yaml:"locations_block" json:"locations_block"`
	} `yaml:"search" json:"search"`

	Scoring struct {
		TitleRules   []Rule    `yaml:"title_rules" json:"title_rules"`
		KeywordRules []Rule    `yaml:"keyword_rules" json:"keyword_rules"`
		Penalties    []Penalty `yaml:"penalties" json:"penalties"`
	} `yaml:"scoring" json:"scoring"`

	HTTP struct {
		AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	} `yaml:"http" json:"http"`
}

// Default is what an empty or partial file falls back to.
func Default() Config {
	var cfg Config
	cfg.App.Addr = "127.0.0.1:38471"
	cfg.App.DataDir = "data"

	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = "internwatch.db"
	cfg.Store.MaxConns = 4
	cfg.Store.UpsertBatch = 200

	cfg.Lock.Backend = "file"
	cfg.Lock.Path = "internwatch.lock"
	cfg.Lock.TTLSeconds = 600

	cfg.Refresh.Term = "Summer 2026"
	cfg.Refresh.Source = "github"
	cfg.Refresh.FetchTimeoutSeconds = 30
	cfg.Refresh.FreshnessHours = 48
	cfg.Refresh.RequestsPerSecond = 2

	cfg.Search.Term = "Summer 2026"
	cfg.Search.Source = "search"
	cfg.Search.BatchSize = 3
	cfg.Search.BatchPauseMS = 1000
	cfg.Search.MinScore = 1
	return cfg
}

// Load reads path over Default so missing keys keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Refresh.FetchTimeoutSeconds) * time.Second
}

func (c Config) FreshnessWindow() time.Duration {
	return time.Duration(c.Refresh.FreshnessHours) * time.Hour
}

func (c Config) LockTTL() time.Duration {
	return time.Duration(c.Lock.TTLSeconds) * time.Second
}

func (c Config) BatchPause() time.Duration {
	return time.Duration(c.Search.BatchPauseMS) * time.Millisecond
}
