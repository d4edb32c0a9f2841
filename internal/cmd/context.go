package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"internwatch-engine/internal/config"
	"internwatch-engine/internal/runlock"
	"internwatch-engine/internal/scrape/util"
	"internwatch-engine/internal/store"
)

// DefaultConfigPath is the shipped config copied into the data dir on
// first start.
var DefaultConfigPath = filepath.Join("config", "config.yml")

// Context is bound into every command's Run.
type Context struct {
	Ctx    context.Context
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Logger zerolog.Logger

	ConfigPath string
	Overrides  config.Overrides
}

// NewLogger builds the process logger from the global flags.
func NewLogger(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// NewContext resolves the config file and the overrides the global flags
// carry. It does not open anything.
func NewContext(ctx context.Context, cli *CLI, out, errw io.Writer, logger zerolog.Logger) (*Context, error) {
	path := cli.Config
	if path == "" {
		p, err := config.EnsureUserConfig(cli.DataDir, DefaultConfigPath)
		if err != nil {
			return nil, fmt.Errorf("config bootstrap: %w", err)
		}
		path = p
	}
	return &Context{
		Ctx:        logger.WithContext(ctx),
		In:         os.Stdin,
		Out:        out,
		Err:        errw,
		Logger:     logger,
		ConfigPath: path,
		Overrides: config.Overrides{
			DataDir:     cli.DataDir,
			DatabaseURL: cli.DatabaseURL,
			RedisURL:    cli.RedisURL,
		},
	}, nil
}

// LoadConfig reads the config file, applies the flag overrides and
// validates the result.
func (c *Context) LoadConfig() (config.Config, error) {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config %s: %w", c.ConfigPath, err)
	}
	config.Overlay(&cfg, c.Overrides)
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (c *Context) OpenStore(cfg config.Config) (store.Store, error) {
	if cfg.Store.Driver != "postgres" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.SQLitePath), 0o755); err != nil {
			return nil, err
		}
	}
	return store.Open(c.Ctx, store.Options{
		Driver:      cfg.Store.Driver,
		SQLitePath:  cfg.Store.SQLitePath,
		PostgresDSN: cfg.Store.PostgresDSN,
		MaxConns:    cfg.Store.MaxConns,
		ViaBouncer:  cfg.Store.ViaBouncer,
	})
}

// OpenLock returns the configured run lock and a closer for its backend.
func (c *Context) OpenLock(cfg config.Config) (runlock.Locker, func(), error) {
	switch cfg.Lock.Backend {
	case "redis":
		client, err := runlock.DialRedis(c.Ctx, cfg.Lock.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return runlock.NewRedis(client, cfg.LockTTL(), ""), func() { _ = client.Close() }, nil
	case "none":
		return runlock.Noop{}, func() {}, nil
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Lock.Path), 0o755); err != nil {
			return nil, nil, err
		}
		return runlock.File{Path: cfg.Lock.Path}, func() {}, nil
	}
}

// NewFetcher is the shared outbound client, rate limited per host.
func NewFetcher(cfg config.Config) *util.Client {
	var limiter *util.HostLimiter
	if cfg.Refresh.RequestsPerSecond > 0 {
		limiter = util.NewHostLimiter(cfg.Refresh.RequestsPerSecond, 1)
	}
	return util.NewClient(cfg.FetchTimeout(), limiter, cfg.Refresh.UserAgent)
}
