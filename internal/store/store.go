package store

import (
	"context"
	"errors"
	"fmt"

	"internwatch-engine/internal/domain"
	"internwatch-engine/internal/signals"
)

var ErrNotFound = errors.New("not found")

type ListOpts struct {
	Source string
	Term   string
	Limit  int
}

// Store is everything the engine persists: opening signals and the
// per-user inbox that references them.
type Store interface {
	signals.Store

	ListActive(ctx context.Context, opts ListOpts) ([]domain.OpeningSignal, error)
	SetInboxStatus(ctx context.Context, userID, signalID string, status domain.InboxStatus) error
	ListInbox(ctx context.Context, userID string, status domain.InboxStatus) ([]domain.InboxItem, error)

	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Postgres)(nil)
)

type Options struct {
	Driver      string // sqlite | postgres
	SQLitePath  string
	PostgresDSN string
	MaxConns    int
	ViaBouncer  bool
}

// Open connects and migrates the configured backend.
func Open(ctx context.Context, o Options) (Store, error) {
	switch o.Driver {
	case "", "sqlite":
		db, err := OpenSQLite(o.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", o.SQLitePath, err)
		}
		if err := db.Migrate(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return db, nil
	case "postgres":
		pg, err := OpenPostgres(ctx, o.PostgresDSN, o.MaxConns, o.ViaBouncer)
		if err != nil {
			return nil, err
		}
		if _, _, err := pg.Migrate(); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", o.Driver)
	}
}

func defaultLimit(n int) int {
	if n <= 0 || n > 5000 {
		return 500
	}
	return n
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

const lookupChunk = 500

func chunks(xs []string, n int) [][]string {
	var out [][]string
	for len(xs) > n {
		out = append(out, xs[:n])
		xs = xs[n:]
	}
	if len(xs) > 0 {
		out = append(out, xs)
	}
	return out
}
