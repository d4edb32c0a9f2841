package httpapi

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"internwatch-engine/internal/config"
	"internwatch-engine/internal/events"
	"internwatch-engine/internal/poll"
	"internwatch-engine/internal/scrape/search"
	"internwatch-engine/internal/scrape/types"
	"internwatch-engine/internal/store"
)

type Deps struct {
	Store store.Store

	Hub    *events.Hub
	Runner *poll.Runner

	// Atomic stores
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Upstream access for the function endpoints
	Fetcher  types.Fetcher
	Provider func(cfg config.Config) search.Provider // nil: feed provider over Fetcher

	// FunctionKey guards /functions/*; empty leaves them open.
	FunctionKey string

	Logger zerolog.Logger
}
