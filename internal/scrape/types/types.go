package types

import (
	"context"

	"internwatch-engine/internal/scrape/util"
)

// Fetcher is the outbound GET the pipelines depend on; *util.Client is
// the production implementation.
type Fetcher interface {
	Get(ctx context.Context, url, accept string) (util.FetchResult, error)
}

var _ Fetcher = (*util.Client)(nil)

// RunStatus is the last known state of one named pipeline.
type RunStatus struct {
	LastRunAt    string `json:"last_run_at"`
	LastOkAt     string `json:"last_ok_at"`
	LastError    string `json:"last_error"`
	LastRunID    string `json:"last_run_id"`
	LastInserted int    `json:"last_inserted"`
	LastUpdated  int    `json:"last_updated"`
	Running      bool   `json:"running"`
}
