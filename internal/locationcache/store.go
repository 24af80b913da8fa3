package locationcache

import (
	"context"
	"time"

	"github.com/imsight/visitlog/internal/geocell"
)

// Stats summarizes cache usage.
type Stats struct {
	Records       int64 `json:"records"`
	TotalAPICalls int64 `json:"total_api_calls"`
}

// Store defines the persistence interface for location cache records.
type Store interface {
	// Get returns the record for a cell, or nil if none exists.
	Get(ctx context.Context, cell geocell.CellID) (*Record, error)

	// GetFresh returns the record for a cell only if it was fetched within
	// ttl, or nil otherwise.
	GetFresh(ctx context.Context, cell geocell.CellID, ttl time.Duration) (*Record, error)

	// Upsert creates the record for a cell or overwrites its data fields,
	// incrementing the api call count and refreshing the fetch timestamp.
	// Concurrent upserts for the same cell are last-writer-wins.
	Upsert(ctx context.Context, cell geocell.CellID, centerLat, centerLng float64, transit TransitInfo, amenities []AmenityInfo) error

	// Stats returns record and api call totals.
	Stats(ctx context.Context) (*Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
