package property

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/imsight/visitlog/internal/geocell"
)

// Store persists properties and their enrichment bookkeeping. Soft-deleted
// rows are invisible to every read except the purge sweep.
type Store interface {
	// Get returns a non-deleted property or ErrPropertyNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Property, error)

	// ListByOwnerInCells returns the owner's non-deleted properties whose
	// assigned cell is in the given set.
	ListByOwnerInCells(ctx context.Context, ownerID uuid.UUID, cells map[geocell.CellID]struct{}) ([]*Property, error)

	// AssignCell records the geocell a property's coordinates resolve to.
	AssignCell(ctx context.Context, id uuid.UUID, cell geocell.CellID) error

	// SetFetchStatus advances the enrichment lifecycle. fetchedAt is set only
	// on completion.
	SetFetchStatus(ctx context.Context, id uuid.UUID, status FetchStatus, fetchedAt *time.Time) error

	// ThumbnailURL returns the first image (display order 0) for a property,
	// or "" when it has none.
	ThumbnailURL(ctx context.Context, id uuid.UUID) (string, error)

	// PurgeDeleted hard-deletes rows soft-deleted before olderThan and
	// returns how many were removed.
	PurgeDeleted(ctx context.Context, olderThan time.Time) (int64, error)

	Migrate(ctx context.Context) error
	Close() error
}
