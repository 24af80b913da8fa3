package property

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/imsight/visitlog/internal/db"
	"github.com/imsight/visitlog/internal/geocell"
)

// PostgresStore implements Store on a shared pgx pool.
type PostgresStore struct {
	pool db.Pool
}

func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const migrationSQL = `
CREATE TABLE IF NOT EXISTS properties (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL,
	address TEXT NOT NULL,
	price_type TEXT NOT NULL DEFAULT '',
	deposit BIGINT NOT NULL DEFAULT 0,
	monthly_rent BIGINT NOT NULL DEFAULT 0,
	rating INT NOT NULL DEFAULT 0,
	lat DOUBLE PRECISION NOT NULL,
	lng DOUBLE PRECISION NOT NULL,
	cell_id TEXT NOT NULL DEFAULT '',
	fetch_status TEXT NOT NULL DEFAULT 'PENDING',
	fetched_at TIMESTAMPTZ,
	visited_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_properties_owner_cell ON properties(owner_id, cell_id) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_properties_deleted ON properties(deleted_at) WHERE deleted_at IS NOT NULL;

CREATE TABLE IF NOT EXISTS property_images (
	id UUID PRIMARY KEY,
	property_id UUID NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
	url TEXT NOT NULL,
	display_order INT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_property_images_property ON property_images(property_id, display_order);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, migrationSQL)
	return eris.Wrap(err, "property: migrate")
}

// Close is a no-op. The pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

const propertyColumns = `id, owner_id, address, price_type, deposit, monthly_rent, rating, lat, lng, cell_id, fetch_status, fetched_at, visited_at, deleted_at`

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Property, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	p, err := scanProperty(row)
	if err != nil {
		return nil, eris.Wrapf(err, "property: get %s", id)
	}
	if p == nil {
		return nil, eris.Wrapf(ErrPropertyNotFound, "property %s", id)
	}
	return p, nil
}

func (s *PostgresStore) ListByOwnerInCells(ctx context.Context, ownerID uuid.UUID, cells map[geocell.CellID]struct{}) ([]*Property, error) {
	if len(cells) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(cells))
	for c := range cells {
		ids = append(ids, string(c))
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+propertyColumns+` FROM properties
		 WHERE owner_id = $1 AND cell_id = ANY($2) AND deleted_at IS NULL`,
		ownerID, ids,
	)
	if err != nil {
		return nil, eris.Wrap(err, "property: list by cells")
	}
	defer rows.Close()

	var out []*Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, eris.Wrap(err, "property: list by cells")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "property: list by cells")
}

func (s *PostgresStore) AssignCell(ctx context.Context, id uuid.UUID, cell geocell.CellID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE properties SET cell_id = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`,
		id, string(cell),
	)
	return eris.Wrapf(err, "property: assign cell %s", id)
}

func (s *PostgresStore) SetFetchStatus(ctx context.Context, id uuid.UUID, status FetchStatus, fetchedAt *time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE properties SET fetch_status = $2, fetched_at = $3, updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL`,
		id, string(status), fetchedAt,
	)
	return eris.Wrapf(err, "property: set fetch status %s", id)
}

func (s *PostgresStore) ThumbnailURL(ctx context.Context, id uuid.UUID) (string, error) {
	var url string
	err := s.pool.QueryRow(ctx,
		`SELECT url FROM property_images WHERE property_id = $1 ORDER BY display_order ASC LIMIT 1`,
		id,
	).Scan(&url)
	if eris.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return url, eris.Wrapf(err, "property: thumbnail %s", id)
}

func (s *PostgresStore) PurgeDeleted(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM properties WHERE deleted_at IS NOT NULL AND deleted_at < $1`,
		olderThan,
	)
	if err != nil {
		return 0, eris.Wrap(err, "property: purge deleted")
	}
	return tag.RowsAffected(), nil
}

func scanProperty(row pgx.Row) (*Property, error) {
	var (
		p      Property
		cellID string
		status string
	)
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Address, &p.PriceType, &p.Deposit, &p.MonthlyRent,
		&p.Rating, &p.Lat, &p.Lng, &cellID, &status, &p.FetchedAt, &p.VisitedAt, &p.DeletedAt,
	)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.CellID = geocell.CellID(cellID)
	p.FetchStatus = FetchStatus(status)
	return &p, nil
}
