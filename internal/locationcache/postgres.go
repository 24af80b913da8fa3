package locationcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/imsight/visitlog/internal/db"
	"github.com/imsight/visitlog/internal/geocell"
)

// defaultSearchRadius is the recorded search radius for a cache row. Transit
// searches use the full 1000m radius; amenity searches use a tighter one.
const defaultSearchRadius = 1000

// PostgresStore implements Store on a pgx pool. The caller owns the pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore on an existing pool.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS location_cache (
	id              BIGSERIAL PRIMARY KEY,
	cell_id         TEXT NOT NULL UNIQUE,
	center_lat      DOUBLE PRECISION NOT NULL,
	center_lng      DOUBLE PRECISION NOT NULL,
	transit_data    JSONB NOT NULL DEFAULT '{}',
	amenities_data  JSONB NOT NULL DEFAULT '[]',
	search_radius   INT NOT NULL DEFAULT 1000,
	source          TEXT NOT NULL DEFAULT 'KAKAO',
	api_call_count  INT NOT NULL DEFAULT 0,
	last_fetched_at TIMESTAMPTZ NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_location_cache_last_fetched ON location_cache(last_fetched_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "locationcache: migrate")
}

// Close is a no-op; the pool is owned by the caller.
func (s *PostgresStore) Close() error {
	return nil
}

const selectColumns = `cell_id, center_lat, center_lng, transit_data, amenities_data, search_radius, source, api_call_count, last_fetched_at`

func (s *PostgresStore) Get(ctx context.Context, cell geocell.CellID) (*Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM location_cache WHERE cell_id = $1`,
		string(cell),
	)
	return scanRecord(row)
}

func (s *PostgresStore) GetFresh(ctx context.Context, cell geocell.CellID, ttl time.Duration) (*Record, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM location_cache WHERE cell_id = $1 AND last_fetched_at > $2`,
		string(cell), cutoff,
	)
	return scanRecord(row)
}

func (s *PostgresStore) Upsert(ctx context.Context, cell geocell.CellID, centerLat, centerLng float64, transit TransitInfo, amenities []AmenityInfo) error {
	transitJSON, amenitiesJSON, err := marshalData(transit, amenities)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO location_cache (cell_id, center_lat, center_lng, transit_data, amenities_data, search_radius, source, api_call_count, last_fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, now())
		ON CONFLICT (cell_id) DO UPDATE SET
			center_lat = EXCLUDED.center_lat,
			center_lng = EXCLUDED.center_lng,
			transit_data = EXCLUDED.transit_data,
			amenities_data = EXCLUDED.amenities_data,
			search_radius = EXCLUDED.search_radius,
			source = EXCLUDED.source,
			api_call_count = location_cache.api_call_count + 1,
			last_fetched_at = now(),
			updated_at = now()`,
		string(cell), centerLat, centerLng, transitJSON, amenitiesJSON, defaultSearchRadius, SourceKakao,
	)
	return eris.Wrapf(err, "locationcache: upsert %s", cell)
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(api_call_count), 0) FROM location_cache`,
	).Scan(&st.Records, &st.TotalAPICalls)
	if err != nil {
		return nil, eris.Wrap(err, "locationcache: stats")
	}
	return &st, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		r             Record
		cellID        string
		transitJSON   []byte
		amenitiesJSON []byte
	)
	err := row.Scan(&cellID, &r.CenterLat, &r.CenterLng, &transitJSON, &amenitiesJSON,
		&r.SearchRadiusMeters, &r.Source, &r.APICallCount, &r.LastFetchedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "locationcache: scan record")
	}

	r.CellID = geocell.CellID(cellID)
	if err := unmarshalData(transitJSON, amenitiesJSON, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func marshalData(transit TransitInfo, amenities []AmenityInfo) (transitJSON, amenitiesJSON []byte, err error) {
	transitJSON, err = json.Marshal(transit)
	if err != nil {
		return nil, nil, eris.Wrap(err, "locationcache: marshal transit")
	}
	if amenities == nil {
		amenities = []AmenityInfo{}
	}
	amenitiesJSON, err = json.Marshal(amenities)
	if err != nil {
		return nil, nil, eris.Wrap(err, "locationcache: marshal amenities")
	}
	return transitJSON, amenitiesJSON, nil
}

func unmarshalData(transitJSON, amenitiesJSON []byte, r *Record) error {
	if err := json.Unmarshal(transitJSON, &r.Transit); err != nil {
		return eris.Wrap(err, "locationcache: unmarshal transit")
	}
	if err := json.Unmarshal(amenitiesJSON, &r.Amenities); err != nil {
		return eris.Wrap(err, "locationcache: unmarshal amenities")
	}
	return nil
}
