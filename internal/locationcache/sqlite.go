package locationcache

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/imsight/visitlog/internal/geocell"
)

// SQLiteStore implements Store using modernc.org/sqlite, for local
// development and single-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "locationcache: sqlite open")
	}
	// A single connection keeps :memory: databases coherent and sidesteps
	// writer contention.
	sqlDB.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, eris.Wrapf(err, "locationcache: sqlite exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sqlDB}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS location_cache (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	cell_id         TEXT NOT NULL UNIQUE,
	center_lat      REAL NOT NULL,
	center_lng      REAL NOT NULL,
	transit_data    TEXT NOT NULL DEFAULT '{}',
	amenities_data  TEXT NOT NULL DEFAULT '[]',
	search_radius   INTEGER NOT NULL DEFAULT 1000,
	source          TEXT NOT NULL DEFAULT 'KAKAO',
	api_call_count  INTEGER NOT NULL DEFAULT 0,
	last_fetched_at DATETIME NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_location_cache_last_fetched ON location_cache(last_fetched_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "locationcache: sqlite migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, cell geocell.CellID) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM location_cache WHERE cell_id = ?`,
		string(cell),
	)
	return scanSQLiteRecord(row)
}

func (s *SQLiteStore) GetFresh(ctx context.Context, cell geocell.CellID, ttl time.Duration) (*Record, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM location_cache WHERE cell_id = ? AND last_fetched_at > ?`,
		string(cell), cutoff,
	)
	return scanSQLiteRecord(row)
}

func (s *SQLiteStore) Upsert(ctx context.Context, cell geocell.CellID, centerLat, centerLng float64, transit TransitInfo, amenities []AmenityInfo) error {
	transitJSON, amenitiesJSON, err := marshalData(transit, amenities)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO location_cache (cell_id, center_lat, center_lng, transit_data, amenities_data, search_radius, source, api_call_count, last_fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT (cell_id) DO UPDATE SET
			center_lat = excluded.center_lat,
			center_lng = excluded.center_lng,
			transit_data = excluded.transit_data,
			amenities_data = excluded.amenities_data,
			search_radius = excluded.search_radius,
			source = excluded.source,
			api_call_count = location_cache.api_call_count + 1,
			last_fetched_at = excluded.last_fetched_at,
			updated_at = excluded.last_fetched_at`,
		string(cell), centerLat, centerLng, string(transitJSON), string(amenitiesJSON),
		defaultSearchRadius, SourceKakao, now,
	)
	return eris.Wrapf(err, "locationcache: sqlite upsert %s", cell)
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(api_call_count), 0) FROM location_cache`,
	).Scan(&st.Records, &st.TotalAPICalls)
	if err != nil {
		return nil, eris.Wrap(err, "locationcache: sqlite stats")
	}
	return &st, nil
}

func scanSQLiteRecord(row *sql.Row) (*Record, error) {
	var (
		r             Record
		cellID        string
		transitJSON   string
		amenitiesJSON string
	)
	err := row.Scan(&cellID, &r.CenterLat, &r.CenterLng, &transitJSON, &amenitiesJSON,
		&r.SearchRadiusMeters, &r.Source, &r.APICallCount, &r.LastFetchedAt)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "locationcache: sqlite scan record")
	}

	r.CellID = geocell.CellID(cellID)
	if err := unmarshalData([]byte(transitJSON), []byte(amenitiesJSON), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
