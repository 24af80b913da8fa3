package property

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imsight/visitlog/internal/geocell"
)

var propertyCols = []string{
	"id", "owner_id", "address", "price_type", "deposit", "monthly_rent",
	"rating", "lat", "lng", "cell_id", "fetch_status", "fetched_at", "visited_at", "deleted_at",
}

func propertyRow(id, ownerID uuid.UUID) *pgxmock.Rows {
	return pgxmock.NewRows(propertyCols).AddRow(
		id, ownerID, "서울시 중구 세종대로 110", "JEONSE", int64(30000), int64(0),
		5, 37.5665, 126.978, "1203002232310", "COMPLETED", (*time.Time)(nil),
		time.Now().UTC(), (*time.Time)(nil),
	)
}

func TestPostgresGetProperty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	owner := uuid.New()
	mock.ExpectQuery(`SELECT .+ FROM properties WHERE id = \$1 AND deleted_at IS NULL`).
		WithArgs(id).
		WillReturnRows(propertyRow(id, owner))

	s := NewPostgres(mock)
	p, err := s.Get(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, owner, p.OwnerID)
	assert.Equal(t, geocell.CellID("1203002232310"), p.CellID)
	assert.Equal(t, FetchCompleted, p.FetchStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetProperty_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT .+ FROM properties WHERE id = \$1 AND deleted_at IS NULL`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(propertyCols))

	s := NewPostgres(mock)
	_, err = s.Get(context.Background(), id)

	assert.True(t, eris.Is(err, ErrPropertyNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListByOwnerInCells_EmptySetSkipsQuery(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgres(mock)
	props, err := s.ListByOwnerInCells(context.Background(), uuid.New(), nil)

	require.NoError(t, err)
	assert.Empty(t, props)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListByOwnerInCells(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	owner := uuid.New()
	id := uuid.New()
	mock.ExpectQuery(`SELECT .+ FROM properties`).
		WithArgs(owner, pgxmock.AnyArg()).
		WillReturnRows(propertyRow(id, owner))

	s := NewPostgres(mock)
	props, err := s.ListByOwnerInCells(context.Background(), owner,
		map[geocell.CellID]struct{}{"1203002232310": {}})

	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, id, props[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSetFetchStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	now := time.Now().UTC()
	mock.ExpectExec(`UPDATE properties SET fetch_status = \$2`).
		WithArgs(id, "COMPLETED", &now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	s := NewPostgres(mock)
	require.NoError(t, s.SetFetchStatus(context.Background(), id, FetchCompleted, &now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAssignCell(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec(`UPDATE properties SET cell_id = \$2`).
		WithArgs(id, "1203002232310").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	s := NewPostgres(mock)
	require.NoError(t, s.AssignCell(context.Background(), id, geocell.CellID("1203002232310")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresThumbnailURL_NoImages(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT url FROM property_images`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"url"}))

	s := NewPostgres(mock)
	url, err := s.ThumbnailURL(context.Background(), id)

	require.NoError(t, err)
	assert.Empty(t, url)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPurgeDeleted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cutoff := time.Now().UTC().Add(-90 * 24 * time.Hour)
	mock.ExpectExec(`DELETE FROM properties WHERE deleted_at IS NOT NULL`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	s := NewPostgres(mock)
	n, err := s.PurgeDeleted(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestColorForRating(t *testing.T) {
	assert.Equal(t, MarkerGreen, ColorForRating(5))
	assert.Equal(t, MarkerGreen, ColorForRating(4))
	assert.Equal(t, MarkerYellow, ColorForRating(3))
	assert.Equal(t, MarkerRed, ColorForRating(2))
	assert.Equal(t, MarkerRed, ColorForRating(1))
	assert.Equal(t, MarkerRed, ColorForRating(0))
}
