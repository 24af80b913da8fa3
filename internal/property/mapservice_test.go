package property

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imsight/visitlog/internal/geocell"
	"github.com/imsight/visitlog/internal/locationcache"
)

type fakeStore struct {
	props  map[uuid.UUID]*Property
	thumbs map[uuid.UUID]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{props: map[uuid.UUID]*Property{}, thumbs: map[uuid.UUID]string{}}
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (*Property, error) {
	p, ok := f.props[id]
	if !ok || p.DeletedAt != nil {
		return nil, eris.Wrapf(ErrPropertyNotFound, "property %s", id)
	}
	return p, nil
}

func (f *fakeStore) ListByOwnerInCells(_ context.Context, ownerID uuid.UUID, cells map[geocell.CellID]struct{}) ([]*Property, error) {
	var out []*Property
	for _, p := range f.props {
		if p.OwnerID != ownerID || p.DeletedAt != nil {
			continue
		}
		if _, ok := cells[p.CellID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) AssignCell(_ context.Context, id uuid.UUID, cell geocell.CellID) error {
	f.props[id].CellID = cell
	return nil
}

func (f *fakeStore) SetFetchStatus(_ context.Context, id uuid.UUID, status FetchStatus, fetchedAt *time.Time) error {
	f.props[id].FetchStatus = status
	f.props[id].FetchedAt = fetchedAt
	return nil
}

func (f *fakeStore) ThumbnailURL(_ context.Context, id uuid.UUID) (string, error) {
	return f.thumbs[id], nil
}

func (f *fakeStore) PurgeDeleted(_ context.Context, olderThan time.Time) (int64, error) {
	var n int64
	for id, p := range f.props {
		if p.DeletedAt != nil && p.DeletedAt.Before(olderThan) {
			delete(f.props, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

type fakeCache struct {
	records map[geocell.CellID]*locationcache.Record
}

func (f *fakeCache) Get(_ context.Context, cell geocell.CellID) (*locationcache.Record, error) {
	return f.records[cell], nil
}

func seedProperty(store *fakeStore, owner uuid.UUID, lat, lng float64, rating int) *Property {
	cell, _ := geocell.ToCell(lat, lng, geocell.ResolutionForZoom(15))
	p := &Property{
		ID:          uuid.New(),
		OwnerID:     owner,
		Address:     "서울시 중구 세종대로 110",
		PriceType:   "JEONSE",
		Deposit:     30000,
		Rating:      rating,
		Lat:         lat,
		Lng:         lng,
		CellID:      cell,
		FetchStatus: FetchCompleted,
		VisitedAt:   time.Now().UTC(),
	}
	store.props[p.ID] = p
	return p
}

func TestQueryMarkers_OnlyOwnerAndViewport(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	other := uuid.New()

	inside := seedProperty(store, owner, 37.55, 127.00, 5)
	seedProperty(store, owner, 35.18, 129.07, 4) // Busan, outside viewport
	seedProperty(store, other, 37.55, 127.00, 2) // not ours

	svc := NewMapService(store, &fakeCache{})
	markers, err := svc.QueryMarkers(context.Background(), owner, Viewport{
		NELat: 37.60, NELng: 127.10, SWLat: 37.50, SWLng: 126.90, Zoom: 15,
	})

	require.NoError(t, err)
	require.Len(t, markers, 1)
	assert.Equal(t, inside.ID, markers[0].ID)
	assert.Equal(t, MarkerGreen, markers[0].Color)
	assert.Equal(t, 1, markers[0].Count)
}

func TestQueryMarkers_ColorPerRating(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	seedProperty(store, owner, 37.55, 127.00, 3)

	svc := NewMapService(store, &fakeCache{})
	markers, err := svc.QueryMarkers(context.Background(), owner, Viewport{
		NELat: 37.60, NELng: 127.10, SWLat: 37.50, SWLng: 126.90, Zoom: 15,
	})

	require.NoError(t, err)
	require.Len(t, markers, 1)
	assert.Equal(t, MarkerYellow, markers[0].Color)
}

func TestSummaryCard(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	p := seedProperty(store, owner, 37.55, 127.00, 4)
	store.thumbs[p.ID] = "https://cdn.example.com/img0.jpg"

	svc := NewMapService(store, &fakeCache{})
	card, err := svc.SummaryCard(context.Background(), owner, p.ID)

	require.NoError(t, err)
	assert.Equal(t, p.Address, card.Address)
	assert.Equal(t, "https://cdn.example.com/img0.jpg", card.ThumbnailURL)
	assert.Equal(t, int64(30000), card.Deposit)
}

func TestSummaryCard_OtherOwnerDenied(t *testing.T) {
	store := newFakeStore()
	p := seedProperty(store, uuid.New(), 37.55, 127.00, 4)

	svc := NewMapService(store, &fakeCache{})
	_, err := svc.SummaryCard(context.Background(), uuid.New(), p.ID)

	assert.True(t, eris.Is(err, ErrAccessDenied))
}

func TestSummaryCard_MissingProperty(t *testing.T) {
	svc := NewMapService(newFakeStore(), &fakeCache{})
	_, err := svc.SummaryCard(context.Background(), uuid.New(), uuid.New())

	assert.True(t, eris.Is(err, ErrPropertyNotFound))
}

func TestLocationDetail_FromCache(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	p := seedProperty(store, owner, 37.55, 127.00, 4)

	cache := &fakeCache{records: map[geocell.CellID]*locationcache.Record{
		p.CellID: {
			CellID:  p.CellID,
			Transit: locationcache.TransitInfo{NearestStation: "시청역", DistanceMeters: 230, WalkMinutes: 3},
			Amenities: []locationcache.AmenityInfo{
				{Category: "편의점", CategoryCode: "CS2", Count: 4, NearestName: "GS25", NearestDistance: 80},
			},
		},
	}}

	svc := NewMapService(store, cache)
	detail, err := svc.LocationDetail(context.Background(), owner, p.ID)

	require.NoError(t, err)
	require.NotNil(t, detail.Subway)
	assert.Equal(t, "시청역", detail.Subway.Name)
	assert.Equal(t, 3, detail.Subway.WalkMinutes)
	assert.Nil(t, detail.Bus)
	require.Len(t, detail.Amenities, 1)
	assert.Equal(t, "CS2", detail.Amenities[0].CategoryCode)
	assert.Equal(t, FetchCompleted, detail.FetchStatus)
}

func TestLocationDetail_CacheMiss(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	p := seedProperty(store, owner, 37.55, 127.00, 4)
	p.FetchStatus = FetchPending

	svc := NewMapService(store, &fakeCache{})
	detail, err := svc.LocationDetail(context.Background(), owner, p.ID)

	require.NoError(t, err)
	assert.Nil(t, detail.Subway)
	assert.Empty(t, detail.Amenities)
	assert.Equal(t, FetchPending, detail.FetchStatus)
}

func TestLocationDetail_NoStationWithinRadius(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	p := seedProperty(store, owner, 37.55, 127.00, 4)

	cache := &fakeCache{records: map[geocell.CellID]*locationcache.Record{
		p.CellID: {CellID: p.CellID},
	}}

	svc := NewMapService(store, cache)
	detail, err := svc.LocationDetail(context.Background(), owner, p.ID)

	require.NoError(t, err)
	assert.Nil(t, detail.Subway)
	assert.Empty(t, detail.Amenities)
}
