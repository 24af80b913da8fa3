package property

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/imsight/visitlog/internal/geocell"
	"github.com/imsight/visitlog/internal/locationcache"
)

// CacheReader is the slice of the location cache the map service needs.
type CacheReader interface {
	Get(ctx context.Context, cell geocell.CellID) (*locationcache.Record, error)
}

// MapService answers the synchronous map queries: viewport markers, summary
// cards, and cached location detail. It never calls the upstream place API.
type MapService struct {
	store Store
	cache CacheReader
}

func NewMapService(store Store, cache CacheReader) *MapService {
	return &MapService{store: store, cache: cache}
}

// QueryMarkers returns one marker per visible property owned by the user.
// The viewport is covered with cells at a zoom-dependent resolution and the
// store is queried by cell membership rather than raw coordinate range.
func (m *MapService) QueryMarkers(ctx context.Context, ownerID uuid.UUID, vp Viewport) ([]Marker, error) {
	res := geocell.ResolutionForZoom(vp.Zoom)
	cells, err := geocell.CellsForViewport(vp.NELat, vp.NELng, vp.SWLat, vp.SWLng, res)
	if err != nil {
		return nil, eris.Wrap(err, "map: cover viewport")
	}

	props, err := m.store.ListByOwnerInCells(ctx, ownerID, cells)
	if err != nil {
		return nil, err
	}

	markers := make([]Marker, 0, len(props))
	for _, p := range props {
		markers = append(markers, Marker{
			ID:    p.ID,
			Lat:   p.Lat,
			Lng:   p.Lng,
			Color: ColorForRating(p.Rating),
			Count: 1,
		})
	}
	zap.L().Debug("map markers resolved",
		zap.Int("zoom", vp.Zoom),
		zap.Int("resolution", res),
		zap.Int("cells", len(cells)),
		zap.Int("markers", len(markers)),
	)
	return markers, nil
}

// SummaryCard returns the tap-through card for a marker. Only the owner may
// see it.
func (m *MapService) SummaryCard(ctx context.Context, ownerID, propertyID uuid.UUID) (*SummaryCard, error) {
	p, err := m.store.Get(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != ownerID {
		return nil, eris.Wrapf(ErrAccessDenied, "property %s", propertyID)
	}

	thumb, err := m.store.ThumbnailURL(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return &SummaryCard{
		ID:           p.ID,
		Address:      p.Address,
		PriceType:    p.PriceType,
		Deposit:      p.Deposit,
		MonthlyRent:  p.MonthlyRent,
		Rating:       p.Rating,
		ThumbnailURL: thumb,
		VisitedAt:    p.VisitedAt,
	}, nil
}

// LocationDetail returns the enrichment payload for a property from the cache
// alone. A property whose cell has no cache entry yet reports its fetch
// status with empty surroundings.
func (m *MapService) LocationDetail(ctx context.Context, ownerID, propertyID uuid.UUID) (*LocationDetail, error) {
	p, err := m.store.Get(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != ownerID {
		return nil, eris.Wrapf(ErrAccessDenied, "property %s", propertyID)
	}

	detail := &LocationDetail{
		Amenities:   []AmenitySummary{},
		FetchStatus: p.FetchStatus,
		FetchedAt:   p.FetchedAt,
	}
	if p.CellID == "" {
		return detail, nil
	}

	rec, err := m.cache.Get(ctx, p.CellID)
	if err != nil {
		return nil, eris.Wrapf(err, "map: location detail %s", propertyID)
	}
	if rec == nil {
		return detail, nil
	}

	if !rec.Transit.IsEmpty() {
		detail.Subway = &StationInfo{
			Name:           rec.Transit.NearestStation,
			DistanceMeters: rec.Transit.DistanceMeters,
			WalkMinutes:    rec.Transit.WalkMinutes,
		}
	}
	for _, a := range rec.Amenities {
		detail.Amenities = append(detail.Amenities, AmenitySummary{
			Category:        a.Category,
			CategoryCode:    a.CategoryCode,
			Count:           a.Count,
			NearestName:     a.NearestName,
			NearestDistance: a.NearestDistance,
		})
	}
	return detail, nil
}
