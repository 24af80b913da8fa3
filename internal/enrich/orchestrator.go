// Package enrich fetches transit and amenity context for a coordinate from
// the Kakao Local API and writes it through the location cache, one record
// per geocell.
package enrich

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/imsight/visitlog/internal/geocell"
	"github.com/imsight/visitlog/internal/locationcache"
	"github.com/imsight/visitlog/internal/property"
	"github.com/imsight/visitlog/pkg/kakao"
)

// walkMetersPerMinute converts station distance into walking minutes,
// rounded up.
const walkMetersPerMinute = 80.0

// amenityCategories are fetched for every cell, in display order.
var amenityCategories = []kakao.CategoryCode{
	kakao.CategoryConvenienceStore,
	kakao.CategoryMart,
	kakao.CategoryBank,
	kakao.CategoryHospital,
	kakao.CategoryPharmacy,
}

// Options tunes the enrichment fetch. Zero values fall back to defaults.
type Options struct {
	CacheTTL            time.Duration
	TransitRadiusMeters int
	AmenityRadiusMeters int
}

func (o Options) withDefaults() Options {
	if o.CacheTTL <= 0 {
		o.CacheTTL = locationcache.DefaultTTL
	}
	if o.TransitRadiusMeters <= 0 {
		o.TransitRadiusMeters = 1000
	}
	if o.AmenityRadiusMeters <= 0 {
		o.AmenityRadiusMeters = 500
	}
	return o
}

// Orchestrator coordinates cache lookups, Kakao fetches, and property
// status bookkeeping.
type Orchestrator struct {
	client kakao.Client
	cache  locationcache.Store
	props  property.Store
	opts   Options
}

func NewOrchestrator(client kakao.Client, cache locationcache.Store, props property.Store, opts Options) *Orchestrator {
	return &Orchestrator{
		client: client,
		cache:  cache,
		props:  props,
		opts:   opts.withDefaults(),
	}
}

// FetchAndCache resolves the coordinate's cell and ensures a fresh cache
// record exists for it. A fresh hit costs zero API calls. On a miss the
// transit search and the five amenity searches run concurrently and the
// whole batch fails fast if any of them does; nothing is written on failure.
func (o *Orchestrator) FetchAndCache(ctx context.Context, lat, lng float64) error {
	cell, err := geocell.ToCell(lat, lng, geocell.BaseResolution)
	if err != nil {
		return err
	}

	rec, err := o.cache.GetFresh(ctx, cell, o.opts.CacheTTL)
	if err != nil {
		return err
	}
	if rec != nil {
		zap.L().Debug("location cache hit", zap.String("cell", string(cell)))
		return nil
	}

	var (
		transit   locationcache.TransitInfo
		amenities = make([]locationcache.AmenityInfo, len(amenityCategories))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := o.client.SearchCategory(gctx, kakao.CategorySubway, lng, lat, o.opts.TransitRadiusMeters)
		if err != nil {
			return err
		}
		transit, err = transitFromResponse(resp)
		return err
	})
	for i, code := range amenityCategories {
		g.Go(func() error {
			resp, err := o.client.SearchCategory(gctx, code, lng, lat, o.opts.AmenityRadiusMeters)
			if err != nil {
				return err
			}
			amenities[i], err = amenityFromResponse(code, resp)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrapf(err, "enrich: fetch cell %s", cell)
	}

	if err := o.cache.Upsert(ctx, cell, lat, lng, transit, amenities); err != nil {
		return err
	}
	zap.L().Info("location cache filled",
		zap.String("cell", string(cell)),
		zap.String("station", transit.NearestStation),
		zap.Int("amenity_categories", len(amenities)),
	)
	return nil
}

// EnrichProperty runs the enrichment lifecycle for a stored property:
// assign its cell, mark it processing, fill the cache, and record the
// outcome on the property row.
func (o *Orchestrator) EnrichProperty(ctx context.Context, propertyID uuid.UUID) error {
	p, err := o.props.Get(ctx, propertyID)
	if err != nil {
		return err
	}

	cell, err := geocell.ToCell(p.Lat, p.Lng, geocell.BaseResolution)
	if err != nil {
		return err
	}
	if err := o.props.AssignCell(ctx, p.ID, cell); err != nil {
		return err
	}
	if err := o.props.SetFetchStatus(ctx, p.ID, property.FetchProcessing, nil); err != nil {
		return err
	}

	if err := o.FetchAndCache(ctx, p.Lat, p.Lng); err != nil {
		if serr := o.props.SetFetchStatus(ctx, p.ID, property.FetchFailed, nil); serr != nil {
			zap.L().Error("mark property failed", zap.String("property", p.ID.String()), zap.Error(serr))
		}
		return err
	}

	now := time.Now().UTC()
	return o.props.SetFetchStatus(ctx, p.ID, property.FetchCompleted, &now)
}

func transitFromResponse(resp *kakao.CategorySearchResponse) (locationcache.TransitInfo, error) {
	doc, ok := resp.Nearest()
	if !ok {
		return locationcache.TransitInfo{}, nil
	}
	dist, err := doc.DistanceMeters()
	if err != nil {
		return locationcache.TransitInfo{}, err
	}
	return locationcache.TransitInfo{
		NearestStation: doc.PlaceName,
		DistanceMeters: dist,
		WalkMinutes:    walkMinutes(dist),
	}, nil
}

// amenityFromResponse always produces an entry, with a zero count when the
// category had no hits within the radius.
func amenityFromResponse(code kakao.CategoryCode, resp *kakao.CategorySearchResponse) (locationcache.AmenityInfo, error) {
	info := locationcache.AmenityInfo{
		Category:     code.Label(),
		CategoryCode: string(code),
	}
	doc, ok := resp.Nearest()
	if !ok {
		return info, nil
	}
	dist, err := doc.DistanceMeters()
	if err != nil {
		return info, err
	}
	info.Count = len(resp.Documents)
	info.NearestName = doc.PlaceName
	info.NearestDistance = dist
	return info, nil
}

func walkMinutes(distanceMeters int) int {
	return int(math.Ceil(float64(distanceMeters) / walkMetersPerMinute))
}
