// Package geocell maps coordinates onto a deterministic hierarchical grid of
// web mercator tiles. A cell id is the tile's quadkey in base-4, so the id
// length equals the resolution and a prefix addresses the enclosing coarser
// cell. Cells key the location enrichment cache and bucket properties for
// viewport queries.
package geocell

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/maptile/tilecover"
	"github.com/rotisserie/eris"
)

// CellID identifies one grid cell: a base-4 quadkey whose length is the
// resolution the cell was computed at.
type CellID string

const (
	// BaseResolution is the grid resolution used for cache keys and property
	// bucketing. Tiles at this zoom are a few hundred meters wide, so points
	// in the same small neighborhood share a cell.
	BaseResolution = 17

	// MinResolution and MaxResolution bound the resolutions accepted by the
	// conversion functions. Quadkeys use 2 bits per level.
	MinResolution = 1
	MaxResolution = 22
)

// ErrInvalidCoordinate is returned for latitudes outside [-90, 90] or
// longitudes outside [-180, 180].
var ErrInvalidCoordinate = eris.New("geocell: invalid coordinate")

// ErrInvalidCell is returned when a cell id cannot be parsed.
var ErrInvalidCell = eris.New("geocell: invalid cell id")

// ToCell converts a coordinate to its cell id at the given resolution.
// The conversion is deterministic: the same coordinate always yields the
// same cell id.
func ToCell(lat, lng float64, resolution int) (CellID, error) {
	if !validCoordinate(lat, lng) {
		return "", eris.Wrapf(ErrInvalidCoordinate, "lat=%v lng=%v", lat, lng)
	}
	if err := validateResolution(resolution); err != nil {
		return "", err
	}

	tile := maptile.At(orb.Point{lng, lat}, maptile.Zoom(resolution))
	return fromTile(tile), nil
}

// Center returns the center coordinate of a cell.
func Center(id CellID) (lat, lng float64, err error) {
	tile, err := toTile(id)
	if err != nil {
		return 0, 0, err
	}
	center := tile.Center()
	return center.Lat(), center.Lon(), nil
}

// Resolution returns the resolution a cell id was computed at.
func (id CellID) Resolution() int {
	return len(id)
}

// CellsForViewport returns every cell at the given resolution covered by the
// rectangular viewport.
func CellsForViewport(neLat, neLng, swLat, swLng float64, resolution int) (map[CellID]struct{}, error) {
	for _, c := range [][2]float64{{neLat, neLng}, {swLat, swLng}} {
		if !validCoordinate(c[0], c[1]) {
			return nil, eris.Wrapf(ErrInvalidCoordinate, "lat=%v lng=%v", c[0], c[1])
		}
	}
	if err := validateResolution(resolution); err != nil {
		return nil, err
	}

	// orb points are {lng, lat}.
	bound := orb.Bound{
		Min: orb.Point{swLng, swLat},
		Max: orb.Point{neLng, neLat},
	}

	tiles := tilecover.Bound(bound, maptile.Zoom(resolution))

	cells := make(map[CellID]struct{}, len(tiles))
	for t := range tiles {
		cells[fromTile(t)] = struct{}{}
	}
	return cells, nil
}

// validCoordinate checks the inclusive ranges in positive form, so NaN
// (which fails every comparison) and infinities are rejected too.
func validCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func validateResolution(resolution int) error {
	if resolution < MinResolution || resolution > MaxResolution {
		return eris.Wrapf(ErrInvalidCell, "resolution=%d", resolution)
	}
	return nil
}

// fromTile renders a tile as a base-4 quadkey padded to the tile's zoom.
func fromTile(t maptile.Tile) CellID {
	key := strconv.FormatUint(t.Quadkey(), 4)
	if pad := int(t.Z) - len(key); pad > 0 {
		key = strings.Repeat("0", pad) + key
	}
	return CellID(key)
}

func toTile(id CellID) (maptile.Tile, error) {
	if err := validateResolution(len(id)); err != nil {
		return maptile.Tile{}, err
	}
	key, err := strconv.ParseUint(string(id), 4, 64)
	if err != nil {
		return maptile.Tile{}, eris.Wrapf(ErrInvalidCell, "cell=%s", id)
	}
	return maptile.FromQuadkey(key, maptile.Zoom(len(id))), nil
}
