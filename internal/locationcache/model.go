// Package locationcache persists transit and amenity enrichment per geocell,
// keyed by cell id with a freshness bound so stale cells are refetched.
package locationcache

import (
	"time"

	"github.com/imsight/visitlog/internal/geocell"
)

// DefaultTTL is how long a cache record stays fresh before the next trigger
// refetches the cell.
const DefaultTTL = 30 * 24 * time.Hour

// SourceKakao labels records fetched from the Kakao Local API.
const SourceKakao = "KAKAO"

// TransitInfo describes the nearest subway station for a cell. The JSON
// field names are the persisted jsonb schema.
type TransitInfo struct {
	NearestStation string `json:"nearestSubwayStation,omitempty"`
	DistanceMeters int    `json:"subwayDistance,omitempty"`
	WalkMinutes    int    `json:"subwayWalkTime,omitempty"`
	// Bus stop counting is not implemented; the field is kept in the schema.
	BusStopCount int `json:"busStopCount"`
}

// IsEmpty reports whether no station was found within the search radius.
func (t TransitInfo) IsEmpty() bool {
	return t.NearestStation == ""
}

// AmenityInfo describes one amenity category around a cell.
type AmenityInfo struct {
	Category        string `json:"category"`
	CategoryCode    string `json:"categoryCode"`
	Count           int    `json:"count"`
	NearestName     string `json:"nearestName,omitempty"`
	NearestDistance int    `json:"nearestDistance,omitempty"`
}

// Record is one cached enrichment result. At most one record exists per
// cell id; records are overwritten on refetch and never deleted.
type Record struct {
	CellID             geocell.CellID
	CenterLat          float64
	CenterLng          float64
	Transit            TransitInfo
	Amenities          []AmenityInfo
	SearchRadiusMeters int
	Source             string
	APICallCount       int
	LastFetchedAt      time.Time
}

// Fresh reports whether the record was fetched within ttl of now.
func (r *Record) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.LastFetchedAt) < ttl
}
