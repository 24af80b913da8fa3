package property

import (
	"time"

	"github.com/google/uuid"

	"github.com/imsight/visitlog/internal/geocell"
)

// FetchStatus tracks the lifecycle of a property's location enrichment.
type FetchStatus string

const (
	FetchPending    FetchStatus = "PENDING"
	FetchProcessing FetchStatus = "PROCESSING"
	FetchCompleted  FetchStatus = "COMPLETED"
	FetchFailed     FetchStatus = "FAILED"
)

// MarkerColor is the map pin color derived from the visit rating.
type MarkerColor string

const (
	MarkerGreen  MarkerColor = "GREEN"
	MarkerYellow MarkerColor = "YELLOW"
	MarkerRed    MarkerColor = "RED"
)

// ColorForRating maps a 1-5 visit rating onto a marker color. Ratings of 4
// and above read as good, exactly 3 as neutral, everything else as poor.
func ColorForRating(rating int) MarkerColor {
	switch {
	case rating >= 4:
		return MarkerGreen
	case rating == 3:
		return MarkerYellow
	default:
		return MarkerRed
	}
}

// Property is a logged site visit. Coordinates are captured at creation time
// and the cell id is assigned the first time enrichment runs.
type Property struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Address     string
	PriceType   string
	Deposit     int64
	MonthlyRent int64
	Rating      int
	Lat         float64
	Lng         float64
	CellID      geocell.CellID
	FetchStatus FetchStatus
	FetchedAt   *time.Time
	VisitedAt   time.Time
	DeletedAt   *time.Time
}

// Marker is a single map pin. Count is reserved for future clustering and is
// always 1 for now.
type Marker struct {
	ID    uuid.UUID   `json:"id"`
	Lat   float64     `json:"lat"`
	Lng   float64     `json:"lng"`
	Color MarkerColor `json:"color"`
	Count int         `json:"count"`
}

// SummaryCard is the condensed view shown when a marker is tapped.
type SummaryCard struct {
	ID           uuid.UUID `json:"id"`
	Address      string    `json:"address"`
	PriceType    string    `json:"priceType"`
	Deposit      int64     `json:"deposit"`
	MonthlyRent  int64     `json:"monthlyRent"`
	Rating       int       `json:"rating"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	VisitedAt    time.Time `json:"visitedAt"`
}

// Viewport is a map window in the order map SDKs report it.
type Viewport struct {
	NELat float64
	NELng float64
	SWLat float64
	SWLng float64
	Zoom  int
}

// StationInfo describes the nearest transit stop of one kind.
type StationInfo struct {
	Name           string `json:"name"`
	DistanceMeters int    `json:"distanceMeters"`
	WalkMinutes    int    `json:"walkMinutes"`
}

// AmenitySummary is one amenity category near a property.
type AmenitySummary struct {
	Category        string `json:"category"`
	CategoryCode    string `json:"categoryCode"`
	Count           int    `json:"count"`
	NearestName     string `json:"nearestName,omitempty"`
	NearestDistance int    `json:"nearestDistance,omitempty"`
}

// LocationDetail is the enrichment payload for a single property. Bus is
// always nil until a bus stop data source is wired in.
type LocationDetail struct {
	Subway      *StationInfo     `json:"subway"`
	Bus         *StationInfo     `json:"bus"`
	Amenities   []AmenitySummary `json:"amenities"`
	FetchStatus FetchStatus      `json:"fetchStatus"`
	FetchedAt   *time.Time       `json:"fetchedAt,omitempty"`
}
