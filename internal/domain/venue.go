package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a venue id is unknown to the store.
var ErrNotFound = errors.New("venue not found")

// ErrUnknownCity is returned for a city code no source publishes.
var ErrUnknownCity = errors.New("unknown city")

// Quiet level categories derived from the quiet score.
const (
	QuietLevelQuiet  QuietLevel = "quiet"
	QuietLevelNormal QuietLevel = "normal"
	QuietLevelLoud   QuietLevel = "loud"
)

// QuietLevel is the categorical bucket of a venue's noise rating.
type QuietLevel string

// Valid reports whether q is one of the known categories.
func (q QuietLevel) Valid() bool {
	switch q {
	case QuietLevelQuiet, QuietLevelNormal, QuietLevelLoud:
		return true
	default:
		return false
	}
}

// rank orders the categories from loud (0) to quiet (2).
func (q QuietLevel) rank() int {
	switch q {
	case QuietLevelQuiet:
		return 2
	case QuietLevelNormal:
		return 1
	default:
		return 0
	}
}

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"latitude" yaml:"latitude"`
	Lon float64 `json:"longitude" yaml:"longitude"`
}

// Amenities holds the crowd-sourced ratings on a 0–5 scale. Zero means
// "no data", not "worst".
type Amenities struct {
	Wifi   float64 `json:"wifi"`
	Socket float64 `json:"socket"`
	Quiet  float64 `json:"quiet"`
	Tasty  float64 `json:"tasty"`
	Cheap  float64 `json:"cheap"`
	Music  float64 `json:"music"`
	Seat   float64 `json:"seat"`
}

// Venue is a café record with its raw ratings and the fields derived from them.
type Venue struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	City           string      `json:"city"`
	District       string      `json:"district"`
	Address        string      `json:"address"`
	Geo            *Coordinate `json:"geo"`
	URL            string      `json:"url,omitempty"`
	Transit        string      `json:"mrt"`
	TransitStation string      `json:"mrt_station"`
	BusStop        string      `json:"bus_stop,omitempty"`
	OpenTime       string      `json:"open_time"`
	Scores         Amenities   `json:"scores"`

	// Derived fields, recomputed by Tables.Derive.
	HasWifi    bool       `json:"has_wifi"`
	HasSocket  bool       `json:"has_socket"`
	QuietLevel QuietLevel `json:"quiet_level"`
	Price      *int       `json:"price"`

	LimitedTime  string `json:"limited_time"`  // "yes", "no", "maybe" or empty
	StandingDesk string `json:"standing_desk"` // "yes", "no" or empty
	Reservable   *bool  `json:"reservable"`    // nil when unknown

	Source    string    `json:"source,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasGeo reports whether the venue carries a coordinate.
func (v Venue) HasGeo() bool {
	return v.Geo != nil
}

// ScoredVenue pairs a venue with its match score and, when the requester
// supplied a coordinate, the distance to it.
type ScoredVenue struct {
	Venue      Venue    `json:"cafe"`
	Score      float64  `json:"score"`
	DistanceKm *float64 `json:"distance_km"`
}

// Query is the set of optional constraints and preferences of one request.
// Zero values impose no constraint.
type Query struct {
	City           string
	District       string
	TransitStation string // already normalized
	TransitQuery   string // raw, normalized before matching
	BusStop        string
	Keyword        string

	HasWifi    bool
	HasSocket  bool
	Reservable bool
	QuietLevel QuietLevel
	MaxPrice   *int

	MinWifi   *float64
	MinSocket *float64
	MinQuiet  *float64
	MinCheap  *float64

	LimitedTime string

	Origin         *Coordinate
	MaxWalkMinutes int
}

// walkCapKm returns the distance cap implied by MaxWalkMinutes and whether
// it is active. The cap needs an origin to mean anything.
func (q Query) walkCapKm() (float64, bool) {
	if q.MaxWalkMinutes <= 0 || q.Origin == nil {
		return 0, false
	}
	return MaxKmForMinutes(q.MaxWalkMinutes), true
}
