package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Source labels for where a venue record came from.
const (
	SourceCafeNomad    = "cafenomad"
	SourceGooglePlaces = "google_places"
	SourceSeed         = "seed"
)

// RawVenue is one record as published by the Cafe Nomad API (and by the
// bundled seed file, which adds reservation and bus stop columns).
type RawVenue struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	City           string    `json:"city"`
	Address        string    `json:"address"`
	Latitude       flexFloat `json:"latitude"`
	Longitude      flexFloat `json:"longitude"`
	URL            string    `json:"url"`
	MRT            string    `json:"mrt"`
	BusStop        string    `json:"bus_stop,omitempty"`
	OpenTime       string    `json:"open_time"`
	Wifi           flexFloat `json:"wifi"`
	Socket         flexFloat `json:"socket"`
	Quiet          flexFloat `json:"quiet"`
	Tasty          flexFloat `json:"tasty"`
	Cheap          flexFloat `json:"cheap"`
	Music          flexFloat `json:"music"`
	Seat           flexFloat `json:"seat"`
	LimitedTime    string    `json:"limited_time"`
	StandingDesk   string    `json:"standing_desk"`
	HasReservation string    `json:"has_reservation,omitempty"`
	Source         string    `json:"source,omitempty"`
}

// flexFloat accepts a JSON number, a numeric string, an empty string or null.
// Anything unparseable decodes to zero, which Cafe Nomad uses for "no data".
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat(value)
		return nil
	}

	var value *float64
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("rating must be a string or number: %w", err)
	}
	if value == nil {
		*f = 0
		return nil
	}
	*f = flexFloat(*value)
	return nil
}

// ParseRawVenue decodes a single raw record.
func ParseRawVenue(data []byte) (RawVenue, error) {
	var raw RawVenue
	if err := json.Unmarshal(data, &raw); err != nil {
		return RawVenue{}, fmt.Errorf("parse raw venue: %w", err)
	}
	if strings.TrimSpace(raw.ID) == "" {
		return RawVenue{}, fmt.Errorf("parse raw venue: missing id")
	}
	return raw, nil
}

// ParseRawVenues decodes a JSON array of raw records, as served by
// GET /api/v1.2/cafes/{city}.
func ParseRawVenues(data []byte) ([]RawVenue, error) {
	var raws []RawVenue
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("parse raw venues: %w", err)
	}
	return raws, nil
}

// Venue maps the raw record onto a Venue without derived fields. The city
// argument is used when the record does not name its own city.
func (r RawVenue) Venue(city string) Venue {
	if r.City != "" {
		city = r.City
	}
	source := r.Source
	if source == "" {
		source = SourceCafeNomad
	}

	return Venue{
		ID:       strings.TrimSpace(r.ID),
		Name:     strings.TrimSpace(r.Name),
		City:     city,
		Address:  strings.TrimSpace(r.Address),
		Geo:      coordinateOrNil(float64(r.Latitude), float64(r.Longitude)),
		URL:      r.URL,
		Transit:  strings.TrimSpace(r.MRT),
		BusStop:  strings.TrimSpace(r.BusStop),
		OpenTime: r.OpenTime,
		Scores: Amenities{
			Wifi:   clampScore(float64(r.Wifi)),
			Socket: clampScore(float64(r.Socket)),
			Quiet:  clampScore(float64(r.Quiet)),
			Tasty:  clampScore(float64(r.Tasty)),
			Cheap:  clampScore(float64(r.Cheap)),
			Music:  clampScore(float64(r.Music)),
			Seat:   clampScore(float64(r.Seat)),
		},
		LimitedTime:  normalizeYesNo(r.LimitedTime),
		StandingDesk: normalizeYesNo(r.StandingDesk),
		Reservable:   parseTriState(r.HasReservation),
		Source:       source,
	}
}

// coordinateOrNil treats (0, 0) as missing; Cafe Nomad leaves both blank for
// venues it could not geocode.
func coordinateOrNil(lat, lon float64) *Coordinate {
	if lat == 0 && lon == 0 {
		return nil
	}
	return &Coordinate{Lat: lat, Lon: lon}
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 5:
		return 5
	default:
		return v
	}
}

func normalizeYesNo(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "yes", "no", "maybe":
		return s
	default:
		return ""
	}
}

func parseTriState(s string) *bool {
	var v bool
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true":
		v = true
	case "no", "false":
		v = false
	default:
		return nil
	}
	return &v
}
