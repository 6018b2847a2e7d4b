package domain

import (
	"math"
	"sort"
)

// Place is a café found by a live places search. It carries a rating but no
// amenity scores, so it is never scored against a Query.
type Place struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	City            string       `json:"city"`
	District        string       `json:"district"`
	Address         string       `json:"address"`
	Geo             *Coordinate  `json:"geo"`
	Rating          *float64     `json:"rating"`
	UserRatingCount int          `json:"user_ratings_total"`
	PriceLevel      string       `json:"price_level,omitempty"`
	URL             string       `json:"url,omitempty"`
	NearestTransit  *TransitInfo `json:"nearest_transit,omitempty"`
}

// TransitInfo describes the transit station closest to a point.
type TransitInfo struct {
	Name        string  `json:"name"`
	Station     string  `json:"station"`
	DistanceKm  float64 `json:"distance_km"`
	WalkMinutes int     `json:"walk_minutes"`
}

// NewTransitInfo measures the walk from origin to a station.
func NewTransitInfo(name string, origin, station Coordinate) TransitInfo {
	km := DistanceKm(origin, station)
	return TransitInfo{
		Name:        name,
		Station:     NormalizeTransitName(name),
		DistanceKm:  RoundKm(km),
		WalkMinutes: WalkMinutes(km),
	}
}

// TransitPoint is a station or bus stop a user can pick as their origin.
type TransitPoint struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Geo  Coordinate `json:"geo"`
}

// PlaceRecommendation is a place in a recommendation list. Score is always
// nil: places have no amenity data to score.
type PlaceRecommendation struct {
	Place      Place    `json:"place"`
	Score      *float64 `json:"score"`
	DistanceKm *float64 `json:"distance_km"`
}

// RankPlaces orders live places for a query. With an origin, places past the
// walking cap (or without a coordinate while the cap is active) are dropped
// and the rest are ordered nearest first; without one they are ordered by
// rating, unrated last. topN <= 0 returns every result.
func RankPlaces(places []Place, q Query, topN int) []PlaceRecommendation {
	capKm, capped := q.walkCapKm()
	out := make([]PlaceRecommendation, 0, len(places))
	for _, p := range places {
		rec := PlaceRecommendation{Place: p}
		if q.Origin != nil && p.Geo != nil {
			km := DistanceKm(*q.Origin, *p.Geo)
			if capped && km > capKm {
				continue
			}
			rounded := RoundKm(km)
			rec.DistanceKm = &rounded
		} else if capped {
			continue
		}
		out = append(out, rec)
	}

	if q.Origin != nil {
		sort.SliceStable(out, func(i, j int) bool {
			return distanceOrInf(out[i].DistanceKm) < distanceOrInf(out[j].DistanceKm)
		})
	} else {
		sort.SliceStable(out, func(i, j int) bool {
			return ratingOrZero(out[i].Place.Rating) > ratingOrZero(out[j].Place.Rating)
		})
	}

	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

func distanceOrInf(km *float64) float64 {
	if km == nil {
		return math.Inf(1)
	}
	return *km
}

func ratingOrZero(r *float64) float64 {
	if r == nil {
		return 0
	}
	return *r
}
