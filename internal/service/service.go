// Package service answers café queries by combining a venue store, the
// filter and ranking engine, and an optional live places lookup.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/cafepick-api/internal/domain"
	"github.com/couchcryptid/cafepick-api/internal/observability"
)

// ErrPlacesDisabled is returned by the live places operations when no places
// lookup is configured.
var ErrPlacesDisabled = errors.New("places lookup is disabled")

const (
	// DefaultPlacesCity is searched when a places request names no city.
	DefaultPlacesCity = "taipei"

	placesSearchLimit  = 20
	transitSearchLimit = 20
)

// VenueStore is a read-only source of derived venues.
type VenueStore interface {
	Venues(ctx context.Context, city string) ([]domain.Venue, error)
	Venue(ctx context.Context, id string) (domain.Venue, error)
	Cities(ctx context.Context) ([]string, error)
}

// PlacesLookup searches a live places provider.
type PlacesLookup interface {
	SearchCafes(ctx context.Context, city, district string, origin *domain.Coordinate, limit int) ([]domain.Place, error)
	NearestTransit(ctx context.Context, origin domain.Coordinate) (*domain.TransitInfo, error)
	SearchTransitPoints(ctx context.Context, city, district, query string, limit int) ([]domain.TransitPoint, error)
}

type readinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Service implements the café queries.
type Service struct {
	store   VenueStore
	places  PlacesLookup
	tables  *domain.Tables
	ranker  *domain.Ranker
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Service. places may be nil, which disables the live places
// operations. A nil tables uses the defaults.
func New(store VenueStore, places PlacesLookup, tables *domain.Tables, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if tables == nil {
		tables = domain.DefaultTables()
	}
	return &Service{
		store:   store,
		places:  places,
		tables:  tables,
		ranker:  domain.NewRanker(tables),
		logger:  logger,
		metrics: metrics,
	}
}

// PlacesEnabled reports whether live places operations are available.
func (s *Service) PlacesEnabled() bool {
	return s.places != nil
}

// ListRequest is a filtered, paginated listing.
type ListRequest struct {
	Query  domain.Query
	Limit  int
	Offset int
}

// ListResult is one page of matching cafés and the total match count.
type ListResult struct {
	Total int            `json:"total"`
	Cafes []domain.Venue `json:"cafes"`
}

// ListCafes returns the page of venues matching req.Query, in store order.
func (s *Service) ListCafes(ctx context.Context, req ListRequest) (ListResult, error) {
	venues, err := s.store.Venues(ctx, req.Query.City)
	if err != nil {
		return ListResult{}, fmt.Errorf("list cafes: %w", err)
	}
	matched := domain.FilterVenues(venues, req.Query)
	return ListResult{Total: len(matched), Cafes: page(matched, req.Offset, req.Limit)}, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// Recommend filters the stored venues by q and returns the topN best matches.
func (s *Service) Recommend(ctx context.Context, q domain.Query, topN int) ([]domain.ScoredVenue, error) {
	venues, err := s.store.Venues(ctx, q.City)
	if err != nil {
		return nil, fmt.Errorf("recommend cafes: %w", err)
	}
	candidates := domain.FilterVenues(venues, q)
	s.metrics.CandidatesFiltered.Observe(float64(len(candidates)))

	ranked := s.ranker.Rank(candidates, q, topN)
	s.metrics.RecommendationResults.WithLabelValues("store").Observe(float64(len(ranked)))
	s.logger.Debug("recommendation ranked",
		"city", q.City,
		"constraints", domain.ActiveConstraints(q),
		"candidates", len(candidates),
		"results", len(ranked),
	)
	return ranked, nil
}

// RecommendPlaces searches live places near q's origin (or in q's city),
// orders them by distance and attaches each result's nearest transit station.
// Results carry no score. A failed transit lookup fails the request.
func (s *Service) RecommendPlaces(ctx context.Context, q domain.Query, topN int) ([]domain.PlaceRecommendation, error) {
	if s.places == nil {
		return nil, ErrPlacesDisabled
	}
	city := q.City
	if city == "" {
		city = DefaultPlacesCity
	}

	found, err := s.places.SearchCafes(ctx, city, q.District, q.Origin, placesSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search places: %w", err)
	}
	recs := domain.RankPlaces(found, q, topN)

	for i := range recs {
		geo := recs[i].Place.Geo
		if geo == nil {
			continue
		}
		transit, err := s.places.NearestTransit(ctx, *geo)
		if err != nil {
			return nil, fmt.Errorf("nearest transit for %s: %w", recs[i].Place.ID, err)
		}
		recs[i].Place.NearestTransit = transit
	}

	s.metrics.RecommendationResults.WithLabelValues("places").Observe(float64(len(recs)))
	return recs, nil
}

// Cafe returns one venue. A city hint lets live stores find venues in cities
// they have not listed yet.
func (s *Service) Cafe(ctx context.Context, id, cityHint string) (domain.Venue, error) {
	if cityHint != "" {
		venues, err := s.store.Venues(ctx, cityHint)
		if err != nil {
			return domain.Venue{}, fmt.Errorf("cafe %s: %w", id, err)
		}
		for _, v := range venues {
			if v.ID == id {
				return v, nil
			}
		}
	}
	v, err := s.store.Venue(ctx, id)
	if err != nil {
		return domain.Venue{}, fmt.Errorf("cafe %s: %w", id, err)
	}
	return v, nil
}

// Areas summarizes cities, districts and stations. An empty city is passed
// to the store unchanged, so its meaning is the store's.
func (s *Service) Areas(ctx context.Context, city string) ([]domain.Area, error) {
	venues, err := s.store.Venues(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("areas: %w", err)
	}
	return s.tables.BuildAreas(venues), nil
}

// Cities lists the city codes the store can serve.
func (s *Service) Cities(ctx context.Context) ([]string, error) {
	cities, err := s.store.Cities(ctx)
	if err != nil {
		return nil, fmt.Errorf("cities: %w", err)
	}
	return cities, nil
}

// TransitPoints searches stations and bus stops to use as an origin.
func (s *Service) TransitPoints(ctx context.Context, city, district, query string) ([]domain.TransitPoint, error) {
	if s.places == nil {
		return nil, ErrPlacesDisabled
	}
	if city == "" {
		city = DefaultPlacesCity
	}
	points, err := s.places.SearchTransitPoints(ctx, city, district, query, transitSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search transit points: %w", err)
	}
	return points, nil
}

// CheckReadiness delegates to the store when it can report readiness.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if rc, ok := s.store.(readinessChecker); ok {
		return rc.CheckReadiness(ctx)
	}
	return nil
}
