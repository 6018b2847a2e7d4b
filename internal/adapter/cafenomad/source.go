package cafenomad

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/couchcryptid/cafepick-api/internal/cache"
	"github.com/couchcryptid/cafepick-api/internal/domain"
	"github.com/couchcryptid/cafepick-api/internal/observability"
	"github.com/jonboulle/clockwork"
)

// DefaultCity is served when a request names no city.
const DefaultCity = "taipei"

// Fetcher fetches raw records for one city.
type Fetcher interface {
	FetchCity(ctx context.Context, city string) ([]domain.RawVenue, error)
}

// Source serves derived venues straight from Cafe Nomad, caching each city's
// list for a fixed TTL. When refetching an expired city fails, the last list
// is served instead.
type Source struct {
	fetcher Fetcher
	tables  *domain.Tables
	cache   *cache.TTL[string, []domain.Venue]
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewSource creates a live venue source. A nil clock uses real time.
func NewSource(fetcher Fetcher, tables *domain.Tables, ttl time.Duration, maxCities int, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Source {
	return &Source{
		fetcher: fetcher,
		tables:  tables,
		cache:   cache.New[string, []domain.Venue](maxCities, ttl, clock),
		logger:  logger,
		metrics: metrics,
	}
}

// Venues returns the derived venues of city, or of DefaultCity when city is
// empty. On refresh a venue keeps its cached district while its address is
// unchanged.
func (s *Source) Venues(ctx context.Context, city string) ([]domain.Venue, error) {
	if city == "" {
		city = DefaultCity
	}
	if !KnownCity(city) {
		return nil, fmt.Errorf("venues %q: %w", city, domain.ErrUnknownCity)
	}

	if venues, ok := s.cache.Get(city); ok {
		s.metrics.Cache.WithLabelValues("cafenomad", "hit").Inc()
		return venues, nil
	}
	s.metrics.Cache.WithLabelValues("cafenomad", "miss").Inc()

	raws, err := s.fetcher.FetchCity(ctx, city)
	if err != nil {
		if stale, ok := s.cache.GetStale(city); ok {
			s.metrics.Cache.WithLabelValues("cafenomad", "stale").Inc()
			s.logger.Warn("cafenomad refetch failed, serving stale list", "city", city, "error", err)
			return stale, nil
		}
		return nil, err
	}

	previous := make(map[string]domain.Venue)
	if stale, ok := s.cache.GetStale(city); ok {
		for _, v := range stale {
			previous[v.ID] = v
		}
	}

	venues := make([]domain.Venue, 0, len(raws))
	for _, raw := range raws {
		if raw.ID == "" {
			continue
		}
		incoming := raw.Venue(city)
		if prev, ok := previous[raw.ID]; ok {
			venues = append(venues, s.tables.Rederive(prev, incoming))
			continue
		}
		venues = append(venues, s.tables.Derive(incoming))
	}
	s.cache.Put(city, venues)
	return venues, nil
}

// Venue looks id up in every city list currently cached. Cafe Nomad has no
// single-record endpoint, so a venue in a city nobody has listed yet is not
// found; callers with a city hint should use Venues instead.
func (s *Source) Venue(_ context.Context, id string) (domain.Venue, error) {
	for _, city := range s.cache.Keys() {
		venues, _ := s.cache.GetStale(city)
		if i := slices.IndexFunc(venues, func(v domain.Venue) bool { return v.ID == id }); i >= 0 {
			return venues[i], nil
		}
	}
	return domain.Venue{}, domain.ErrNotFound
}

// Cities returns the codes Cafe Nomad publishes.
func (s *Source) Cities(context.Context) ([]string, error) {
	return slices.Clone(Cities), nil
}

// CheckReadiness always succeeds; the upstream is only contacted on demand.
func (s *Source) CheckReadiness(context.Context) error {
	return nil
}
