package googleplaces

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/cafepick-api/internal/cache"
	"github.com/couchcryptid/cafepick-api/internal/domain"
	"github.com/couchcryptid/cafepick-api/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Lookup is the set of Places operations the service uses.
type Lookup interface {
	SearchCafes(ctx context.Context, city, district string, origin *domain.Coordinate, limit int) ([]domain.Place, error)
	NearestTransit(ctx context.Context, origin domain.Coordinate) (*domain.TransitInfo, error)
	SearchTransitPoints(ctx context.Context, city, district, query string, limit int) ([]domain.TransitPoint, error)
}

// CachedTransit decorates a Lookup with a TTL cache on NearestTransit. Keys
// are coordinates rounded to 4 decimal places (about 11 m). The other
// operations pass straight through.
type CachedTransit struct {
	Lookup
	cache   *cache.TTL[string, domain.TransitInfo]
	metrics *observability.Metrics
}

// NewCachedTransit wraps inner. A nil clock uses real time.
func NewCachedTransit(inner Lookup, ttl time.Duration, maxEntries int, clock clockwork.Clock, metrics *observability.Metrics) *CachedTransit {
	return &CachedTransit{
		Lookup:  inner,
		cache:   cache.New[string, domain.TransitInfo](maxEntries, ttl, clock),
		metrics: metrics,
	}
}

func (c *CachedTransit) NearestTransit(ctx context.Context, origin domain.Coordinate) (*domain.TransitInfo, error) {
	key := fmt.Sprintf("%.4f,%.4f", origin.Lat, origin.Lon)
	if info, ok := c.cache.Get(key); ok {
		c.metrics.Cache.WithLabelValues("transit", "hit").Inc()
		return &info, nil
	}
	c.metrics.Cache.WithLabelValues("transit", "miss").Inc()

	info, err := c.Lookup.NearestTransit(ctx, origin)
	if err != nil {
		return nil, err
	}
	// Only cache found stations so a miss can be retried.
	if info != nil {
		c.cache.Put(key, *info)
	}
	return info, nil
}
