package cafenomad

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/couchcryptid/cafepick-api/internal/domain"
	"github.com/couchcryptid/cafepick-api/internal/observability"
)

// DefaultBaseURL is the public Cafe Nomad v1.2 cafes endpoint.
const DefaultBaseURL = "https://cafenomad.tw/api/v1.2/cafes"

// Cities lists the city codes Cafe Nomad publishes, in its own order.
var Cities = []string{
	"taipei", "keelung", "taoyuan", "hsinchu", "miaoli", "taichung",
	"changhua", "nantou", "yunlin", "chiayi", "tainan", "kaohsiung",
	"pingtung", "yilan", "hualien", "taitung", "penghu", "kinmen",
	"lienchiang",
}

// KnownCity reports whether city is one of Cities.
func KnownCity(city string) bool {
	return slices.Contains(Cities, city)
}

// Client fetches raw café records from the Cafe Nomad API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a Cafe Nomad client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}
}

// FetchCity returns every raw record Cafe Nomad publishes for city.
func (c *Client) FetchCity(ctx context.Context, city string) ([]domain.RawVenue, error) {
	if !KnownCity(city) {
		return nil, fmt.Errorf("fetch %q: %w", city, domain.ErrUnknownCity)
	}

	start := time.Now()
	raws, err := c.fetch(ctx, c.baseURL+"/"+url.PathEscape(city))
	c.metrics.UpstreamDuration.WithLabelValues("cafenomad", "cafes").Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.UpstreamRequests.WithLabelValues("cafenomad", "cafes", "error").Inc()
		return nil, fmt.Errorf("fetch cafenomad %s: %w", city, err)
	case len(raws) == 0:
		c.metrics.UpstreamRequests.WithLabelValues("cafenomad", "cafes", "empty").Inc()
	default:
		c.metrics.UpstreamRequests.WithLabelValues("cafenomad", "cafes", "success").Inc()
	}
	c.logger.Debug("cafenomad fetched", "city", city, "count", len(raws))
	return raws, nil
}

func (c *Client) fetch(ctx context.Context, fullURL string) ([]domain.RawVenue, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cafenomad API error: status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return domain.ParseRawVenues(body)
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
