package googleplaces

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/cafepick-api/internal/domain"
	"github.com/couchcryptid/cafepick-api/internal/observability"
)

const (
	defaultBaseURL = "https://places.googleapis.com/v1"

	// Search radii in metres.
	originRadius  = 2500.0
	cityRadius    = 8000.0
	transitRadius = 12000.0

	maxResults = 20

	placeFieldMask   = "places.id,places.displayName,places.formattedAddress,places.location,places.rating,places.userRatingCount,places.priceLevel,places.websiteUri"
	transitFieldMask = "places.id,places.displayName,places.location"
)

// Client talks to the Google Places API (New).
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	tables     *domain.Tables
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a Places client. tables supplies city names and centres.
func NewClient(apiKey string, timeout time.Duration, tables *domain.Tables, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		tables:     tables,
		logger:     logger,
		metrics:    metrics,
	}
}

// SearchCafes finds cafés in a city, optionally narrowed to a district. With
// an origin the search is biased to 2.5 km around it, otherwise to 8 km around
// the city centre. An unknown city is domain.ErrUnknownCity.
func (c *Client) SearchCafes(ctx context.Context, city, district string, origin *domain.Coordinate, limit int) ([]domain.Place, error) {
	info, ok := c.tables.City(city)
	if !ok {
		return nil, fmt.Errorf("places in %q: %w", city, domain.ErrUnknownCity)
	}

	center, radius := info.Center, cityRadius
	if origin != nil {
		center, radius = *origin, originRadius
	}

	query := info.Name + " 咖啡"
	if district != "" {
		query = district + " " + query
	}

	req := searchRequest{
		TextQuery:      query,
		LocationBias:   &area{Circle: circle{Center: latLng(center), Radius: radius}},
		IncludedType:   "cafe",
		MaxResultCount: clampLimit(limit),
		LanguageCode:   "zh-TW",
		RegionCode:     "TW",
	}
	var resp searchResponse
	if err := c.post(ctx, "searchText", req, placeFieldMask, &resp); err != nil {
		return nil, err
	}

	places := make([]domain.Place, 0, len(resp.Places))
	for _, p := range resp.Places {
		d := district
		if d == "" {
			d = c.tables.ExtractDistrict(p.FormattedAddress)
		}
		places = append(places, domain.Place{
			ID:              p.ID,
			Name:            p.DisplayName.Text,
			City:            city,
			District:        d,
			Address:         p.FormattedAddress,
			Geo:             p.Location.coordinate(),
			Rating:          p.Rating,
			UserRatingCount: p.UserRatingCount,
			PriceLevel:      p.PriceLevel,
			URL:             p.WebsiteURI,
		})
	}
	return places, nil
}

// NearestTransit finds the rail or transit station closest to origin. It
// tries a distance-ranked nearby search first and falls back to a text search
// for "捷運站". A nil result means nothing was found.
func (c *Client) NearestTransit(ctx context.Context, origin domain.Coordinate) (*domain.TransitInfo, error) {
	nearby := nearbyRequest{
		IncludedTypes:       []string{"subway_station", "light_rail_station", "train_station", "transit_station"},
		LocationRestriction: area{Circle: circle{Center: latLng(origin), Radius: cityRadius}},
		MaxResultCount:      1,
		RankPreference:      "DISTANCE",
		LanguageCode:        "zh-TW",
		RegionCode:          "TW",
	}
	var resp searchResponse
	if err := c.post(ctx, "searchNearby", nearby, transitFieldMask, &resp); err != nil {
		return nil, err
	}
	if info := firstTransit(resp, origin); info != nil {
		return info, nil
	}

	text := searchRequest{
		TextQuery:      "捷運站",
		LocationBias:   &area{Circle: circle{Center: latLng(origin), Radius: cityRadius}},
		MaxResultCount: 1,
		LanguageCode:   "zh-TW",
		RegionCode:     "TW",
	}
	resp = searchResponse{}
	if err := c.post(ctx, "searchText", text, transitFieldMask, &resp); err != nil {
		return nil, err
	}
	return firstTransit(resp, origin), nil
}

// SearchTransitPoints lists stations and bus stops in a city. A free-text
// query is searched as is; otherwise transit stations and bus stops are
// searched (within district when given). Results are deduplicated by name,
// first occurrence wins.
func (c *Client) SearchTransitPoints(ctx context.Context, city, district, query string, limit int) ([]domain.TransitPoint, error) {
	info, ok := c.tables.City(city)
	if !ok {
		return nil, fmt.Errorf("places in %q: %w", city, domain.ErrUnknownCity)
	}

	base := searchRequest{
		LocationBias:   &area{Circle: circle{Center: latLng(info.Center), Radius: transitRadius}},
		MaxResultCount: clampLimit(limit),
		LanguageCode:   "zh-TW",
		RegionCode:     "TW",
	}

	var requests []searchRequest
	if query = strings.TrimSpace(query); query != "" {
		req := base
		req.TextQuery = query
		requests = append(requests, req)
	} else {
		text := "交通站"
		if district != "" {
			text = district + " " + text
		}
		for _, placeType := range []string{"transit_station", "bus_stop"} {
			req := base
			req.TextQuery = text
			req.IncludedType = placeType
			requests = append(requests, req)
		}
	}

	var points []domain.TransitPoint
	seen := make(map[string]bool)
	for _, req := range requests {
		var resp searchResponse
		if err := c.post(ctx, "searchText", req, transitFieldMask, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Places {
			name := strings.TrimSpace(p.DisplayName.Text)
			geo := p.Location.coordinate()
			if name == "" || geo == nil || seen[name] {
				continue
			}
			seen[name] = true
			points = append(points, domain.TransitPoint{ID: p.ID, Name: name, Geo: *geo})
		}
	}
	return points, nil
}

func (c *Client) post(ctx context.Context, operation string, payload any, fieldMask string, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:"+operation, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	start := time.Now()
	err = c.do(req, out)
	c.metrics.UpstreamDuration.WithLabelValues("places", operation).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues("places", operation, "error").Inc()
		c.logger.Warn("places request failed", "operation", operation, "error", err)
		return fmt.Errorf("places %s: %w", operation, err)
	}
	c.metrics.UpstreamRequests.WithLabelValues("places", operation, "success").Inc()
	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("places API error: status %d: %s", resp.StatusCode, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func firstTransit(resp searchResponse, origin domain.Coordinate) *domain.TransitInfo {
	if len(resp.Places) == 0 {
		return nil
	}
	p := resp.Places[0]
	geo := p.Location.coordinate()
	if geo == nil {
		return nil
	}
	info := domain.NewTransitInfo(p.DisplayName.Text, origin, *geo)
	return &info
}

func clampLimit(limit int) int {
	switch {
	case limit < 1:
		return 1
	case limit > maxResults:
		return maxResults
	default:
		return limit
	}
}

func latLng(c domain.Coordinate) location {
	return location{Latitude: c.Lat, Longitude: c.Lon}
}

// Places API request and response types.

type searchRequest struct {
	TextQuery      string `json:"textQuery"`
	LocationBias   *area  `json:"locationBias,omitempty"`
	IncludedType   string `json:"includedType,omitempty"`
	MaxResultCount int    `json:"maxResultCount"`
	LanguageCode   string `json:"languageCode"`
	RegionCode     string `json:"regionCode"`
}

type nearbyRequest struct {
	IncludedTypes       []string `json:"includedTypes"`
	LocationRestriction area     `json:"locationRestriction"`
	MaxResultCount      int      `json:"maxResultCount"`
	RankPreference      string   `json:"rankPreference"`
	LanguageCode        string   `json:"languageCode"`
	RegionCode          string   `json:"regionCode"`
}

type area struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center location `json:"center"`
	Radius float64  `json:"radius"`
}

type location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// coordinate returns nil for a missing (zero) location.
func (l location) coordinate() *domain.Coordinate {
	if l.Latitude == 0 && l.Longitude == 0 {
		return nil
	}
	return &domain.Coordinate{Lat: l.Latitude, Lon: l.Longitude}
}

type searchResponse struct {
	Places []place `json:"places"`
}

type place struct {
	ID               string      `json:"id"`
	DisplayName      displayName `json:"displayName"`
	FormattedAddress string      `json:"formattedAddress"`
	Location         location    `json:"location"`
	Rating           *float64    `json:"rating"`
	UserRatingCount  int         `json:"userRatingCount"`
	PriceLevel       string      `json:"priceLevel"`
	WebsiteURI       string      `json:"websiteUri"`
}

type displayName struct {
	Text string `json:"text"`
}
