package http

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/cafepick-api/internal/domain"
)

const (
	defaultTopN  = 3
	maxTopN      = 10
	defaultLimit = 50
	maxLimit     = 200
	maxWalk      = 120
)

// Recommendation sources selectable with ?source=.
const (
	sourceStore  = "store"
	sourcePlaces = "places"
)

// paramError is a request validation failure, reported as 400.
type paramError struct {
	name   string
	reason string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.name, e.reason)
}

func invalid(name, format string, args ...any) error {
	return &paramError{name: name, reason: fmt.Sprintf(format, args...)}
}

// params reads typed query parameters, keeping the first error.
type params struct {
	values url.Values
	err    error
}

func newParams(values url.Values) *params {
	return &params{values: values}
}

func (p *params) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *params) str(name string) string {
	return strings.TrimSpace(p.values.Get(name))
}

func (p *params) boolean(name string) bool {
	raw := p.str(name)
	if raw == "" {
		return false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(invalid(name, "%q is not a boolean", raw))
		return false
	}
	return b
}

// intIn parses an optional integer within [lo, hi]. ok is false when absent.
func (p *params) intIn(name string, lo, hi int) (n int, ok bool) {
	raw := p.str(name)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(invalid(name, "%q is not an integer", raw))
		return 0, false
	}
	if n < lo || n > hi {
		p.fail(invalid(name, "must be between %d and %d", lo, hi))
		return 0, false
	}
	return n, true
}

func (p *params) intOr(name string, fallback, lo, hi int) int {
	if n, ok := p.intIn(name, lo, hi); ok {
		return n
	}
	return fallback
}

// floatIn parses an optional float within [lo, hi].
func (p *params) floatIn(name string, lo, hi float64) *float64 {
	raw := p.str(name)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		p.fail(invalid(name, "%q is not a number", raw))
		return nil
	}
	if f < lo || f > hi {
		p.fail(invalid(name, "must be between %g and %g", lo, hi))
		return nil
	}
	return &f
}

func (p *params) score(name string) *float64 {
	return p.floatIn(name, 0, 5)
}

// parseQuery builds a domain.Query from the filter and preference
// parameters shared by the listing and recommendation endpoints.
func parseQuery(values url.Values) (domain.Query, error) {
	p := newParams(values)

	q := domain.Query{
		City:         p.str("city"),
		District:     p.str("district"),
		TransitQuery: p.str("mrt"),
		BusStop:      p.str("bus_stop"),
		Keyword:      p.str("q"),
		HasWifi:      p.boolean("has_wifi"),
		HasSocket:    p.boolean("has_socket"),
		Reservable:   p.boolean("reservable"),
		MinWifi:      p.score("wifi"),
		MinSocket:    p.score("socket"),
		MinQuiet:     p.score("quiet"),
		MinCheap:     p.score("cheap"),
	}
	if q.District == "" {
		q.District = p.str("area")
	}
	if station := p.str("mrt_station"); station != "" {
		q.TransitStation = domain.NormalizeTransitName(station)
	}

	if level := p.str("quiet_level"); level != "" {
		q.QuietLevel = domain.QuietLevel(strings.ToLower(level))
		if !q.QuietLevel.Valid() {
			p.fail(invalid("quiet_level", "must be one of quiet, normal, loud"))
		}
	}

	switch lt := strings.ToLower(p.str("limited_time")); lt {
	case "", "yes", "no", "maybe":
		q.LimitedTime = lt
	default:
		p.fail(invalid("limited_time", "must be one of yes, no, maybe"))
	}

	if raw := p.str("max_price"); raw != "" {
		price, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			p.fail(invalid("max_price", "%q is not an integer", raw))
		case price < 0:
			p.fail(invalid("max_price", "must not be negative"))
		default:
			q.MaxPrice = &price
		}
	}

	lat := p.floatIn("latitude", -90, 90)
	lon := p.floatIn("longitude", -180, 180)
	switch {
	case lat != nil && lon != nil:
		q.Origin = &domain.Coordinate{Lat: *lat, Lon: *lon}
	case lat != nil || lon != nil:
		p.fail(invalid("latitude/longitude", "both must be given together"))
	}

	if minutes, ok := p.intIn("max_walk_minutes", 1, maxWalk); ok {
		if q.Origin == nil {
			p.fail(invalid("max_walk_minutes", "requires latitude and longitude"))
		}
		q.MaxWalkMinutes = minutes
	}

	return q, p.err
}

// listParams holds the pagination of GET /cafes.
type listParams struct {
	limit  int
	offset int
}

func parseList(values url.Values) (listParams, error) {
	p := newParams(values)
	lp := listParams{
		limit:  p.intOr("limit", defaultLimit, 1, maxLimit),
		offset: p.intOr("offset", 0, 0, math.MaxInt),
	}
	return lp, p.err
}

// recommendParams holds the options of GET /cafes/recommend.
type recommendParams struct {
	topN   int
	source string
}

func parseRecommend(values url.Values) (recommendParams, error) {
	p := newParams(values)
	rp := recommendParams{
		topN:   p.intOr("top_n", defaultTopN, 1, maxTopN),
		source: strings.ToLower(p.str("source")),
	}
	switch rp.source {
	case "":
		rp.source = sourceStore
	case sourceStore, sourcePlaces:
	default:
		p.fail(invalid("source", "must be store or places"))
	}
	return rp, p.err
}
