package domain

import "strings"

// predicate reports whether a venue satisfies one constraint of q. It is only
// consulted when the constraint is active.
type predicate struct {
	name   string
	active func(q Query) bool
	match  func(q Query, v Venue) bool
}

// predicates is the complete set of hard constraints. A venue passes the
// filter when it satisfies every active predicate.
var predicates = []predicate{
	{
		name:   "city",
		active: func(q Query) bool { return q.City != "" },
		match:  func(q Query, v Venue) bool { return v.City == q.City },
	},
	{
		name:   "district",
		active: func(q Query) bool { return q.District != "" },
		match:  func(q Query, v Venue) bool { return v.District == q.District },
	},
	{
		name:   "transit_station",
		active: func(q Query) bool { return q.TransitStation != "" },
		match: func(q Query, v Venue) bool {
			return strings.Contains(v.TransitStation, q.TransitStation)
		},
	},
	{
		name:   "transit_query",
		active: func(q Query) bool { return NormalizeTransitName(q.TransitQuery) != "" },
		match: func(q Query, v Venue) bool {
			return strings.Contains(v.TransitStation, NormalizeTransitName(q.TransitQuery))
		},
	},
	{
		name:   "bus_stop",
		active: func(q Query) bool { return strings.TrimSpace(q.BusStop) != "" },
		match: func(q Query, v Venue) bool {
			haystack := strings.Join([]string{v.BusStop, v.Address, v.Name, v.TransitStation}, " ")
			return strings.Contains(haystack, strings.TrimSpace(q.BusStop))
		},
	},
	{
		name:   "keyword",
		active: func(q Query) bool { return strings.TrimSpace(q.Keyword) != "" },
		match: func(q Query, v Venue) bool {
			needle := strings.ToLower(strings.TrimSpace(q.Keyword))
			return strings.Contains(strings.ToLower(v.Name), needle) ||
				strings.Contains(strings.ToLower(v.Address), needle)
		},
	},
	{
		name:   "has_wifi",
		active: func(q Query) bool { return q.HasWifi },
		match:  func(_ Query, v Venue) bool { return v.HasWifi },
	},
	{
		name:   "has_socket",
		active: func(q Query) bool { return q.HasSocket },
		match:  func(_ Query, v Venue) bool { return v.HasSocket },
	},
	{
		name:   "reservable",
		active: func(q Query) bool { return q.Reservable },
		match:  func(_ Query, v Venue) bool { return v.Reservable != nil && *v.Reservable },
	},
	{
		name:   "quiet_level",
		active: func(q Query) bool { return q.QuietLevel != "" },
		match:  func(q Query, v Venue) bool { return v.QuietLevel == q.QuietLevel },
	},
	{
		name:   "max_price",
		active: func(q Query) bool { return q.MaxPrice != nil },
		match:  func(q Query, v Venue) bool { return v.Price != nil && *v.Price <= *q.MaxPrice },
	},
	{
		name:   "min_wifi",
		active: func(q Query) bool { return q.MinWifi != nil },
		match:  func(q Query, v Venue) bool { return v.Scores.Wifi >= *q.MinWifi },
	},
	{
		name:   "min_socket",
		active: func(q Query) bool { return q.MinSocket != nil },
		match:  func(q Query, v Venue) bool { return v.Scores.Socket >= *q.MinSocket },
	},
	{
		name:   "min_quiet",
		active: func(q Query) bool { return q.MinQuiet != nil },
		match:  func(q Query, v Venue) bool { return v.Scores.Quiet >= *q.MinQuiet },
	},
	{
		name:   "min_cheap",
		active: func(q Query) bool { return q.MinCheap != nil },
		match:  func(q Query, v Venue) bool { return v.Scores.Cheap >= *q.MinCheap },
	},
	{
		name:   "limited_time",
		active: func(q Query) bool { return q.LimitedTime != "" },
		match:  func(q Query, v Venue) bool { return v.LimitedTime == q.LimitedTime },
	},
	{
		name: "max_walk_minutes",
		active: func(q Query) bool {
			_, ok := q.walkCapKm()
			return ok
		},
		match: func(q Query, v Venue) bool {
			if !v.HasGeo() {
				return false
			}
			maxKm, _ := q.walkCapKm()
			return DistanceKm(*v.Geo, *q.Origin) <= maxKm
		},
	},
}

// FilterVenues returns, in their original order, the venues that satisfy
// every constraint set in q.
func FilterVenues(venues []Venue, q Query) []Venue {
	active := activePredicates(q)
	out := make([]Venue, 0, len(venues))
	for _, v := range venues {
		if matchesAll(active, q, v) {
			out = append(out, v)
		}
	}
	return out
}

// Matches reports whether a single venue satisfies q.
func Matches(v Venue, q Query) bool {
	return matchesAll(activePredicates(q), q, v)
}

// ActiveConstraints lists the names of the constraints q sets.
func ActiveConstraints(q Query) []string {
	active := activePredicates(q)
	names := make([]string, len(active))
	for i, p := range active {
		names[i] = p.name
	}
	return names
}

func activePredicates(q Query) []predicate {
	active := make([]predicate, 0, len(predicates))
	for _, p := range predicates {
		if p.active(q) {
			active = append(active, p)
		}
	}
	return active
}

func matchesAll(active []predicate, q Query, v Venue) bool {
	for _, p := range active {
		if !p.match(q, v) {
			return false
		}
	}
	return true
}
