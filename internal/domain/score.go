package domain

import (
	"math"
	"sort"
)

// qualityScale is the largest possible sum of the five primary amenity
// scores (wifi, socket, quiet, cheap, seat).
const qualityScale = 25.0

// dimension is one requestable preference. When requested by the query it
// adds weight to the normalization denominator and match(q, v) to the score.
type dimension struct {
	name      string
	weight    float64
	requested func(q Query) bool
	match     func(q Query, v Venue) float64
}

// Ranker scores venues against a query and orders them best first.
type Ranker struct {
	cfg  ScoringConfig
	dims []dimension
}

// NewRanker builds a ranker from the scoring section of t. A nil t uses the
// default tables.
func NewRanker(t *Tables) *Ranker {
	if t == nil {
		t = defaultTables
	}
	cfg := t.Scoring
	return &Ranker{cfg: cfg, dims: dimensions(cfg)}
}

func dimensions(cfg ScoringConfig) []dimension {
	return []dimension{
		{
			name:      "has_wifi",
			weight:    cfg.DimensionWeight,
			requested: func(q Query) bool { return q.HasWifi },
			match:     func(_ Query, v Venue) float64 { return cfg.signalCredit(v.Scores.Wifi) },
		},
		{
			name:      "has_socket",
			weight:    cfg.DimensionWeight,
			requested: func(q Query) bool { return q.HasSocket },
			match:     func(_ Query, v Venue) float64 { return cfg.signalCredit(v.Scores.Socket) },
		},
		{
			name:      "quiet_level",
			weight:    cfg.DimensionWeight,
			requested: func(q Query) bool { return q.QuietLevel != "" },
			match: func(q Query, v Venue) float64 {
				switch diff := q.QuietLevel.rank() - v.QuietLevel.rank(); {
				case diff == 0:
					return cfg.DimensionWeight
				case diff == 1 || diff == -1:
					return cfg.AdjacentQuietCredit
				default:
					return 0
				}
			},
		},
		{
			name:      "max_price",
			weight:    cfg.DimensionWeight,
			requested: func(q Query) bool { return q.MaxPrice != nil },
			match: func(q Query, v Venue) float64 {
				if v.Price == nil {
					return 0
				}
				price, limit := float64(*v.Price), float64(*q.MaxPrice)
				switch {
				case price <= limit:
					return cfg.DimensionWeight
				case price <= limit*cfg.PriceTolerance:
					return cfg.PricePartialCredit
				default:
					return 0
				}
			},
		},
	}
}

// signalCredit grades a raw wifi/socket score: a strong signal earns the full
// weight, a weak one partial credit.
func (c ScoringConfig) signalCredit(score float64) float64 {
	switch {
	case score >= c.StrongSignalMin:
		return c.DimensionWeight
	case score >= c.WeakSignalMin:
		return c.WeakSignalCredit
	default:
		return 0
	}
}

// proximityPoints returns the bonus of the first band the distance falls under.
func (c ScoringConfig) proximityPoints(km float64) float64 {
	for _, b := range c.ProximityBands {
		if km < b.UnderKm {
			return b.Points
		}
	}
	return 0
}

// Score computes the 0–100 match score of v for q. ok is false when v must
// be dropped because it lies beyond the walking cap (or has no coordinate
// while the cap is active).
func (r *Ranker) Score(v Venue, q Query) (score float64, distanceKm *float64, ok bool) {
	var points, maxPossible float64

	for _, d := range r.dims {
		if !d.requested(q) {
			continue
		}
		maxPossible += d.weight
		points += d.match(q, v)
	}

	if v.Scores.Seat > r.cfg.SeatBonusThreshold {
		points += r.cfg.SeatBonus
		maxPossible += r.cfg.SeatBonus
	}

	capKm, capped := q.walkCapKm()
	if capped && !v.HasGeo() {
		return 0, nil, false
	}
	if q.Origin != nil && v.HasGeo() {
		km := DistanceKm(*q.Origin, *v.Geo)
		if capped && km > capKm {
			return 0, nil, false
		}
		maxPossible += r.cfg.ProximityWeight
		points += r.cfg.proximityPoints(km)
		rounded := RoundKm(km)
		distanceKm = &rounded
	}

	if maxPossible > 0 {
		return math.RoundToEven(points / maxPossible * 100), distanceKm, true
	}
	return qualityScore(v.Scores), distanceKm, true
}

// qualityScore is the fallback used when nothing was requested: the five
// primary amenity scores as a percentage of their maximum.
func qualityScore(s Amenities) float64 {
	sum := s.Wifi + s.Socket + s.Quiet + s.Cheap + s.Seat
	return math.RoundToEven(sum / qualityScale * 100)
}

// Rank scores every candidate, drops those past the walking cap, and returns
// at most topN results ordered by score descending. Ties keep their input
// order. topN <= 0 returns every result.
func (r *Ranker) Rank(candidates []Venue, q Query, topN int) []ScoredVenue {
	scored := make([]ScoredVenue, 0, len(candidates))
	for _, v := range candidates {
		score, dist, ok := r.Score(v, q)
		if !ok {
			continue
		}
		scored = append(scored, ScoredVenue{Venue: v, Score: score, DistanceKm: dist})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topN > 0 && len(scored) > topN {
		scored = scored[:topN]
	}
	return scored
}
