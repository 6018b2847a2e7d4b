package domain

import "math"

// QuietLevelOf maps a quiet score to its category using the default tables.
func QuietLevelOf(score float64) QuietLevel {
	return defaultTables.QuietLevel(score)
}

// EstimatePrice maps a cheap score to a price using the default tables.
func EstimatePrice(cheap float64) int {
	return defaultTables.EstimatePrice(cheap)
}

// DeriveVenue applies the default tables' Derive.
func DeriveVenue(v Venue) Venue {
	return defaultTables.Derive(v)
}

// QuietLevel buckets a 0–5 quiet score: >= quiet_min is quiet,
// >= normal_min is normal, anything lower (including "no data") is loud.
func (t *Tables) QuietLevel(score float64) QuietLevel {
	switch {
	case score >= t.QuietLevels.QuietMin:
		return QuietLevelQuiet
	case score >= t.QuietLevels.NormalMin:
		return QuietLevelNormal
	default:
		return QuietLevelLoud
	}
}

// EstimatePrice maps the cheap score linearly and inversely onto the price
// range: 5 -> min, approaching 0 -> max. A score of 0 (no data) yields 0.
func (t *Tables) EstimatePrice(cheap float64) int {
	if cheap <= 0 {
		return 0
	}
	cheap = math.Min(cheap, 5)
	span := t.Price.Max - t.Price.Min
	return int(math.RoundToEven(t.Price.Max - span*cheap/5))
}

// Derive recomputes every derived field of v from its raw fields. It is the
// single place derived values are produced; callers never set them directly.
func (t *Tables) Derive(v Venue) Venue {
	v.District = t.ExtractDistrict(v.Address)
	v.TransitStation = NormalizeTransitName(v.Transit)
	v.HasWifi = v.Scores.Wifi > 0
	v.HasSocket = v.Scores.Socket > 0
	v.QuietLevel = t.QuietLevel(v.Scores.Quiet)
	price := t.EstimatePrice(v.Scores.Cheap)
	v.Price = &price
	v.UpdatedAt = clock.Now()
	return v
}

// Rederive is Derive for a venue that is already stored. The stored district
// is kept unless the address changed.
func (t *Tables) Rederive(stored, incoming Venue) Venue {
	out := t.Derive(incoming)
	if stored.Address == incoming.Address && stored.District != "" {
		out.District = stored.District
	}
	return out
}
