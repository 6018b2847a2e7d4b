// Package domain models Taiwanese café records and the pure logic that turns
// them into filtered, ranked recommendations.
//
// # Data Source
//
// Venue records come from the Cafe Nomad open data API
// (https://cafenomad.tw/api/v1.2/cafes/{city}), from a bundled seed file, or
// from a Postgres store populated by either. Live Google Places results are
// modeled separately as [Place] because they carry no amenity ratings.
//
// # Cafe Nomad Data Conventions
//
// Ratings:
//
//	wifi, socket, quiet, tasty, cheap, music and seat are crowd-sourced
//	averages on a 0–5 scale, published as numbers or numeric strings.
//	0 (or a blank value) means "no data", not "worst".
//	Values outside [0, 5] are clamped at parse time.
//
// Coordinates:
//
//	latitude/longitude as strings. Venues that were never geocoded carry
//	"0"/"0" or blanks; both become a nil [Coordinate].
//
// Transit text:
//
//	The "mrt" column is free text: "捷運忠孝復興站2號出口步行3分鐘",
//	"中山(赤峰街)", "Exit 3 of Daan". [NormalizeTransitName] reduces it to the
//	bare station name used for filtering and grouping.
//
// Addresses:
//
//	Mostly Chinese ("台北市大安區忠孝東路三段217號"), occasionally romanized
//	("No. 5, Da'an District, Taipei"). [ExtractDistrict] handles both; the
//	romanized fallback transliterates with go-unidecode and consults the
//	alias table in tables.yaml.
//
// limited_time / standing_desk:
//
//	"yes", "no" or "maybe"; anything else is treated as unknown ("").
//
// # Derived Fields
//
// [Tables.Derive] is the only place derived fields are computed, once at
// ingestion:
//
//	has_wifi     wifi > 0
//	has_socket   socket > 0
//	quiet_level  quiet >= 4.0 quiet | >= 2.5 normal | otherwise loud
//	price        0 when cheap is 0, else 300 - 220*cheap/5 (5 -> 80)
//	district     extracted from the address
//	mrt_station  normalized transit text
//
// # Scoring
//
// [Ranker] scores each venue as earned/possible points over the preferences
// the query actually requested, plus a seat bonus and a proximity bonus, and
// scales the result to 0–100. When nothing contributes, the average of the
// five primary ratings is used instead. The weights and partial credits live
// in the scoring section of tables.yaml.
package domain
