package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOrigin = Coordinate{Lat: 25.0, Lon: 121.5}

// north returns the point km kilometres due north of c.
func north(c Coordinate, km float64) *Coordinate {
	return &Coordinate{Lat: c.Lat + km/(earthRadiusKm*math.Pi/180), Lon: c.Lon}
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func fixtureVenues() []Venue {
	raw := []Venue{
		{
			ID: "a", Name: "Rufous Coffee", City: "taipei", Address: "台北市大安區復興南路二段339號",
			Transit: "捷運科技大樓站", Geo: north(testOrigin, 0.3),
			Scores:      Amenities{Wifi: 4, Socket: 4.5, Quiet: 4.2, Cheap: 2, Seat: 3.5},
			LimitedTime: "no", Reservable: boolPtr(true),
		},
		{
			ID: "b", Name: "Simple Kaffa", City: "taipei", Address: "台北市中正區忠孝東路二段27號",
			Transit: "華山(忠孝新生站1號出口)", Geo: north(testOrigin, 3),
			Scores:      Amenities{Wifi: 2, Socket: 0, Quiet: 2.8, Cheap: 1, Seat: 2},
			LimitedTime: "yes", Reservable: boolPtr(false),
		},
		{
			ID: "c", Name: "Fika Fika Cafe", City: "taipei", Address: "台北市中山區伊通街33號",
			Transit: "松江南京 / 中山國中", BusStop: "伊通公園",
			Scores:      Amenities{Wifi: 3, Socket: 3, Quiet: 1, Cheap: 4, Seat: 4},
			LimitedTime: "maybe",
		},
		{
			ID: "d", Name: "Kafe Kaohsiung", City: "kaohsiung", Address: "高雄市苓雅區中正一路",
			Transit: "文化中心站", Geo: north(testOrigin, 1),
			Scores: Amenities{Wifi: 0, Socket: 5, Quiet: 5, Cheap: 5, Seat: 1},
		},
	}
	out := make([]Venue, len(raw))
	for i, v := range raw {
		out[i] = DeriveVenue(v)
	}
	return out
}

func ids(venues []Venue) []string {
	out := make([]string, len(venues))
	for i, v := range venues {
		out[i] = v.ID
	}
	return out
}

func TestFilterVenues(t *testing.T) {
	venues := fixtureVenues()

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"no constraints", Query{}, []string{"a", "b", "c", "d"}},
		{"city", Query{City: "taipei"}, []string{"a", "b", "c"}},
		{"district", Query{District: "中山區"}, []string{"c"}},
		{"normalized station substring", Query{TransitStation: "科技"}, []string{"a"}},
		{"raw transit query is normalized", Query{TransitQuery: "捷運文化中心站3號出口"}, []string{"d"}},
		{"transit query normalizing to empty is ignored", Query{TransitQuery: "2號出口"}, []string{"a", "b", "c", "d"}},
		{"has wifi", Query{HasWifi: true}, []string{"a", "b", "c"}},
		{"has socket", Query{HasSocket: true}, []string{"a", "c", "d"}},
		{"reservable excludes unknown", Query{Reservable: true}, []string{"a"}},
		{"quiet level", Query{QuietLevel: QuietLevelQuiet}, []string{"a", "d"}},
		{"max price", Query{MaxPrice: intPtr(150)}, []string{"c", "d"}},
		{"min wifi", Query{MinWifi: floatPtr(3)}, []string{"a", "c"}},
		{"min socket", Query{MinSocket: floatPtr(4.5)}, []string{"a", "d"}},
		{"min quiet", Query{MinQuiet: floatPtr(4.5)}, []string{"d"}},
		{"min cheap", Query{MinCheap: floatPtr(4)}, []string{"c", "d"}},
		{"limited time", Query{LimitedTime: "yes"}, []string{"b"}},
		{"bus stop", Query{BusStop: "伊通"}, []string{"c"}},
		{"keyword is case-insensitive", Query{Keyword: "kafe"}, []string{"d"}},
		{"conjunction", Query{City: "taipei", HasWifi: true, HasSocket: true}, []string{"a", "c"}},
		{"walk cap without origin is inactive", Query{MaxWalkMinutes: 5}, []string{"a", "b", "c", "d"}},
		{
			"walk cap excludes far and missing coordinates",
			Query{Origin: &testOrigin, MaxWalkMinutes: 15},
			[]string{"a", "d"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FilterVenues(venues, tt.query)))
		})
	}
}

func TestFilterVenues_MaxWalkMinutes(t *testing.T) {
	far := Venue{ID: "far", Geo: north(testOrigin, 2)}
	near := Venue{ID: "near", Geo: north(testOrigin, 0.5)}

	got := FilterVenues([]Venue{far, near}, Query{Origin: &testOrigin, MaxWalkMinutes: 10})

	require.Len(t, got, 1)
	assert.Equal(t, "near", got[0].ID)
}

func TestFilterVenues_PriceZeroPassesMaxPrice(t *testing.T) {
	v := DeriveVenue(Venue{ID: "nodata"})
	assert.True(t, Matches(v, Query{MaxPrice: intPtr(100)}))

	v.Price = nil
	assert.False(t, Matches(v, Query{MaxPrice: intPtr(100)}))
}

func TestFilterVenues_NoFalsePositives(t *testing.T) {
	venues := fixtureVenues()
	queries := []Query{
		{City: "taipei", HasWifi: true},
		{QuietLevel: QuietLevelNormal, MaxPrice: intPtr(300)},
		{HasSocket: true, MinCheap: floatPtr(3), Origin: &testOrigin, MaxWalkMinutes: 20},
		{Keyword: "cafe", LimitedTime: "maybe"},
	}
	for _, q := range queries {
		for _, v := range FilterVenues(venues, q) {
			for _, p := range activePredicates(q) {
				assert.True(t, p.match(q, v), "venue %s fails %s", v.ID, p.name)
			}
		}
	}
}

func TestFilterVenues_RemovingConstraintNeverShrinks(t *testing.T) {
	venues := fixtureVenues()
	full := Query{
		City:           "taipei",
		HasWifi:        true,
		HasSocket:      true,
		QuietLevel:     QuietLevelQuiet,
		MaxPrice:       intPtr(250),
		Origin:         &testOrigin,
		MaxWalkMinutes: 30,
	}
	relaxations := map[string]func(q *Query){
		"city":       func(q *Query) { q.City = "" },
		"has_wifi":   func(q *Query) { q.HasWifi = false },
		"has_socket": func(q *Query) { q.HasSocket = false },
		"quiet":      func(q *Query) { q.QuietLevel = "" },
		"max_price":  func(q *Query) { q.MaxPrice = nil },
		"walk":       func(q *Query) { q.MaxWalkMinutes = 0 },
	}
	base := FilterVenues(venues, full)
	for name, relax := range relaxations {
		t.Run(name, func(t *testing.T) {
			q := full
			relax(&q)
			relaxed := ids(FilterVenues(venues, q))
			for _, id := range ids(base) {
				assert.Contains(t, relaxed, id)
			}
		})
	}
}

func TestActiveConstraints(t *testing.T) {
	assert.Empty(t, ActiveConstraints(Query{}))
	assert.Equal(t,
		[]string{"city", "has_wifi", "max_walk_minutes"},
		ActiveConstraints(Query{City: "taipei", HasWifi: true, Origin: &testOrigin, MaxWalkMinutes: 5}),
	)
}
