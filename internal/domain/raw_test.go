package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRawVenue(t *testing.T) {
	t.Run("cafe nomad record", func(t *testing.T) {
		data := []byte(`{"id":"0a1b","name":" 好咖啡 ","city":"taipei","wifi":4.5,"seat":"4","quiet":"3.5","tasty":5,"cheap":"2.5","music":4,"socket":"yes?","url":"https://example.com","address":"台北市大安區忠孝東路三段217號","latitude":"25.0418","longitude":"121.5438","limited_time":"No","socket_extra":1,"standing_desk":"maybe","mrt":"捷運忠孝復興站","open_time":"10:00-22:00"}`)

		raw, err := ParseRawVenue(data)
		require.NoError(t, err)
		v := raw.Venue("")

		assert.Equal(t, "0a1b", v.ID)
		assert.Equal(t, "好咖啡", v.Name)
		assert.Equal(t, "taipei", v.City)
		assert.Equal(t, Amenities{Wifi: 4.5, Socket: 0, Quiet: 3.5, Tasty: 5, Cheap: 2.5, Music: 4, Seat: 4}, v.Scores)
		require.NotNil(t, v.Geo)
		assert.Equal(t, Coordinate{Lat: 25.0418, Lon: 121.5438}, *v.Geo)
		assert.Equal(t, "no", v.LimitedTime)
		assert.Equal(t, "maybe", v.StandingDesk)
		assert.Nil(t, v.Reservable)
		assert.Equal(t, SourceCafeNomad, v.Source)
		assert.Empty(t, v.District, "raw mapping does not derive")
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := ParseRawVenue([]byte(`{"name":"x"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing id")
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseRawVenue([]byte(`{invalid`))
		assert.Error(t, err)
	})

	t.Run("rating of the wrong type", func(t *testing.T) {
		_, err := ParseRawVenue([]byte(`{"id":"x","wifi":[1]}`))
		assert.Error(t, err)
	})
}

func TestRawVenue_Venue(t *testing.T) {
	t.Run("city argument fills missing city", func(t *testing.T) {
		v := RawVenue{ID: "x"}.Venue("tainan")
		assert.Equal(t, "tainan", v.City)
	})

	t.Run("scores are clamped", func(t *testing.T) {
		v := RawVenue{ID: "x", Wifi: 7, Socket: -1}.Venue("")
		assert.Equal(t, 5.0, v.Scores.Wifi)
		assert.Equal(t, 0.0, v.Scores.Socket)
	})

	t.Run("zero coordinate is missing", func(t *testing.T) {
		v := RawVenue{ID: "x"}.Venue("")
		assert.Nil(t, v.Geo)
		assert.False(t, v.HasGeo())
	})

	t.Run("reservation tri-state", func(t *testing.T) {
		yes := RawVenue{ID: "x", HasReservation: "Yes"}.Venue("")
		require.NotNil(t, yes.Reservable)
		assert.True(t, *yes.Reservable)

		no := RawVenue{ID: "x", HasReservation: "false"}.Venue("")
		require.NotNil(t, no.Reservable)
		assert.False(t, *no.Reservable)
	})

	t.Run("source is kept", func(t *testing.T) {
		v := RawVenue{ID: "x", Source: SourceSeed}.Venue("")
		assert.Equal(t, SourceSeed, v.Source)
	})
}

func TestParseRawVenues(t *testing.T) {
	raws, err := ParseRawVenues([]byte(`[{"id":"a","wifi":null},{"id":"b","wifi":""}]`))
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Zero(t, float64(raws[0].Wifi))
	assert.Zero(t, float64(raws[1].Wifi))

	_, err = ParseRawVenues([]byte(`{"id":"a"}`))
	assert.Error(t, err)
}
