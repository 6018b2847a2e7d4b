package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	taipei101     = Coordinate{Lat: 25.0340, Lon: 121.5645}
	taipeiMain    = Coordinate{Lat: 25.0478, Lon: 121.5170}
	zhongxiaoFuxi = Coordinate{Lat: 25.0418, Lon: 121.5438}
)

func TestDistanceKm(t *testing.T) {
	t.Run("zero on equal points", func(t *testing.T) {
		assert.Zero(t, DistanceKm(taipei101, taipei101))
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.InDelta(t, DistanceKm(taipei101, taipeiMain), DistanceKm(taipeiMain, taipei101), 1e-9)
	})

	t.Run("known distance", func(t *testing.T) {
		// Taipei 101 to Taipei Main Station is roughly 5 km.
		assert.InDelta(t, 5.0, DistanceKm(taipei101, taipeiMain), 0.3)
	})

	t.Run("triangle inequality", func(t *testing.T) {
		ab := DistanceKm(taipei101, zhongxiaoFuxi)
		bc := DistanceKm(zhongxiaoFuxi, taipeiMain)
		ac := DistanceKm(taipei101, taipeiMain)
		assert.LessOrEqual(t, ac, ab+bc+1e-9)
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		d := DistanceKm(Coordinate{Lat: 0, Lon: 0}, Coordinate{Lat: 1, Lon: 0})
		assert.InDelta(t, 111.19, d, 0.01)
	})
}

func TestWalkMinutes(t *testing.T) {
	tests := []struct {
		km   float64
		want int
	}{
		{0, 0},
		{0.5, 6},
		{1, 12},
		{2, 24},
		{0.4, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WalkMinutes(tt.km), "km=%v", tt.km)
	}
}

func TestMaxKmForMinutes(t *testing.T) {
	assert.InDelta(t, 0.8333, MaxKmForMinutes(10), 1e-4)
	assert.InDelta(t, 5.0, MaxKmForMinutes(60), 1e-9)
	assert.Zero(t, MaxKmForMinutes(0))
}

func TestRoundKm(t *testing.T) {
	assert.Equal(t, 1.23, RoundKm(1.2345))
	assert.Equal(t, 0.3, RoundKm(0.3))
}
