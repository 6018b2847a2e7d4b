package domain

import "math"

const (
	earthRadiusKm  = 6371.0
	walkingSpeedKm = 5.0 // km per hour
)

// DistanceKm returns the great-circle (haversine) distance between a and b.
func DistanceKm(a, b Coordinate) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// WalkMinutes converts a distance to whole minutes at walking speed.
func WalkMinutes(km float64) int {
	return int(math.RoundToEven(km / walkingSpeedKm * 60))
}

// MaxKmForMinutes is the distance covered on foot in the given minutes.
func MaxKmForMinutes(minutes int) float64 {
	return float64(minutes) * walkingSpeedKm / 60
}

// RoundKm rounds a distance to 10 m for presentation.
func RoundKm(km float64) float64 {
	return math.Round(km*100) / 100
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
