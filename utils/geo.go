package utils

import (
	"math"
	"time"
)

// Location represents a geographical coordinate
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// HaversineDistance calculates the distance between two points on Earth using the Haversine formula
// Returns distance in kilometers
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371 // Earth's radius in kilometers

	lat1Rad := lat1 * math.Pi / 180
	lon1Rad := lon1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lon2Rad := lon2 * math.Pi / 180

	deltaLat := lat2Rad - lat1Rad
	deltaLon := lon2Rad - lon1Rad

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return R * c
}

// CalculateETA estimates the travel time between two points at an assumed
// average speed (km/h). Used only as a display fallback when the server omits
// its own ETA.
func CalculateETA(from, to Location, averageSpeed float64) time.Duration {
	distance := HaversineDistance(
		from.Latitude, from.Longitude,
		to.Latitude, to.Longitude,
	)

	timeHours := distance / averageSpeed
	timeMinutes := int(timeHours * 60)

	return time.Duration(timeMinutes) * time.Minute
}

// IsLocationValid checks if the provided coordinates are valid
func IsLocationValid(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// IsLocationRecent checks if the location was updated recently (within last 30 minutes)
func IsLocationRecent(lastUpdate *time.Time) bool {
	if lastUpdate == nil {
		return false
	}

	thirtyMinutesAgo := time.Now().Add(-30 * time.Minute)
	return lastUpdate.After(thirtyMinutesAgo)
}
