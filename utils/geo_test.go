package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	// NYC to Philadelphia, roughly 130 km.
	distance := HaversineDistance(40.7128, -74.0060, 39.9526, -75.1652)
	assert.InDelta(t, 130, distance, 2)

	assert.Zero(t, HaversineDistance(40.7128, -74.0060, 40.7128, -74.0060))
}

func TestCalculateETA(t *testing.T) {
	from := Location{Latitude: 40.7128, Longitude: -74.0060}
	to := Location{Latitude: 39.9526, Longitude: -75.1652}

	// ~130 km at 60 km/h is a bit over two hours.
	eta := CalculateETA(from, to, 60)
	assert.InDelta(t, 130, eta.Minutes(), 3)

	assert.Zero(t, CalculateETA(from, from, 30))
}

func TestIsLocationValid(t *testing.T) {
	assert.True(t, IsLocationValid(40.7128, -74.0060))
	assert.True(t, IsLocationValid(-90, 180))
	assert.False(t, IsLocationValid(91, 0))
	assert.False(t, IsLocationValid(0, -181))
}

func TestIsLocationRecent(t *testing.T) {
	assert.False(t, IsLocationRecent(nil))

	fresh := time.Now().Add(-5 * time.Minute)
	assert.True(t, IsLocationRecent(&fresh))

	stale := time.Now().Add(-45 * time.Minute)
	assert.False(t, IsLocationRecent(&stale))
}
