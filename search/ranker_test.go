package search

import (
	"math"
	"testing"

	"github.com/poiesic/typeahead/core"
	"github.com/stretchr/testify/assert"
)

func TestPlaceScoreWithoutLocation(t *testing.T) {
	tests := []struct {
		name       string
		population uint64
		expected   float64
	}{
		{"zero population", 0, 0},
		{"half norm", 250_000, 0.5},
		{"at norm", 500_000, 1.0},
		{"million", 1_000_000, 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, placeScore(tt.population, 0, false), 1e-9)
		})
	}
}

func TestPlaceScoreWithLocation(t *testing.T) {
	// (population/500k + 1,000,000/(d+1)) / 2
	score := placeScore(1_000_000, 999_999, true)
	assert.InDelta(t, (2.0+1.0)/2, score, 1e-6)

	// Closer always scores higher for equal population.
	near := placeScore(500_000, 1_000, true)
	far := placeScore(500_000, 100_000, true)
	assert.Greater(t, near, far)
}

func TestPlaceScorePopulationMonotonic(t *testing.T) {
	prev := -1.0
	for _, pop := range []uint64{0, 10_000, 100_000, 500_000, 2_000_000} {
		score := placeScore(pop, 50_000, true)
		assert.Greater(t, score, prev)
		prev = score
	}
}

func TestSchoolDistanceScore(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		expected float64
	}{
		{"negative means unknown", -1, 1.0},
		{"zero distance", 0, 1.0},
		{"inside base radius", 5_000, 1.0},
		{"at base radius", 10_000, 1.0},
		{"log midpoint", 100_000, 0.5},
		{"at max distance", 1_000_000, 0.0},
		{"beyond max distance", 5_000_000, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, schoolDistanceScore(tt.distance), 1e-9)
		})
	}
}

func TestSchoolSizeScore(t *testing.T) {
	assert.Equal(t, 0.0, schoolSizeScore(-1))
	assert.Equal(t, 0.0, schoolSizeScore(0))
	assert.InDelta(t, 1.0, schoolSizeScore(49_999), 1e-4)
	assert.Equal(t, 1.0, schoolSizeScore(500_000))

	// Monotonic in the metric.
	assert.Greater(t, schoolSizeScore(10_000), schoolSizeScore(100))
}

func TestSchoolTypeScore(t *testing.T) {
	assert.Equal(t, 1.0, schoolTypeScore(core.SchoolTypeCollege))
	assert.Equal(t, 0.8, schoolTypeScore(core.SchoolTypeHigh))
	assert.Equal(t, 0.6, schoolTypeScore(core.SchoolTypeGrade))
	assert.Equal(t, 0.4, schoolTypeScore(core.SchoolTypeOther))
	assert.Equal(t, 0.4, schoolTypeScore(core.SchoolType(99)))
}

func TestSchoolScoreBounds(t *testing.T) {
	school := &core.School{SizeMetric: 30_000, Type: core.SchoolTypeCollege}

	for _, distance := range []float64{0, 10_000, 100_000, 2_000_000} {
		score := schoolScore(school, distance, true)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}

	// Without a requester location the distance term is omitted.
	score := schoolScore(school, 0, false)
	assert.LessOrEqual(t, score, sizeWeight+typeWeight)
	assert.Greater(t, score, 0.0)
}

func TestHaversineMeters(t *testing.T) {
	assert.Equal(t, 0.0, haversineMeters(37.7749, -122.4194, 37.7749, -122.4194))

	// San Francisco to Los Angeles, roughly 559 km.
	d := haversineMeters(37.7749, -122.4194, 34.0522, -118.2437)
	assert.InDelta(t, 559_000, d, 5_000)

	// Symmetric.
	assert.InDelta(t, d, haversineMeters(34.0522, -118.2437, 37.7749, -122.4194), 1e-6)
	assert.False(t, math.IsNaN(d))
}
