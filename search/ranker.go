package search

import (
	"math"

	"github.com/poiesic/typeahead/core"
)

// Scoring constants. Distances are meters.
const (
	// populationNorm divides raw population into the place score.
	populationNorm = 500_000

	// baseDistanceMeters is the radius inside which a school scores a
	// full 1.0 on the distance signal.
	baseDistanceMeters = 10_000

	// maxDistanceMeters is where the school distance signal reaches 0.
	maxDistanceMeters = 1_000_000

	// sizeNormCeiling is the size metric that saturates the size signal.
	sizeNormCeiling = 50_000
)

// School signal weights.
const (
	distanceWeight = 0.4
	sizeWeight     = 0.3
	typeWeight     = 0.3
)

var schoolTypeScores = map[core.SchoolType]float64{
	core.SchoolTypeCollege: 1.0,
	core.SchoolTypeHigh:    0.8,
	core.SchoolTypeGrade:   0.6,
	core.SchoolTypeOther:   0.4,
}

const earthRadiusMeters = 6_371_000

// haversineMeters returns the great-circle distance between two points.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	if a > 1 {
		a = 1
	}
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}

// placeScore blends population and proximity. Without a requester location
// the score is the population signal alone.
//
//	population_score = population / 500,000
//	distance_score   = 1,000,000 / (distance + 1)
//	combined         = (population_score + distance_score) / 2
func placeScore(population uint64, distance float64, hasDistance bool) float64 {
	populationScore := float64(population) / populationNorm
	if !hasDistance {
		return populationScore
	}
	distanceScore := 1_000_000 / (distance + 1)
	return (populationScore + distanceScore) / 2
}

// schoolDistanceScore is 1.0 inside baseDistanceMeters, 0 beyond
// maxDistanceMeters, and interpolates linearly in log-space in between.
// An unavailable or negative distance scores the full 1.0.
func schoolDistanceScore(distance float64) float64 {
	if distance < 0 {
		return 1
	}
	if distance < baseDistanceMeters {
		return 1
	}
	score := 1 - (math.Log(distance)-math.Log(baseDistanceMeters))/
		(math.Log(maxDistanceMeters)-math.Log(baseDistanceMeters))
	return clamp01(score)
}

// schoolSizeScore normalizes the size metric logarithmically against the
// 50,000 ceiling. A missing or negative metric scores 0.
func schoolSizeScore(sizeMetric int64) float64 {
	if sizeMetric < 0 {
		return 0
	}
	score := math.Log10(float64(sizeMetric)+1) / math.Log10(sizeNormCeiling)
	return clamp01(score)
}

// schoolTypeScore is a fixed priority lookup by institution type.
func schoolTypeScore(t core.SchoolType) float64 {
	if score, ok := schoolTypeScores[t]; ok {
		return score
	}
	return schoolTypeScores[core.SchoolTypeOther]
}

// schoolScore combines the three signals. When the requester location is
// unknown the distance term is omitted entirely, not zeroed, so schools
// still order by size and type.
func schoolScore(school *core.School, distance float64, hasDistance bool) float64 {
	sizeScore := schoolSizeScore(school.SizeMetric)
	typeScore := schoolTypeScore(school.Type)
	if !hasDistance {
		return sizeWeight*sizeScore + typeWeight*typeScore
	}
	return distanceWeight*schoolDistanceScore(distance) +
		sizeWeight*sizeScore + typeWeight*typeScore
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
