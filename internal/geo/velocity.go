// Package geo computes the impossible-travel signal between two observed
// locations of the same card.
package geo

import (
	"math"

	"github.com/Dan9191/credit-scoring/internal/models"
)

const (
	earthRadiusKm   = 6371.0
	minElapsedHours = 0.0001

	// SignalName is the name of the geo velocity entry in a risk signal log
	SignalName = "geo_velocity"
)

// DefaultThresholds returns the stock tiering thresholds
func DefaultThresholds() models.GeoThresholds {
	return models.GeoThresholds{
		ImpossibleSpeedKmh: 900,
		VeryFastSpeedKmh:   500,
		DistanceMinKm:      1,
	}
}

// WithDefaults fills unset thresholds from defaults. Speeds must be positive
// to be set; a zero minimum distance is kept so every movement is tiered.
func WithDefaults(t *models.GeoThresholds, defaults models.GeoThresholds) models.GeoThresholds {
	if t == nil {
		return defaults
	}
	out := *t
	if out.ImpossibleSpeedKmh <= 0 {
		out.ImpossibleSpeedKmh = defaults.ImpossibleSpeedKmh
	}
	if out.VeryFastSpeedKmh <= 0 {
		out.VeryFastSpeedKmh = defaults.VeryFastSpeedKmh
	}
	if out.DistanceMinKm < 0 {
		out.DistanceMinKm = defaults.DistanceMinKm
	}
	return out
}

// Assess compares the current sample against the previous one, if any
func Assess(current models.GeoSample, previous *models.GeoSample, thresholds models.GeoThresholds) models.GeoAssessment {
	if previous == nil {
		return models.GeoAssessment{Tier: models.GeoTierNoHistory}
	}

	distance := Haversine(previous.Latitude, previous.Longitude, current.Latitude, current.Longitude)
	hours := math.Abs(current.Timestamp.Sub(previous.Timestamp).Hours())
	if hours < minElapsedHours {
		hours = minElapsedHours
	}
	speed := distance / hours

	out := models.GeoAssessment{DistanceKm: distance, SpeedKmh: speed}
	switch {
	case distance <= thresholds.DistanceMinKm:
		out.Tier = models.GeoTierLocal
	case speed > thresholds.ImpossibleSpeedKmh:
		out.Tier = models.GeoTierImpossible
	case speed > thresholds.VeryFastSpeedKmh:
		out.Tier = models.GeoTierVeryFast
	default:
		out.Tier = models.GeoTierPlausible
	}
	return out
}

// Impact is the risk contribution of a tier
func Impact(tier string) float64 {
	switch tier {
	case models.GeoTierImpossible:
		return 40
	case models.GeoTierVeryFast:
		return 20
	default:
		return 0
	}
}

// Signal renders an assessment as a risk log entry
func Signal(a models.GeoAssessment) models.RiskSignal {
	return models.RiskSignal{
		Name:   SignalName,
		Result: a.Tier,
		Impact: Impact(a.Tier),
	}
}

// Haversine returns the great-circle distance in kilometers
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push a just outside [0, 1] for near-antipodal points
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
