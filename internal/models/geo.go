package models

import "time"

// Geo velocity tiers
const (
	GeoTierNoHistory  = "no-history"
	GeoTierLocal      = "local, not significant"
	GeoTierPlausible  = "plausible"
	GeoTierVeryFast   = "very fast"
	GeoTierImpossible = "impossible"
)

// GeoSample is a location observed at a point in time
type GeoSample struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// GeoThresholds configures geo velocity tiering
type GeoThresholds struct {
	ImpossibleSpeedKmh float64 `json:"impossible_speed_kmh" yaml:"impossible_speed_kmh"`
	VeryFastSpeedKmh   float64 `json:"very_fast_speed_kmh" yaml:"very_fast_speed_kmh"`
	DistanceMinKm      float64 `json:"distance_min_km" yaml:"distance_min_km"`
}

// GeoOverrides holds thresholds set explicitly for one profile or config
// file. A nil field keeps the inherited value; zero is a real value.
type GeoOverrides struct {
	ImpossibleSpeedKmh *float64 `json:"impossible_speed_kmh,omitempty" yaml:"impossible_speed_kmh"`
	VeryFastSpeedKmh   *float64 `json:"very_fast_speed_kmh,omitempty" yaml:"very_fast_speed_kmh"`
	DistanceMinKm      *float64 `json:"distance_min_km,omitempty" yaml:"distance_min_km"`
}

// Apply returns base with every set override replacing its field
func (o *GeoOverrides) Apply(base GeoThresholds) GeoThresholds {
	if o == nil {
		return base
	}
	if o.ImpossibleSpeedKmh != nil {
		base.ImpossibleSpeedKmh = *o.ImpossibleSpeedKmh
	}
	if o.VeryFastSpeedKmh != nil {
		base.VeryFastSpeedKmh = *o.VeryFastSpeedKmh
	}
	if o.DistanceMinKm != nil {
		base.DistanceMinKm = *o.DistanceMinKm
	}
	return base
}

// GeoAssessment is the outcome of comparing two geo samples.
// DistanceKm and SpeedKmh are zero for the no-history tier.
type GeoAssessment struct {
	DistanceKm float64 `json:"distance_km"`
	SpeedKmh   float64 `json:"speed_kmh"`
	Tier       string  `json:"tier"`
}

// RiskSignal is one named entry of a transaction risk log
type RiskSignal struct {
	Name   string  `json:"name"`
	Result string  `json:"result"`
	Impact float64 `json:"impact"`
}
