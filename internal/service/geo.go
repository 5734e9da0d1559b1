package service

import (
	"context"
	"fmt"

	"github.com/Dan9191/credit-scoring/internal/geo"
	"github.com/Dan9191/credit-scoring/internal/models"
)

// GeoResult is a geo velocity assessment and its risk log entry
type GeoResult struct {
	Assessment models.GeoAssessment `json:"assessment"`
	Signal     models.RiskSignal    `json:"signal"`
}

// AssessGeo compares a card's new location against its previous one using
// the profile's thresholds, then remembers the new sample
func (s *Service) AssessGeo(ctx context.Context, profileID, cardID string, sample models.GeoSample) (*GeoResult, error) {
	thresholds := s.opts.Geo
	if profileID != "" {
		profile, err := s.stores.Profiles.GetProfile(ctx, profileID)
		if err != nil {
			return nil, err
		}
		thresholds = profile.GeoThresholds.Apply(thresholds)
	}

	previous, err := s.stores.GeoSamples.LastSample(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamRead, err)
	}

	assessment := geo.Assess(sample, previous, thresholds)
	if previous == nil || sample.Timestamp.After(previous.Timestamp) {
		if err := s.stores.GeoSamples.SaveSample(ctx, cardID, sample); err != nil {
			return nil, err
		}
	}

	if assessment.Tier == models.GeoTierImpossible || assessment.Tier == models.GeoTierVeryFast {
		s.log.WithField("card_id", cardID).Warnf("Geo velocity %s: %.0f km at %.0f km/h", assessment.Tier, assessment.DistanceKm, assessment.SpeedKmh)
	}
	return &GeoResult{Assessment: assessment, Signal: geo.Signal(assessment)}, nil
}
