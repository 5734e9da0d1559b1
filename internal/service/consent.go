package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/credit-scoring/internal/models"
	"github.com/Dan9191/credit-scoring/internal/repository"
)

// SetSchedule records the owner's choice of automatic sync frequency
func (s *Service) SetSchedule(ctx context.Context, profileID string, enabled bool, frequency string) (*models.Schedule, error) {
	f, err := models.ParseFrequency(frequency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrequency, err)
	}
	if _, err := s.stores.Profiles.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}

	sc, err := s.loadSchedule(ctx, profileID)
	if err != nil {
		return nil, err
	}
	sc.Enabled = enabled
	sc.Frequency = f
	if err := s.stores.Schedules.SaveSchedule(ctx, sc); err != nil {
		return nil, err
	}
	s.log.WithField("profile_id", profileID).Infof("Schedule updated: enabled=%t frequency=%s", enabled, f)
	return sc, nil
}

// ConfirmConsent records explicit auto-sync consent and syncs the profile right away
func (s *Service) ConfirmConsent(ctx context.Context, profileID string) (*SyncResult, error) {
	if _, err := s.stores.Profiles.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}
	sc, err := s.loadSchedule(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if sc.ID == 0 {
		sc.Enabled = true
	}
	sc.AutoConsent = true
	if err := s.stores.Schedules.SaveSchedule(ctx, sc); err != nil {
		return nil, err
	}
	s.log.WithField("profile_id", profileID).Infof("Auto-sync consent confirmed")

	now := s.now()
	result, err := s.syncProfile(ctx, profileID, now)
	if err != nil {
		return nil, err
	}
	if err := s.stores.Schedules.StampLastRun(ctx, sc.ID, now); err != nil {
		s.log.WithField("profile_id", profileID).Errorf("Failed to stamp last run: %v", err)
	}
	return result, nil
}

// RevokeConsent withdraws auto-sync consent; the schedule itself is kept
func (s *Service) RevokeConsent(ctx context.Context, profileID string) error {
	sc, err := s.stores.Schedules.GetSchedule(ctx, profileID)
	if err != nil {
		return err
	}
	sc.AutoConsent = false
	if err := s.stores.Schedules.SaveSchedule(ctx, sc); err != nil {
		return err
	}
	s.log.WithField("profile_id", profileID).Infof("Auto-sync consent revoked")
	return nil
}

// loadSchedule returns the profile's schedule or a disabled monthly one
func (s *Service) loadSchedule(ctx context.Context, profileID string) (*models.Schedule, error) {
	sc, err := s.stores.Schedules.GetSchedule(ctx, profileID)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.Schedule{ProfileID: profileID, Frequency: models.FrequencyMonth}, nil
	}
	return sc, err
}
