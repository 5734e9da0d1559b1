package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/credit-scoring/internal/models"
	"github.com/Dan9191/credit-scoring/internal/repository"
	"github.com/Dan9191/credit-scoring/internal/scoring"
	"github.com/Dan9191/credit-scoring/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SyncResult describes a completed profile sync
type SyncResult struct {
	ProfileID     string                        `json:"profile_id"`
	RecordID      string                        `json:"record_id"`
	Created       bool                          `json:"created"`
	PreviousScore int                           `json:"previous_score,omitempty"`
	FinalScore    int                           `json:"final_score"`
	PaymentLevels []models.AccountPaymentRating `json:"payment_levels"`
}

// SyncProfile recomputes a profile's ratings and score and writes them to
// its credit record. The stored record is either fully updated or untouched.
func (s *Service) SyncProfile(ctx context.Context, profileID string) (*SyncResult, error) {
	return s.syncProfile(ctx, profileID, s.now())
}

func (s *Service) syncProfile(ctx context.Context, profileID string, now time.Time) (*SyncResult, error) {
	log := s.log.WithField("profile_id", profileID)

	profile, err := s.stores.Profiles.GetProfile(ctx, profileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstreamRead, err)
	}

	hashedID, err := s.hashedIdentity(profile)
	if err != nil {
		log.Warnf("Credit sync refused: %v", err)
		return nil, fmt.Errorf("profile %s: %w", profileID, err)
	}
	log = log.WithField("record", shortHash(hashedID))

	accounts, err := s.stores.Accounts.ListAccounts(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamRead, err)
	}

	ratings, err := s.rateAccounts(ctx, accounts, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamRead, err)
	}

	active := 0
	for _, a := range accounts {
		if a.Active() {
			active++
		}
	}
	metrics := scoring.Aggregate(ratings, active, scoring.AverageUtilization(accounts))
	metrics.ComputedAt = now

	inst := scoring.Institution{ID: profile.InstitutionID, Name: profile.InstitutionName}
	fresh := scoring.HistoryEntries(ratings, inst, now)

	rec, previous, err := s.writeRecord(ctx, hashedID, fresh, ratings, metrics, inst, now)
	if err != nil {
		log.Errorf("Failed to write credit record: %v", err)
		return nil, err
	}

	result := &SyncResult{
		ProfileID:     profileID,
		RecordID:      rec.ID,
		Created:       previous == nil,
		FinalScore:    metrics.FinalScore,
		PaymentLevels: ratings,
	}
	if previous != nil {
		result.PreviousScore = previous.FinalScore
	}
	log.Infof("Credit record synced: score %d across %d accounts", metrics.FinalScore, len(ratings))

	s.afterWrite(ctx, log, profile, rec, previous)
	return result, nil
}

// rateAccounts rates every account concurrently, keeping account order
func (s *Service) rateAccounts(ctx context.Context, accounts []models.CreditAccount, now time.Time) ([]models.AccountPaymentRating, error) {
	ratings := make([]models.AccountPaymentRating, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.AccountWorkers)
	for i, account := range accounts {
		i, account := i, account
		g.Go(func() error {
			r, err := scoring.RateAccount(gctx, s.stores.Statements, account, s.opts.StatementLimit, now)
			if err != nil {
				return err
			}
			ratings[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ratings, nil
}

// writeRecord merges fresh history into the stored record and writes every
// computed field in one conditional update, re-reading on version conflicts
func (s *Service) writeRecord(ctx context.Context, hashedID string, fresh []models.CreditHistoryEntry, ratings []models.AccountPaymentRating, metrics models.CreditMetrics, inst scoring.Institution, now time.Time) (*models.CreditRecord, *models.CreditRecord, error) {
	for attempt := 0; attempt <= s.opts.UpdateRetries; attempt++ {
		existing, err := s.stores.Records.FindByHashedID(ctx, hashedID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("failed to read credit record: %w", err)
		}

		if existing == nil {
			rec := &models.CreditRecord{
				HashedID:      hashedID,
				History:       scoring.MergeHistory(nil, fresh, inst, now),
				PaymentLevels: ratings,
				Metrics:       metrics,
				FinalScore:    metrics.FinalScore,
			}
			if _, err := s.stores.Records.CreateCreditRecord(ctx, rec); err != nil {
				if errors.Is(err, repository.ErrAlreadyExists) {
					continue
				}
				return nil, nil, fmt.Errorf("failed to create credit record: %w", err)
			}
			return rec, nil, nil
		}

		patch := models.CreditRecordPatch{
			History:       scoring.MergeHistory(existing.History, fresh, inst, now),
			PaymentLevels: ratings,
			Metrics:       metrics,
			FinalScore:    metrics.FinalScore,
		}
		err = s.stores.Records.UpdateCreditRecord(ctx, existing.ID, existing.Version, patch)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to update credit record: %w", err)
		}
		updated := *existing
		updated.History = patch.History
		updated.PaymentLevels = patch.PaymentLevels
		updated.Metrics = patch.Metrics
		updated.FinalScore = patch.FinalScore
		updated.Version = existing.Version + 1
		return &updated, existing, nil
	}
	return nil, nil, ErrConcurrentUpdate
}

// afterWrite runs best-effort side effects once the record is stored
func (s *Service) afterWrite(ctx context.Context, log *logrus.Entry, profile *models.Profile, rec, previous *models.CreditRecord) {
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, rec); err != nil {
			log.Errorf("Failed to publish credit report: %v", err)
		}
	}
	if s.notifier == nil || profile.Email == "" {
		return
	}
	if previous != nil && previous.FinalScore == rec.FinalScore {
		return
	}
	prev := 0
	if previous != nil {
		prev = previous.FinalScore
	}
	if err := s.notifier.SendScoreUpdate(profile.Email, profile.FullName, prev, rec.FinalScore); err != nil {
		log.Errorf("Failed to send score notification: %v", err)
	}
}

// hashedIdentity decrypts the stored national identifier and derives its lookup hash
func (s *Service) hashedIdentity(p *models.Profile) (string, error) {
	stored := strings.TrimSpace(p.NationalID)
	if stored == "" {
		return "", ErrMissingIdentity
	}
	if utils.IsLegacyIdentifier(stored) {
		return "", ErrLegacyIdentifier
	}
	plain, err := utils.Decrypt(stored, s.opts.EncryptionKey)
	if err != nil {
		return "", fmt.Errorf("%w (%v)", ErrLegacyIdentifier, err)
	}
	if utils.NormalizeNationalID(plain) == "" {
		return "", ErrMissingIdentity
	}
	return utils.HashNationalID(plain, s.opts.HashSecret)
}

// GetCreditRecord retrieves a credit record by hashed identifier
func (s *Service) GetCreditRecord(ctx context.Context, hashedID string) (*models.CreditRecord, error) {
	return s.stores.Records.FindByHashedID(ctx, hashedID)
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
