package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/credit-scoring/internal/schedule"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Sweep runs one scheduled pass; it satisfies schedule.Sweeper
func (s *Service) Sweep(ctx context.Context, now time.Time) error {
	_, err := s.RunSweep(ctx, now)
	return err
}

// RunSweep syncs every profile whose schedule is due at now. Profiles without
// auto-consent are skipped. A failing profile does not stop the others and
// keeps its last run untouched so it stays eligible.
func (s *Service) RunSweep(ctx context.Context, now time.Time) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString()}
	log := s.log.WithField("run_id", summary.RunID)

	schedules, err := s.stores.Schedules.ListEnabledSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	sel := schedule.DueProfiles(schedules, now)

	for _, sc := range sel.Skipped {
		summary.Outcomes = append(summary.Outcomes, Outcome{
			ProfileID: sc.ProfileID,
			Status:    StatusSkipped,
			Reason:    "auto-sync consent not given",
		})
	}

	outcomes := make([]Outcome, len(sel.Run))
	g := new(errgroup.Group)
	g.SetLimit(s.opts.SweepWorkers)
	for i, sc := range sel.Run {
		i, sc := i, sc
		g.Go(func() error {
			outcomes[i] = Outcome{ProfileID: sc.ProfileID, Status: StatusOK}
			if _, err := s.syncProfile(ctx, sc.ProfileID, now); err != nil {
				outcomes[i] = Outcome{ProfileID: sc.ProfileID, Status: StatusError, Reason: err.Error()}
				return nil
			}
			if err := s.stores.Schedules.StampLastRun(ctx, sc.ID, now); err != nil {
				outcomes[i] = Outcome{ProfileID: sc.ProfileID, Status: StatusError, Reason: fmt.Sprintf("synced but failed to stamp last run: %v", err)}
			}
			return nil
		})
	}
	_ = g.Wait()
	summary.Outcomes = append(summary.Outcomes, outcomes...)

	log.WithFields(logrus.Fields{
		"ok":      summary.Count(StatusOK),
		"skipped": summary.Count(StatusSkipped),
		"error":   summary.Count(StatusError),
	}).Infof("Credit sync sweep finished")
	for _, o := range summary.Outcomes {
		if o.Status == StatusError {
			log.WithField("profile_id", o.ProfileID).Warnf("Profile sync failed: %s", o.Reason)
		}
	}
	return summary, nil
}
