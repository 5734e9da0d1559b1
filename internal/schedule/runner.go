package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper runs one pass over the due profiles
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) error
}

// Runner triggers a sweep on a cron schedule
type Runner struct {
	cron    *cron.Cron
	sweeper Sweeper
	log     *logrus.Logger
	timeout time.Duration
}

// NewRunner initializes a runner for the given cron expression
func NewRunner(spec string, sweeper Sweeper, log *logrus.Logger, timeout time.Duration) (*Runner, error) {
	r := &Runner{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		sweeper: sweeper,
		log:     log,
		timeout: timeout,
	}
	if _, err := r.cron.AddFunc(spec, r.tick); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return r, nil
}

func (r *Runner) tick() {
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if err := r.sweeper.Sweep(ctx, time.Now().UTC()); err != nil {
		r.log.Errorf("Scheduled sweep failed: %v", err)
	}
}

// Start begins running sweeps in the background
func (r *Runner) Start() {
	r.log.Infof("Starting credit sync scheduler")
	r.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to finish
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
	r.log.Infof("Credit sync scheduler stopped")
}
