package service

import (
	"context"
	"time"

	"github.com/Dan9191/credit-scoring/internal/geo"
	"github.com/Dan9191/credit-scoring/internal/models"
	"github.com/Dan9191/credit-scoring/internal/scoring"
	"github.com/sirupsen/logrus"
)

// ProfileStore reads cardholder profiles
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
}

// AccountReader lists the credit accounts of a profile
type AccountReader interface {
	ListAccounts(ctx context.Context, profileID string) ([]models.CreditAccount, error)
}

// CreditRecordStore is the shared credit store keyed by hashed national identifier
type CreditRecordStore interface {
	FindByHashedID(ctx context.Context, hashedID string) (*models.CreditRecord, error)
	CreateCreditRecord(ctx context.Context, rec *models.CreditRecord) (string, error)
	UpdateCreditRecord(ctx context.Context, id string, expectedVersion int64, patch models.CreditRecordPatch) error
}

// ScheduleStore holds consent and schedule state
type ScheduleStore interface {
	ListEnabledSchedules(ctx context.Context) ([]models.Schedule, error)
	GetSchedule(ctx context.Context, profileID string) (*models.Schedule, error)
	SaveSchedule(ctx context.Context, s *models.Schedule) error
	StampLastRun(ctx context.Context, scheduleID int64, at time.Time) error
}

// GeoSampleStore remembers the latest geo sample of each card
type GeoSampleStore interface {
	LastSample(ctx context.Context, cardID string) (*models.GeoSample, error)
	SaveSample(ctx context.Context, cardID string, sample models.GeoSample) error
}

// Notifier tells a cardholder their score changed
type Notifier interface {
	SendScoreUpdate(to, name string, previous, current int) error
}

// ReportPublisher shares a credit record with other institutions
type ReportPublisher interface {
	Publish(ctx context.Context, rec *models.CreditRecord) error
}

// Stores groups the collaborators of the service
type Stores struct {
	Profiles   ProfileStore
	Accounts   AccountReader
	Statements scoring.StatementReader
	Records    CreditRecordStore
	Schedules  ScheduleStore
	GeoSamples GeoSampleStore
}

// Options tunes the pipeline
type Options struct {
	HashSecret     []byte
	EncryptionKey  []byte
	StatementLimit int
	AccountWorkers int
	SweepWorkers   int
	UpdateRetries  int
	Geo            models.GeoThresholds
}

// Service handles the credit scoring pipeline
type Service struct {
	stores    Stores
	notifier  Notifier
	publisher ReportPublisher
	log       *logrus.Logger
	opts      Options
	now       func() time.Time
}

// NewService initializes a new service
func NewService(stores Stores, log *logrus.Logger, opts Options) *Service {
	if opts.StatementLimit <= 0 {
		opts.StatementLimit = scoring.DefaultStatementLimit
	}
	if opts.AccountWorkers <= 0 {
		opts.AccountWorkers = 4
	}
	if opts.SweepWorkers <= 0 {
		opts.SweepWorkers = 4
	}
	if opts.UpdateRetries <= 0 {
		opts.UpdateRetries = 3
	}
	if opts.Geo == (models.GeoThresholds{}) {
		opts.Geo = geo.DefaultThresholds()
	} else {
		opts.Geo = geo.WithDefaults(&opts.Geo, geo.DefaultThresholds())
	}
	return &Service{
		stores: stores,
		log:    log,
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithNotifier enables score change notifications
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// WithPublisher enables publishing credit reports after each sync
func (s *Service) WithPublisher(p ReportPublisher) *Service {
	s.publisher = p
	return s
}

// WithClock replaces the clock used to date syncs
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
