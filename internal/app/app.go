// Package app wires configuration, stores and integrations into a ready
// credit scoring service shared by the API and the operator CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Dan9191/credit-scoring/internal/config"
	"github.com/Dan9191/credit-scoring/internal/integrations/bureau"
	"github.com/Dan9191/credit-scoring/internal/repository"
	"github.com/Dan9191/credit-scoring/internal/service"
	"github.com/Dan9191/credit-scoring/internal/utils/email"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// geoSampleTTL bounds how long a card's last location is remembered
const geoSampleTTL = 30 * 24 * time.Hour

type App struct {
	Cfg     *config.Config
	Log     *logrus.Logger
	DB      *sql.DB
	Service *service.Service

	closers []func() error
}

// NewLogger builds the JSON logger used by every binary
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}

// New connects to PostgreSQL and Redis and builds the service
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: log}

	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)
	if err := db.PingContext(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := repository.NewRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		a.Close()
		return nil, err
	}

	stores := service.Stores{
		Profiles:   repo,
		Accounts:   repo,
		Statements: repo,
		Records:    repo,
		Schedules:  repo,
	}
	if cfg.RedisAddr != "" {
		samples, err := repository.NewGeoSampleStore(ctx, cfg.RedisAddr, geoSampleTTL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, samples.Close)
		stores.GeoSamples = samples
	} else {
		log.Warn("REDIS_ADDR not set, geo samples are kept in memory")
		stores.GeoSamples = repository.NewMemoryStore()
	}

	svc := service.NewService(stores, log, service.Options{
		HashSecret:     []byte(cfg.HMACSecret),
		EncryptionKey:  cfg.EncryptionKey,
		StatementLimit: cfg.Scoring.StatementLimit,
		AccountWorkers: cfg.Sweep.AccountWorkers,
		SweepWorkers:   cfg.Sweep.Workers,
		UpdateRetries:  cfg.Scoring.UpdateRetries,
		Geo:            cfg.Geo,
	})
	if cfg.NotificationsEnabled() {
		svc.WithNotifier(email.NewSender(cfg, log))
	}
	if cfg.BureauURL != "" {
		svc.WithPublisher(bureau.NewClient(cfg.BureauURL, log))
	}
	a.Service = svc
	return a, nil
}

// Close releases connections in reverse order of opening
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warnf("Failed to close resource: %v", err)
		}
	}
	a.closers = nil
}
