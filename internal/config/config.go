package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Dan9191/credit-scoring/internal/models"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Port          string
	DBConn        string
	LogLevel      string
	JWTSecret     string
	HMACSecret    string
	EncryptionKey []byte
	RedisAddr     string
	BureauURL     string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	Sweep   SweepConfig
	Scoring ScoringConfig
	Geo     models.GeoThresholds
}

// SweepConfig controls the scheduled sync sweep
type SweepConfig struct {
	Schedule       string        `yaml:"schedule"`
	Workers        int           `yaml:"workers"`
	AccountWorkers int           `yaml:"account_workers"`
	Timeout        time.Duration `yaml:"timeout"`
}

// ScoringConfig controls the rating pipeline
type ScoringConfig struct {
	StatementLimit int `yaml:"statement_limit"`
	UpdateRetries  int `yaml:"update_retries"`
}

// fileConfig is the optional YAML overlay named by CONFIG_FILE
type fileConfig struct {
	Sweep   *SweepConfig          `yaml:"sweep"`
	Scoring *ScoringConfig        `yaml:"scoring"`
	Geo     *models.GeoOverrides  `yaml:"geo"`
}

// NewConfig loads configuration from environment variables, layered over
// defaults and the optional YAML file named by CONFIG_FILE
func NewConfig() (*Config, error) {
	cfg := &Config{
		Sweep: SweepConfig{
			Schedule:       "@every 1m",
			Workers:        4,
			AccountWorkers: 4,
			Timeout:        5 * time.Minute,
		},
		Scoring: ScoringConfig{
			StatementLimit: 12,
			UpdateRetries:  3,
		},
		Geo: models.GeoThresholds{
			ImpossibleSpeedKmh: 900,
			VeryFastSpeedKmh:   500,
			DistanceMinKm:      1,
		},
	}

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("PORT", "8080")
	cfg.DBConn = getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=credit sslmode=disable")
	cfg.LogLevel = getEnv("LOG_LEVEL", "INFO")
	cfg.JWTSecret = getEnv("JWT_SECRET", "secret")
	cfg.HMACSecret = getEnv("HMAC_SECRET", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.BureauURL = getEnv("BUREAU_URL", "")
	cfg.SMTPHost = getEnv("SMTP_HOST", "")
	cfg.SMTPPort = getEnv("SMTP_PORT", "587")
	cfg.SMTPUsername = getEnv("SMTP_USERNAME", "")
	cfg.SMTPPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SenderEmail = getEnv("SENDER_EMAIL", "")

	cfg.Sweep.Schedule = getEnv("SWEEP_SCHEDULE", cfg.Sweep.Schedule)
	var err error
	if cfg.Sweep.Workers, err = getEnvInt("SWEEP_WORKERS", cfg.Sweep.Workers); err != nil {
		return nil, err
	}
	if cfg.Sweep.AccountWorkers, err = getEnvInt("ACCOUNT_WORKERS", cfg.Sweep.AccountWorkers); err != nil {
		return nil, err
	}
	if cfg.Sweep.Timeout, err = getEnvDuration("SWEEP_TIMEOUT", cfg.Sweep.Timeout); err != nil {
		return nil, err
	}
	if cfg.Scoring.StatementLimit, err = getEnvInt("STATEMENT_LIMIT", cfg.Scoring.StatementLimit); err != nil {
		return nil, err
	}
	if cfg.Scoring.UpdateRetries, err = getEnvInt("UPDATE_RETRIES", cfg.Scoring.UpdateRetries); err != nil {
		return nil, err
	}
	if cfg.Geo.ImpossibleSpeedKmh, err = getEnvFloat("GEO_IMPOSSIBLE_KMH", cfg.Geo.ImpossibleSpeedKmh); err != nil {
		return nil, err
	}
	if cfg.Geo.VeryFastSpeedKmh, err = getEnvFloat("GEO_VERY_FAST_KMH", cfg.Geo.VeryFastSpeedKmh); err != nil {
		return nil, err
	}
	if cfg.Geo.DistanceMinKm, err = getEnvFloat("GEO_MIN_DISTANCE_KM", cfg.Geo.DistanceMinKm); err != nil {
		return nil, err
	}

	key, err := hex.DecodeString(getEnv("ENCRYPTION_KEY", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"))
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be hex: %w", err)
	}
	cfg.EncryptionKey = key

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if fc.Sweep != nil {
		if fc.Sweep.Schedule != "" {
			c.Sweep.Schedule = fc.Sweep.Schedule
		}
		if fc.Sweep.Workers > 0 {
			c.Sweep.Workers = fc.Sweep.Workers
		}
		if fc.Sweep.AccountWorkers > 0 {
			c.Sweep.AccountWorkers = fc.Sweep.AccountWorkers
		}
		if fc.Sweep.Timeout > 0 {
			c.Sweep.Timeout = fc.Sweep.Timeout
		}
	}
	if fc.Scoring != nil {
		if fc.Scoring.StatementLimit > 0 {
			c.Scoring.StatementLimit = fc.Scoring.StatementLimit
		}
		if fc.Scoring.UpdateRetries > 0 {
			c.Scoring.UpdateRetries = fc.Scoring.UpdateRetries
		}
	}
	c.Geo = fc.Geo.Apply(c.Geo)
	return nil
}

func (c *Config) validate() error {
	if c.DBConn == "" {
		return fmt.Errorf("DB_CONN is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.HMACSecret == "" {
		return fmt.Errorf("HMAC_SECRET is required")
	}
	if n := len(c.EncryptionKey); n != 16 && n != 24 && n != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must decode to 16, 24, or 32 bytes, got %d", n)
	}
	if c.Sweep.Workers <= 0 || c.Sweep.AccountWorkers <= 0 {
		return fmt.Errorf("worker counts must be positive")
	}
	if c.Scoring.StatementLimit <= 0 {
		return fmt.Errorf("STATEMENT_LIMIT must be positive")
	}
	if c.Geo.ImpossibleSpeedKmh <= 0 || c.Geo.VeryFastSpeedKmh <= 0 || c.Geo.DistanceMinKm < 0 {
		return fmt.Errorf("geo thresholds must be positive speeds and a non-negative distance")
	}
	if c.Geo.VeryFastSpeedKmh > c.Geo.ImpossibleSpeedKmh {
		return fmt.Errorf("GEO_VERY_FAST_KMH must not exceed GEO_IMPOSSIBLE_KMH")
	}
	return nil
}

// NotificationsEnabled reports whether SMTP is configured
func (c *Config) NotificationsEnabled() bool {
	return c.SMTPHost != "" && c.SenderEmail != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return d, nil
}
