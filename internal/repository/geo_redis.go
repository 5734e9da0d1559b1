package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/credit-scoring/internal/models"
	goredis "github.com/redis/go-redis/v9"
)

const geoKeyPrefix = "geo:last:"

// GeoSampleStore keeps the most recent geo sample of each card in Redis
type GeoSampleStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewGeoSampleStore connects to Redis and verifies the connection
func NewGeoSampleStore(ctx context.Context, addr string, ttl time.Duration) (*GeoSampleStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &GeoSampleStore{rdb: rdb, ttl: ttl}, nil
}

// LastSample returns the previous sample of a card, or nil when none is recorded
func (s *GeoSampleStore) LastSample(ctx context.Context, cardID string) (*models.GeoSample, error) {
	raw, err := s.rdb.Get(ctx, geoKeyPrefix+cardID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read geo sample: %w", err)
	}
	var sample models.GeoSample
	if err := json.Unmarshal(raw, &sample); err != nil {
		return nil, fmt.Errorf("failed to decode geo sample: %w", err)
	}
	return &sample, nil
}

// SaveSample records the latest sample of a card
func (s *GeoSampleStore) SaveSample(ctx context.Context, cardID string, sample models.GeoSample) error {
	raw, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to encode geo sample: %w", err)
	}
	if err := s.rdb.Set(ctx, geoKeyPrefix+cardID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save geo sample: %w", err)
	}
	return nil
}

// Close releases the Redis connection
func (s *GeoSampleStore) Close() error {
	return s.rdb.Close()
}
