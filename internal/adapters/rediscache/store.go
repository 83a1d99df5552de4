// Package rediscache shares computed indicator sets between dashboard
// instances through Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"tradingDashboard/internal/domain"
	"tradingDashboard/internal/ports"
)

const keyPrefix = "dashboard:indicators:"

// Config configures the Redis store.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration
	Logger   ports.Logger
}

// Store implements ports.IndicatorStore with JSON values and SET ... EX.
type Store struct {
	client *goredis.Client
	ttl    time.Duration
	logger ports.Logger
}

// New connects to Redis and pings the server.
func New(cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for redis store")
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is empty: %w", ports.ErrConfigurationError)
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w: %w", ports.ErrConnectionFailed, err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	cfg.Logger.Info(ctx, "Connected to Redis indicator store", map[string]interface{}{"addr": cfg.Addr, "db": cfg.DB, "ttl": ttl.String()})
	return &Store{client: client, ttl: ttl, logger: cfg.Logger}, nil
}

// Ping checks that the Redis server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w: %w", ports.ErrConnectionFailed, err)
	}
	return nil
}

// GetIndicators returns the stored set, or nil, nil on a miss.
func (s *Store) GetIndicators(ctx context.Context, key string) (*domain.IndicatorSet, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w: %w", key, ports.ErrUpstreamUnavailable, err)
	}

	var set domain.IndicatorSet
	if err := json.Unmarshal(raw, &set); err != nil {
		// A corrupt entry is dropped and reported as a miss.
		s.logger.Warn(ctx, "Discarding undecodable indicator entry", map[string]interface{}{"key": key, "error": err.Error()})
		_ = s.client.Del(ctx, keyPrefix+key).Err()
		return nil, nil
	}
	return &set, nil
}

// SetIndicators stores set under key with the configured TTL.
func (s *Store) SetIndicators(ctx context.Context, key string, set *domain.IndicatorSet) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode indicator set: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w: %w", key, ports.ErrUpstreamUnavailable, err)
	}
	return nil
}

// Clear deletes every indicator entry this store owns.
func (s *Store) Clear(ctx context.Context) error {
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 200).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w: %w", ports.ErrUpstreamUnavailable, err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w: %w", ports.ErrUpstreamUnavailable, err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	s.logger.Info(ctx, "Cleared Redis indicator store", map[string]interface{}{"deleted": deleted})
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
