package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/rebalancer/pkg/config"
)

// RedisStore is a Store backed by Redis
// ⭐ SSOT: Redis 연결은 여기서만 관리
type RedisStore struct {
	rdb     *redis.Client
	prefix  string
	enabled bool
}

// NewRedisStore connects to Redis. When Redis is disabled in config the
// returned store is a no-op that always misses.
func NewRedisStore(cfg *config.Config, prefix string) (*RedisStore, error) {
	if !cfg.Redis.Enabled {
		return &RedisStore{prefix: prefix, enabled: false}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisStore{rdb: rdb, prefix: prefix, enabled: true}, nil
}

// Enabled returns whether Redis is enabled
func (s *RedisStore) Enabled() bool {
	return s.enabled
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	if s.rdb != nil {
		return s.rdb.Close()
	}
	return nil
}

func (s *RedisStore) key(k string) string {
	return fmt.Sprintf("%s:cache:%s", s.prefix, k)
}

// Get retrieves a raw value; redis.Nil is reported as a miss
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !s.enabled {
		return nil, false, nil
	}

	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

// Set stores a raw value with TTL
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !s.enabled {
		return nil
	}
	if err := s.rdb.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a value
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if !s.enabled {
		return nil
	}
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
