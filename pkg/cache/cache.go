package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/rebalancer/pkg/logger"
)

// Observer receives hit/miss/error notifications (metrics hook)
type Observer interface {
	CacheHit(namespace string)
	CacheMiss(namespace string)
	CacheError(namespace string)
}

// Cache provides typed JSON read-through caching over a Store.
// Concurrent misses for the same key are coalesced into a single load.
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	store     Store
	namespace string
	group     singleflight.Group
	observer  Observer
	logger    *logger.Logger
}

// New creates a cache helper over store
func New(store Store, namespace string, log *logger.Logger) *Cache {
	if log == nil {
		log = logger.Nop()
	}
	return &Cache{
		store:     store,
		namespace: namespace,
		logger:    log.Component("cache"),
	}
}

// WithObserver attaches a metrics observer
func (c *Cache) WithObserver(o Observer) *Cache {
	c.observer = o
	return c
}

// Get retrieves a cached value into dest
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}
	return true, nil
}

// Set stores a value with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return c.store.Set(ctx, key, data, ttl)
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// GetOrSet retrieves from cache or calls fn to populate it.
// Store failures never fail the call: the value is computed directly.
// fn errors are returned and nothing is cached.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func(ctx context.Context) (interface{}, error)) error {
	found, err := c.Get(ctx, key, dest)
	switch {
	case err != nil:
		c.notifyError()
		c.logger.WithError(err).WithField("key", key).Warn("Cache read failed, computing directly")
	case found:
		c.notifyHit()
		return nil
	default:
		c.notifyMiss()
	}

	value, err, _ := c.group.Do(key, func() (interface{}, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if setErr := c.Set(ctx, key, v, ttl); setErr != nil {
			c.notifyError()
			c.logger.WithError(setErr).WithField("key", key).Warn("Cache write failed")
		}
		return v, nil
	})
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return json.Unmarshal(data, dest)
}

func (c *Cache) notifyHit() {
	if c.observer != nil {
		c.observer.CacheHit(c.namespace)
	}
}

func (c *Cache) notifyMiss() {
	if c.observer != nil {
		c.observer.CacheMiss(c.namespace)
	}
}

func (c *Cache) notifyError() {
	if c.observer != nil {
		c.observer.CacheError(c.namespace)
	}
}

// Predefined TTLs
const (
	TTLShort  = 1 * time.Minute  // 실시간 시세
	TTLMedium = 10 * time.Minute // 호가/현재가
	TTLLong   = 1 * time.Hour    // 모멘텀 점수
	TTLDaily  = 24 * time.Hour   // 일별 히스토리
)
