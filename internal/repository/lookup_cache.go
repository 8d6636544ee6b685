package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLookupCache stores autocomplete and postcode lookups in Redis.
type RedisLookupCache struct {
	client *redis.Client
	prefix string
}

// NewRedisLookupCache creates a cache whose keys are namespaced under prefix.
func NewRedisLookupCache(client *redis.Client, prefix string) *RedisLookupCache {
	return &RedisLookupCache{client: client, prefix: prefix}
}

// Get returns the cached value for key. A miss returns ok=false and no error.
func (c *RedisLookupCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value for key with the given ttl.
func (c *RedisLookupCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryLookupCache is an in-process cache used when Redis is not configured.
type MemoryLookupCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryLookupCache creates an empty in-process cache.
func NewMemoryLookupCache() *MemoryLookupCache {
	return &MemoryLookupCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get returns the cached value for key if it has not expired.
func (c *MemoryLookupCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set stores value for key. A zero ttl never expires.
func (c *MemoryLookupCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}
