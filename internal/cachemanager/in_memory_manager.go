package cachemanager

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/layoutkit/internal/log"
)

// Store defaults. The index TTL matches DefaultExpiration.
const (
	DefaultExpiration      = time.Hour
	DefaultCleanupInterval = 30 * time.Minute
)

// InMemoryCacheManager is a process-local CacheManager backed by go-cache.
// Values are kept as V; nothing is serialized.
type InMemoryCacheManager[K ~string, V any] struct {
	name  string
	items *gocache.Cache
}

// Ensure InMemoryCacheManager implements CacheManager.
var _ CacheManager[string, []byte] = (*InMemoryCacheManager[string, []byte])(nil)

// NewInMemoryCacheManager creates a store. name identifies it in log output;
// expired items are swept every cleanupInterval.
func NewInMemoryCacheManager[K ~string, V any](name string, defaultExpiration, cleanupInterval time.Duration) *InMemoryCacheManager[K, V] {
	items := gocache.New(defaultExpiration, cleanupInterval)
	items.OnEvicted(func(key string, _ any) {
		log.Debug(log.CatCache, "evicted", "store", name, "key", key)
	})
	return &InMemoryCacheManager[K, V]{name: name, items: items}
}

// Name returns the store name given at construction.
func (c *InMemoryCacheManager[K, V]) Name() string {
	return c.name
}

// Len returns the number of stored items, including expired ones not yet swept.
func (c *InMemoryCacheManager[K, V]) Len() int {
	return c.items.ItemCount()
}

// lookup returns the typed value under key. A value of another type counts
// as a miss.
func (c *InMemoryCacheManager[K, V]) lookup(key K) (V, bool) {
	var zero V
	raw, found := c.items.Get(string(key))
	if !found {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		log.Error(log.CatCache, "stored value has unexpected type", "store", c.name, "key", key)
		return zero, false
	}
	return v, true
}

// Get returns the live value under key.
func (c *InMemoryCacheManager[K, V]) Get(_ context.Context, key K) (V, bool) {
	v, ok := c.lookup(key)
	if ok {
		log.Debug(log.CatCache, "cache hit", "store", c.name, "key", key)
	} else {
		log.Debug(log.CatCache, "cache miss", "store", c.name, "key", key)
	}
	return v, ok
}

// GetMultiple returns the live values among keys. The bool is false only
// when none were found.
func (c *InMemoryCacheManager[K, V]) GetMultiple(_ context.Context, keys []K) (map[K]V, bool) {
	found := make(map[K]V, len(keys))
	for _, key := range keys {
		if v, ok := c.lookup(key); ok {
			found[key] = v
		}
	}
	if len(found) == 0 {
		return nil, false
	}
	if missing := len(keys) - len(found); missing > 0 {
		log.Debug(log.CatCache, "partial cache miss", "store", c.name, "missing", missing, "keys", len(keys))
	}
	return found, true
}

// GetWithRefresh returns the value and restarts its TTL.
func (c *InMemoryCacheManager[K, V]) GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool) {
	v, ok := c.Get(ctx, key)
	if ok {
		c.Set(ctx, key, v, ttl)
	}
	return v, ok
}

// Set stores value under key. Zero ttl uses the default expiration and
// gocache.NoExpiration keeps the item until it is deleted.
func (c *InMemoryCacheManager[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	c.items.Set(string(key), value, ttl)
}

// Delete removes keys. Missing keys are ignored.
func (c *InMemoryCacheManager[K, V]) Delete(_ context.Context, keys ...K) error {
	for _, key := range keys {
		c.items.Delete(string(key))
	}
	return nil
}

// Flush removes every item without firing eviction callbacks.
func (c *InMemoryCacheManager[K, V]) Flush(_ context.Context) error {
	c.items.Flush()
	return nil
}
