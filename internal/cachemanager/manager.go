// Package cachemanager provides TTL key-value stores behind one generic
// interface: an in-process store backed by go-cache and a SQLite store that
// several processes can share.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is a TTL key-value store.
// A ttl of zero means "use the store's default expiration".
type CacheManager[K comparable, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	GetMultiple(ctx context.Context, keys []K) (map[K]V, bool)
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
}
