package cachemanager

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/zjrosen/layoutkit/internal/log"
)

// ReadThroughCache memoizes a loader over a CacheManager. On a miss the
// loader runs and its result is stored; loader errors are returned and
// never stored.
type ReadThroughCache[K comparable, V any, I any] struct {
	store  CacheManager[K, V]
	loader func(ctx context.Context, input I) (V, error)
	bypass bool

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats counts lookups served by a ReadThroughCache.
type Stats struct {
	Hits   int64
	Misses int64
}

// NewReadThroughCache wraps store with loader. With bypass set every call
// runs the loader and nothing is stored.
func NewReadThroughCache[K comparable, V any, I any](
	store CacheManager[K, V],
	loader func(ctx context.Context, input I) (V, error),
	bypass bool,
) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{
		store:  store,
		loader: loader,
		bypass: bypass,
	}
}

// Get returns the stored value for key, loading it from input on a miss.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	return r.get(ctx, key, input, ttl, false)
}

// GetWithRefresh is Get, but a hit also restarts the entry's TTL.
func (r *ReadThroughCache[K, V, I]) GetWithRefresh(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	return r.get(ctx, key, input, ttl, true)
}

func (r *ReadThroughCache[K, V, I]) get(ctx context.Context, key K, input I, ttl time.Duration, refresh bool) (V, error) {
	if r.bypass {
		return r.loader(ctx, input)
	}

	var (
		value V
		ok    bool
	)
	if refresh {
		value, ok = r.store.GetWithRefresh(ctx, key, ttl)
	} else {
		value, ok = r.store.Get(ctx, key)
	}
	if ok {
		r.hits.Add(1)
		return value, nil
	}

	r.misses.Add(1)
	value, err := r.loader(ctx, input)
	if err != nil {
		log.Debug(log.CatCache, "loader failed, not caching", "key", key, "error", err)
		return value, err
	}
	r.store.Set(ctx, key, value, ttl)
	return value, nil
}

// Invalidate drops the given keys.
func (r *ReadThroughCache[K, V, I]) Invalidate(ctx context.Context, keys ...K) error {
	return r.store.Delete(ctx, keys...)
}

// Reset drops every stored value.
func (r *ReadThroughCache[K, V, I]) Reset(ctx context.Context) error {
	return r.store.Flush(ctx)
}

// Stats returns hit and miss counts since construction. Bypassed calls are
// not counted.
func (r *ReadThroughCache[K, V, I]) Stats() Stats {
	return Stats{Hits: r.hits.Load(), Misses: r.misses.Load()}
}
