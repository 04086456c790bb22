package cachemanager

import (
	"context"
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/require"
)

type cacheKey string

type indexSnapshot struct {
	Sections int
	Sources  []string
}

func newIndexCache() *InMemoryCacheManager[cacheKey, []byte] {
	return NewInMemoryCacheManager[cacheKey, []byte]("registry-index", DefaultExpiration, DefaultCleanupInterval)
}

func TestInMemoryCacheManager_SetAndGet(t *testing.T) {
	cache := newIndexCache()
	cache.Set(context.Background(), "layoutkit_registry_index_v1", []byte(`{"section":{}}`), DefaultExpiration)

	got, ok := cache.Get(context.Background(), "layoutkit_registry_index_v1")
	require.True(t, ok)
	require.Equal(t, `{"section":{}}`, string(got))
}

func TestInMemoryCacheManager_StructValues(t *testing.T) {
	cache := NewInMemoryCacheManager[string, indexSnapshot]("snapshots", DefaultExpiration, DefaultCleanupInterval)
	snap := indexSnapshot{Sections: 3, Sources: []string{"theme", "core"}}
	cache.Set(context.Background(), "snap", snap, 0)

	got, ok := cache.Get(context.Background(), "snap")
	require.True(t, ok)
	require.Equal(t, snap, got)
}

func TestInMemoryCacheManager_GetMissing(t *testing.T) {
	cache := newIndexCache()

	got, ok := cache.Get(context.Background(), "missing")
	require.False(t, ok)
	require.Nil(t, got)
}

func TestInMemoryCacheManager_GetWrongType(t *testing.T) {
	cache := newIndexCache()
	cache.items.Set("layoutkit_registry_index_v1", 123, DefaultExpiration)

	got, ok := cache.Get(context.Background(), "layoutkit_registry_index_v1")
	require.False(t, ok)
	require.Nil(t, got)
}

func TestInMemoryCacheManager_Expires(t *testing.T) {
	cache := newIndexCache()
	cache.Set(context.Background(), "short", []byte("x"), 10*time.Millisecond)

	require.Eventually(t, func() bool {
		_, ok := cache.Get(context.Background(), "short")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestInMemoryCacheManager_NoExpiration(t *testing.T) {
	cache := NewInMemoryCacheManager[cacheKey, []byte]("registry-index", time.Millisecond, time.Hour)
	cache.Set(context.Background(), "pinned", []byte("x"), gocache.NoExpiration)

	time.Sleep(5 * time.Millisecond)
	_, ok := cache.Get(context.Background(), "pinned")
	require.True(t, ok)
}

func TestInMemoryCacheManager_GetMultiple(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("templates", DefaultExpiration, DefaultCleanupInterval)

	got, ok := cache.GetMultiple(context.Background(), nil)
	require.False(t, ok)
	require.Nil(t, got)

	got, ok = cache.GetMultiple(context.Background(), []string{"landing", "contact"})
	require.False(t, ok)
	require.Nil(t, got)

	cache.Set(context.Background(), "landing", "Landing", 0)
	cache.items.Set("contact", 42, DefaultExpiration)

	got, ok = cache.GetMultiple(context.Background(), []string{"landing", "contact", "about"})
	require.True(t, ok)
	require.Equal(t, map[string]string{"landing": "Landing"}, got)
}

func TestInMemoryCacheManager_GetWithRefresh(t *testing.T) {
	cache := newIndexCache()

	_, ok := cache.GetWithRefresh(context.Background(), "idx", time.Hour)
	require.False(t, ok)

	cache.Set(context.Background(), "idx", []byte("v1"), 20*time.Millisecond)
	got, ok := cache.GetWithRefresh(context.Background(), "idx", time.Hour)
	require.True(t, ok)
	require.Equal(t, "v1", string(got))

	time.Sleep(40 * time.Millisecond)
	_, ok = cache.Get(context.Background(), "idx")
	require.True(t, ok, "refresh should have extended the ttl")
}

func TestInMemoryCacheManager_Delete(t *testing.T) {
	cache := newIndexCache()
	require.NoError(t, cache.Delete(context.Background()))

	cache.Set(context.Background(), "a", []byte("1"), 0)
	cache.Set(context.Background(), "b", []byte("2"), 0)
	require.NoError(t, cache.Delete(context.Background(), "a", "missing"))

	_, ok := cache.Get(context.Background(), "a")
	require.False(t, ok)
	_, ok = cache.Get(context.Background(), "b")
	require.True(t, ok)
}

func TestInMemoryCacheManager_Flush(t *testing.T) {
	cache := newIndexCache()
	cache.Set(context.Background(), "a", []byte("1"), 0)
	cache.Set(context.Background(), "b", []byte("2"), 0)

	require.NoError(t, cache.Flush(context.Background()))

	_, ok := cache.Get(context.Background(), "a")
	require.False(t, ok)
	_, ok = cache.Get(context.Background(), "b")
	require.False(t, ok)
}

func TestInMemoryCacheManager_NameAndLen(t *testing.T) {
	cache := newIndexCache()
	require.Equal(t, "registry-index", cache.Name())
	require.Zero(t, cache.Len())

	cache.Set(context.Background(), "a", []byte("1"), 0)
	cache.Set(context.Background(), "b", []byte("2"), 0)
	require.Equal(t, 2, cache.Len())

	require.NoError(t, cache.Delete(context.Background(), "a"))
	require.Equal(t, 1, cache.Len())
}
