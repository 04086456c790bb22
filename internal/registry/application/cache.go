package registry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zjrosen/layoutkit/internal/registry/domain"
)

// CacheKey is the versioned key the registry stores its index under.
const CacheKey = "layoutkit_registry_index_v1"

// CacheDuration is the default lifetime of the cached index.
const CacheDuration = time.Hour

// cacheEntry is the persisted registry state.
type cacheEntry struct {
	Generation string                   `json:"generation"`
	Index      *domain.Index            `json:"index"`
	Extensions []domain.ExtensionConfig `json:"extensions"`
}

func encodeCacheEntry(generation string, idx *domain.Index, exts []domain.ExtensionConfig) ([]byte, error) {
	if exts == nil {
		exts = []domain.ExtensionConfig{}
	}
	data, err := json.Marshal(cacheEntry{Generation: generation, Index: idx, Extensions: exts})
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return data, nil
}

func decodeCacheEntry(data []byte) (cacheEntry, error) {
	entry := cacheEntry{Index: domain.NewIndex()}
	if err := json.Unmarshal(data, &entry); err != nil {
		return cacheEntry{}, fmt.Errorf("decode cache entry: %w", err)
	}
	if entry.Index == nil {
		return cacheEntry{}, fmt.Errorf("decode cache entry: missing index")
	}
	return entry, nil
}
