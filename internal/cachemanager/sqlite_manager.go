package cachemanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/layoutkit/internal/log"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at);
`

// SQLiteCacheManager is a CacheManager persisted in a SQLite file, so every
// process pointing at the same file sees the same entries. Expired rows are
// treated as misses and removed lazily.
type SQLiteCacheManager struct {
	db                *sql.DB
	path              string
	defaultExpiration time.Duration
	now               func() time.Time
}

// Ensure SQLiteCacheManager implements CacheManager.
var _ CacheManager[string, []byte] = (*SQLiteCacheManager)(nil)

// NewSQLiteCacheManager opens (creating if needed) the cache database at path.
// The parent directory is created with 0700 permissions.
func NewSQLiteCacheManager(path string, defaultExpiration time.Duration) (*SQLiteCacheManager, error) {
	if path == "" {
		return nil, errors.New("sqlite cache path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	log.Debug(log.CatDB, "Opening cache database", "path", path)
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		log.ErrorErr(log.CatDB, "Failed to open cache database", err, "path", path)
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		_ = db.Close()
		log.ErrorErr(log.CatDB, "Failed to create cache schema", err, "path", path)
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	log.Info(log.CatDB, "Cache database ready", "path", path)

	if defaultExpiration == 0 {
		defaultExpiration = DefaultExpiration
	}
	return &SQLiteCacheManager{
		db:                db,
		path:              path,
		defaultExpiration: defaultExpiration,
		now:               time.Now,
	}, nil
}

// Close closes the database connection.
func (c *SQLiteCacheManager) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *SQLiteCacheManager) Path() string {
	return c.path
}

// expiresAt converts a ttl into a unix-nano deadline; 0 means never.
func (c *SQLiteCacheManager) expiresAt(ttl time.Duration) int64 {
	if ttl == 0 {
		ttl = c.defaultExpiration
	}
	if ttl < 0 {
		return 0
	}
	return c.now().Add(ttl).UnixNano()
}

func (c *SQLiteCacheManager) expired(expiresAt int64) bool {
	return expiresAt != 0 && c.now().UnixNano() >= expiresAt
}

// Get returns the value stored under key if it has not expired.
func (c *SQLiteCacheManager) Get(ctx context.Context, key string) ([]byte, bool) {
	var value []byte
	var expiresAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug(log.CatCache, "cache miss", "store", "sqlite", "key", key)
		return nil, false
	}
	if err != nil {
		log.ErrorErr(log.CatDB, "Failed to read cache entry", err, "key", key)
		return nil, false
	}
	if c.expired(expiresAt) {
		log.Debug(log.CatCache, "cache entry expired", "store", "sqlite", "key", key)
		_ = c.Delete(ctx, key)
		return nil, false
	}

	log.Debug(log.CatCache, "cache hit", "store", "sqlite", "key", key)
	return value, true
}

// GetMultiple returns the live values among keys. The bool is false only
// when none were found.
func (c *SQLiteCacheManager) GetMultiple(ctx context.Context, keys []string) (map[string][]byte, bool) {
	if len(keys) == 0 {
		return nil, false
	}

	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = "?"
		args[i] = k
	}

	//nolint:gosec // G202: placeholders are literal "?" strings, values passed as args
	rows, err := c.db.QueryContext(ctx,
		`SELECT key, value, expires_at FROM cache_entries WHERE key IN (`+strings.Join(placeholders, ",")+`)`,
		args...,
	)
	if err != nil {
		log.ErrorErr(log.CatDB, "Failed to read cache entries", err, "keys", len(keys))
		return nil, false
	}
	defer func() { _ = rows.Close() }()

	values := make(map[string][]byte, len(keys))
	for rows.Next() {
		var key string
		var value []byte
		var expiresAt int64
		if err := rows.Scan(&key, &value, &expiresAt); err != nil {
			log.ErrorErr(log.CatDB, "Failed to scan cache entry", err)
			continue
		}
		if c.expired(expiresAt) {
			continue
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		log.ErrorErr(log.CatDB, "Failed to iterate cache entries", err)
	}

	if len(values) == 0 {
		return nil, false
	}
	return values, true
}

// GetWithRefresh returns the value and restarts its TTL.
func (c *SQLiteCacheManager) GetWithRefresh(ctx context.Context, key string, ttl time.Duration) ([]byte, bool) {
	value, found := c.Get(ctx, key)
	if !found {
		return nil, false
	}
	c.Set(ctx, key, value, ttl)
	return value, true
}

// Set stores value under key. Zero ttl uses the default expiration and a
// negative ttl never expires. Write failures are logged, not returned.
func (c *SQLiteCacheManager) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if value == nil {
		value = []byte{}
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, c.expiresAt(ttl),
	)
	if err != nil {
		log.ErrorErr(log.CatDB, "Failed to write cache entry", err, "key", key)
	}
}

// Delete removes keys. Missing keys are ignored.
func (c *SQLiteCacheManager) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
			return fmt.Errorf("delete cache entry %s: %w", key, err)
		}
	}
	return nil
}

// Flush removes every entry.
func (c *SQLiteCacheManager) Flush(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("flush cache: %w", err)
	}
	return nil
}

// PurgeExpired deletes every expired row and returns how many were removed.
func (c *SQLiteCacheManager) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := c.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at != 0 AND expires_at <= ?`,
		c.now().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("purge expired cache entries: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	if n > 0 {
		log.Debug(log.CatCache, "purged expired entries", "count", n)
	}
	return n, nil
}
