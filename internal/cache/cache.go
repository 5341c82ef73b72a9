// Package cache provides caching for rendered strips and resolved colors.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Config contains cache configuration.
type Config struct {
	StripCacheSizeMB int
	StripTTL         time.Duration
	QueryCacheSize   int
}

// Manager manages strip and query caches.
type Manager struct {
	stripCache *bigcache.BigCache
	queryCache *lru.Cache[string, []byte]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	stripCacheConfig := bigcache.Config{
		Shards:             256,
		LifeWindow:         cfg.StripTTL,
		CleanWindow:        cfg.StripTTL / 2,
		MaxEntriesInWindow: 10000,
		MaxEntrySize:       16 * 1024, // strips are small PNGs
		HardMaxCacheSize:   cfg.StripCacheSizeMB,
		Verbose:            false,
	}

	stripCache, err := bigcache.New(context.Background(), stripCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create strip cache: %w", err)
	}

	queryCache, err := lru.New[string, []byte](cfg.QueryCacheSize)
	if err != nil {
		stripCache.Close()
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	return &Manager{
		stripCache: stripCache,
		queryCache: queryCache,
	}, nil
}

// GetStrip retrieves a rendered strip from cache.
func (m *Manager) GetStrip(key string) ([]byte, bool) {
	data, err := m.stripCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetStrip stores a rendered strip in cache.
func (m *Manager) SetStrip(key string, data []byte) error {
	return m.stripCache.Set(key, data)
}

// GetQuery retrieves a query result from cache.
func (m *Manager) GetQuery(key string) ([]byte, bool) {
	return m.queryCache.Get(key)
}

// SetQuery stores a query result in cache.
func (m *Manager) SetQuery(key string, data []byte) {
	m.queryCache.Add(key, data)
}

// StripKey generates a cache key for a rendered strip.
func StripKey(paletteName string, width, height int, offset float64) string {
	return fmt.Sprintf("strip:%s:%dx%d:%s", paletteName, width, height, formatOffset(offset))
}

// ColorsKey generates a cache key for a resolved color strip.
func ColorsKey(paletteName string, width int, offset float64) string {
	return fmt.Sprintf("colors:%s:%d:%s", paletteName, width, formatOffset(offset))
}

// formatOffset keeps full precision so nearby offsets never share a key.
func formatOffset(offset float64) string {
	return strconv.FormatFloat(offset, 'g', -1, 64)
}

// Reset drops every cached entry.
func (m *Manager) Reset() error {
	m.queryCache.Purge()
	return m.stripCache.Reset()
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	stats := m.stripCache.Stats()
	return map[string]interface{}{
		"strip_cache_len":    m.stripCache.Len(),
		"strip_cache_cap":    m.stripCache.Capacity(),
		"strip_cache_hits":   stats.Hits,
		"strip_cache_misses": stats.Misses,
		"query_cache_len":    m.queryCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.stripCache.Close()
}
