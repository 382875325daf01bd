// Package cache provides an optional TTL cache for analysis results. It is
// an accelerator only: correctness never depends on a hit.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Cache stores serialized analysis results with a TTL.
type Cache interface {
	// Get retrieves a cached value; the second return is false on miss or
	// expiry.
	Get(key string) ([]byte, bool)
	// Set stores a value; ttl <= 0 uses the cache default.
	Set(key string, value []byte, ttl time.Duration) error
	// Stats returns cache statistics
	Stats() Stats
	// Close releases background resources. Safe to call more than once.
	Close()
}

// Stats holds cache statistics
type Stats struct {
	Hits   int64
	Misses int64
	Size   int64
}

// MemoryCache is an in-memory TTL cache with oldest-expiry eviction.
type MemoryCache struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	maxSize   int
	ttl       time.Duration
	stats     Stats
	done      chan struct{}
	closeOnce sync.Once
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(maxSize int, ttl time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	c := &MemoryCache{
		entries: make(map[string]*entry),
		maxSize: maxSize,
		ttl:     ttl,
		done:    make(chan struct{}),
	}

	go c.cleanup()

	return c
}

// Get retrieves a cached value
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		c.stats.Misses++
		c.mu.Unlock()
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.stats.Misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()

	log.Debug().Str("key", keyPreview(key)).Msg("cache hit")
	return e.value, true
}

// Set stores a value
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	c.stats.Size = int64(len(c.entries))

	log.Debug().Str("key", keyPreview(key)).Dur("ttl", ttl).Msg("cached value")
	return nil
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// evictOldest removes the entry expiring soonest (simple LRU approximation)
func (c *MemoryCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, e := range c.entries {
		if oldestKey == "" || e.expiresAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.expiresAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Close stops the cleanup goroutine. The cache remains usable afterwards,
// expired entries are then only reaped lazily on Get.
func (c *MemoryCache) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// cleanup periodically removes expired entries until Close.
func (c *MemoryCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		now := time.Now()
		for key, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, key)
			}
		}
		c.stats.Size = int64(len(c.entries))
		c.mu.Unlock()
	}
}

// NullCache is a no-op cache for when caching is disabled.
type NullCache struct{}

func (c *NullCache) Get(key string) ([]byte, bool) {
	return nil, false
}

func (c *NullCache) Set(key string, value []byte, ttl time.Duration) error {
	return nil
}

func (c *NullCache) Stats() Stats {
	return Stats{}
}

func (c *NullCache) Close() {}

func keyPreview(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

// Key builds a stable cache key from its parts: typically (repository
// identity, file path, kind) for file results and the repository identity
// alone for whole-repository results.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(hash[:])
}

// New creates the cache implementation named by cacheType.
func New(cacheType string, maxSize int, ttl time.Duration) Cache {
	switch cacheType {
	case "memory":
		return NewMemoryCache(maxSize, ttl)
	case "none", "":
		return &NullCache{}
	default:
		log.Warn().Str("type", cacheType).Msg("unknown cache type, using memory cache")
		return NewMemoryCache(maxSize, ttl)
	}
}
