package utils

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

// CacheItem wraps cached data with its expiry
type CacheItem struct {
	Data      any
	ExpiresAt time.Time
}

// TTLCache bounded LRU cache with per-entry expiry
type TTLCache struct {
	lruCache *lru.Cache[string, CacheItem]
	now      func() time.Time
}

var (
	cacheInstance *TTLCache
	cacheOnce     sync.Once
)

// GetCache returns the process wide cache
func GetCache() *TTLCache {
	cacheOnce.Do(func() {
		cacheInstance = NewCache(256)
	})
	return cacheInstance
}

// NewCache builds a cache holding at most size entries
func NewCache(size int) *TTLCache {
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create LRU cache")
	}
	return &TTLCache{lruCache: l, now: time.Now}
}

// Set stores data for ttl
func (c *TTLCache) Set(key string, data any, ttl time.Duration) {
	c.lruCache.Add(key, CacheItem{
		Data:      data,
		ExpiresAt: c.now().Add(ttl),
	})
}

// Get returns nil when the key is missing or expired
func (c *TTLCache) Get(key string) any {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil
	}
	if c.now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil
	}
	return val.Data
}

// Delete drops key if present
func (c *TTLCache) Delete(key string) {
	c.lruCache.Remove(key)
}
