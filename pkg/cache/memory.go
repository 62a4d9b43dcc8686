package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type memoryCache struct {
	store *gocache.Cache
}

// NewMemory creates an in-process cache service. Used in development and in
// tests where no redis is available.
// defaultExpiration: default TTL for items
// cleanupInterval: how often to scan for expired items
func NewMemory(defaultExpiration, cleanupInterval time.Duration) CacheService {
	return &memoryCache{
		store: gocache.New(defaultExpiration, cleanupInterval),
	}
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	v, found := c.store.Get(key)
	if !found {
		return nil, false
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false
	}
	return b, true
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.store.Set(key, value, ttl)
}
