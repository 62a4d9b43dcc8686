package cache

import (
	"context"
	"time"
)

type noopCache struct{}

// NewNoop returns a cache that never hits. Installed when no cache backend is
// configured so callers stay unaware of the substitution.
func NewNoop() CacheService {
	return noopCache{}
}

func (noopCache) Get(ctx context.Context, key string) ([]byte, bool) { return nil, false }

func (noopCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {}
