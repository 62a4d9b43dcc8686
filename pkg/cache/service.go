package cache

import (
	"context"
	"time"
)

// CacheService defines the behavior for caching mechanisms.
// Implementations are best-effort: a failing backend must surface as a miss,
// never as an error the caller has to handle.
type CacheService interface {
	// Get retrieves a serialized payload from the cache.
	// Returns value, true if found
	// Returns nil, false if not found or the backend is unavailable
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a serialized payload with a TTL. Failures are absorbed.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}
