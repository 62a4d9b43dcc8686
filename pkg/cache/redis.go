package cache

import (
	"context"
	"sync/atomic"
	"time"

	"medcatalog-backend/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// redisCache wraps a redis client so that cache trouble can never fail a
// request. Until the connection probe succeeds every Get is a miss; after the
// bounded connect attempts are exhausted the instance permanently degrades to
// no-op behavior for the process lifetime.
type redisCache struct {
	client    *redis.Client
	opTimeout time.Duration
	ready     atomic.Bool
	degraded  atomic.Bool
}

// RedisOptions configures the connection retry state machine.
type RedisOptions struct {
	Addr        string
	OpTimeout   time.Duration // per-operation bound, keeps cache latency off the request path
	MaxAttempts int           // connect probes before permanent degradation
	BaseDelay   time.Duration // first backoff delay, doubled per attempt
}

// NewRedis creates a redis-backed cache service. Connection is attempted in
// the background; callers can use the returned service immediately.
func NewRedis(opts RedisOptions) CacheService {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 250 * time.Millisecond
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}

	c := &redisCache{
		client:    redis.NewClient(&redis.Options{Addr: opts.Addr}),
		opTimeout: opts.OpTimeout,
	}
	go c.connectLoop(opts.MaxAttempts, opts.BaseDelay)
	return c
}

// connectLoop probes the backend with exponential backoff. It logs the
// permanent degradation exactly once.
func (c *redisCache) connectLoop(maxAttempts int, baseDelay time.Duration) {
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.client.Ping(ctx).Err()
		cancel()
		if err == nil {
			c.ready.Store(true)
			logger.Info().Msg("Cache backend connected")
			return
		}
		logger.Debug().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Msg("Cache connect failed")
		if attempt < maxAttempts {
			time.Sleep(delay)
			delay *= 2
		}
	}
	c.degraded.Store(true)
	logger.Warn().Msg("Cache backend unreachable, continuing without caching")
}

// Degraded reports whether the bounded connect attempts were exhausted.
func (c *redisCache) Degraded() bool {
	return c.degraded.Load()
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.ready.Load() {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Debug().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return nil, false
	}
	return val, true
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if !c.ready.Load() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logger.Debug().Err(err).Str("key", key).Msg("Cache write failed")
	}
}
