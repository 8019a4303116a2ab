package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

var (
	ErrCacheMiss           = errors.New(errors.ErrCodeNotFound, "cache miss")
	ErrSerializationFailed = errors.New(errors.ErrCodeSerialization, "serialization failed")
)

// Cache stores JSON values under namespaced keys.  The ingestion worker uses
// it to reuse extraction results for byte-identical uploads and to claim
// deliveries so a redelivered message is not processed twice.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// GetOrSet returns the cached value or loads, stores and returns it.
	// Concurrent misses on one key share a single load.
	GetOrSet(ctx context.Context, key string, dest any, ttl time.Duration, loader func(ctx context.Context) (any, error)) error
	// Claim sets key if absent and reports whether this caller set it.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type redisCache struct {
	client     *Client
	logger     logging.Logger
	defaultTTL time.Duration
	group      singleflight.Group
}

// CacheOption configures the cache.
type CacheOption func(*redisCache)

// WithDefaultTTL sets the expiry used when a caller passes zero.
func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *redisCache) { c.defaultTTL = ttl }
}

// NewRedisCache returns a Cache keyed under the client's prefix.
func NewRedisCache(client *Client, log logging.Logger, opts ...CacheOption) Cache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &redisCache{
		client:     client,
		logger:     log,
		defaultTTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *redisCache) fullKey(key string) string {
	return c.client.Key("cache", key)
}

// jitterTTL spreads expiries by up to ten percent either way.
func (c *redisCache) jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

func (c *redisCache) Get(ctx context.Context, key string, dest any) error {
	if c.client.isClosed() {
		return ErrClientClosed
	}
	data, err := c.client.Underlying().Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		return ErrCacheMiss.WithDetail(key)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to read cache")
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	return nil
}

func (c *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.client.isClosed() {
		return ErrClientClosed
	}
	data, err := json.Marshal(value)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	if err := c.client.Underlying().Set(ctx, c.fullKey(key), data, c.jitterTTL(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to write cache")
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}
	if err := c.client.Underlying().Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete cache keys")
	}
	return nil
}

func (c *redisCache) GetOrSet(ctx context.Context, key string, dest any, ttl time.Duration, loader func(ctx context.Context) (any, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.IsCode(err, errors.ErrCodeNotFound) {
		c.logger.Warn("cache read failed, loading directly", append(logging.ErrorFields(err), logging.String("key", key))...)
	}

	val, err, _ := c.group.Do(key, func() (any, error) {
		v, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		if setErr := c.Set(ctx, key, v, ttl); setErr != nil {
			c.logger.Warn("cache write failed", append(logging.ErrorFields(setErr), logging.String("key", key))...)
		}
		return v, nil
	})
	if err != nil {
		return err
	}

	// Round-trip through JSON so every caller gets its own copy.
	data, err := json.Marshal(val)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	return json.Unmarshal(data, dest)
}

func (c *redisCache) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if c.client.isClosed() {
		return false, ErrClientClosed
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	ok, err := c.client.Underlying().SetNX(ctx, c.client.Key("claim", key), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to claim key")
	}
	return ok, nil
}

//Personal.AI order the ending
