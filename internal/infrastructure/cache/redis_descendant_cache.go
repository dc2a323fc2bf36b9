package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	descendantKeySegment = "descendants:"
	generationKeySuffix  = "generation"
	purgeBatchSize       = 100
)

// RedisDescendantCache stores descendant sets as JSON arrays in Redis so
// that every instance of the service shares them.
//
// The generation is a counter key bumped by Purge. Entry keys embed the
// generation they were resolved in, so a set written after a purge under an
// old generation is never read and simply expires.
type RedisDescendantCache struct {
	client        *redis.Client
	keyPrefix     string
	generationKey string
	ttl           time.Duration
}

// RedisOptions holds Redis connection configuration
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisDescendantCache connects to Redis and verifies the connection
func NewRedisDescendantCache(opts RedisOptions, keyPrefix string, ttl time.Duration) (*RedisDescendantCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisDescendantCacheWithClient(client, keyPrefix, ttl), nil
}

// NewRedisDescendantCacheWithClient wraps an existing client
func NewRedisDescendantCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisDescendantCache {
	return &RedisDescendantCache{
		client:        client,
		keyPrefix:     keyPrefix + descendantKeySegment,
		generationKey: keyPrefix + descendantKeySegment + generationKeySuffix,
		ttl:           ttl,
	}
}

func (c *RedisDescendantCache) key(generation, rootID uint64) string {
	return c.keyPrefix + strconv.FormatUint(generation, 10) + ":" + strconv.FormatUint(rootID, 10)
}

// Generation implements DescendantCache. A missing counter is generation 0.
func (c *RedisDescendantCache) Generation(ctx context.Context) (uint64, error) {
	generation, err := c.client.Get(ctx, c.generationKey).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read descendant cache generation: %w", err)
	}
	return generation, nil
}

// Get implements DescendantCache
func (c *RedisDescendantCache) Get(ctx context.Context, generation, rootID uint64) ([]uint64, bool, error) {
	raw, err := c.client.Get(ctx, c.key(generation, rootID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read descendant cache: %w", err)
	}

	var ids []uint64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, false, fmt.Errorf("failed to decode descendant cache entry: %w", err)
	}
	return ids, true, nil
}

// Set implements DescendantCache
func (c *RedisDescendantCache) Set(ctx context.Context, generation, rootID uint64, ids []uint64) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode descendant cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.key(generation, rootID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write descendant cache: %w", err)
	}
	return nil
}

// Purge bumps the generation, then deletes the entry keys. Keys are found
// with SCAN so the server is never blocked by KEYS.
func (c *RedisDescendantCache) Purge(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.generationKey).Err(); err != nil {
		return fmt.Errorf("failed to bump descendant cache generation: %w", err)
	}

	iter := c.client.Scan(ctx, 0, c.keyPrefix+"*:*", purgeBatchSize).Iterator()
	batch := make([]string, 0, purgeBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == purgeBatchSize {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to purge descendant cache: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan descendant cache: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to purge descendant cache: %w", err)
		}
	}
	return nil
}

// Close closes the Redis client
func (c *RedisDescendantCache) Close() error {
	return c.client.Close()
}

var _ DescendantCache = (*RedisDescendantCache)(nil)
