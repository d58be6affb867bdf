package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent; callers fall through to the
// authoritative store.
var ErrMiss = errors.New("cache miss")

// tombstoneValue marks an invalidated key. Deliberately not JSON so a
// decode of a tombstone can never succeed.
const tombstoneValue = "__invalidated__"

type Cache struct {
	client *redis.Client
}

func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if val == tombstoneValue {
		return ErrMiss
	}
	return json.Unmarshal([]byte(val), dest)
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// SetNX fills a key only when nothing holds it. Cache-aside readers use this
// so a value fetched before an invalidation cannot overwrite the tombstone
// the invalidation left behind.
func (c *Cache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	return c.client.SetNX(ctx, key, data, ttl).Err()
}

// Invalidate replaces keys with short-lived tombstones instead of deleting
// them. Get treats a tombstone as a miss and SetNX refuses to overwrite it,
// so an in-flight read that fetched the old row before the invalidation
// cannot resurrect it; reads go to the authoritative store until the
// tombstone expires.
func (c *Cache) Invalidate(ctx context.Context, ttl time.Duration, keys ...string) error {
	for _, key := range keys {
		if err := c.client.Set(ctx, key, tombstoneValue, ttl).Err(); err != nil {
			return fmt.Errorf("cache invalidate %s: %w", key, err)
		}
	}
	return nil
}
