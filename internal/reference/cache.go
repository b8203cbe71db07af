package reference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "pos:ref:"

// Cache keeps each reference dataset in Redis as one JSON document.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache returns a cache over rdb. A nil client or a non-positive ttl
// turns every call into a miss.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.rdb != nil && c.ttl > 0
}

// Lookup decodes the cached dataset into dst and reports a hit.
func (c *Cache) Lookup(ctx context.Context, dataset string, dst any) (bool, error) {
	if !c.enabled() {
		return false, nil
	}
	raw, err := c.rdb.Get(ctx, cachePrefix+dataset).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("read %s: %w", dataset, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", dataset, err)
	}
	return true, nil
}

// Store replaces the cached dataset.
func (c *Cache) Store(ctx context.Context, dataset string, v any) error {
	if !c.enabled() {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", dataset, err)
	}
	return c.rdb.Set(ctx, cachePrefix+dataset, raw, c.ttl).Err()
}

// Drop forgets the named datasets.
func (c *Cache) Drop(ctx context.Context, datasets ...string) error {
	if c == nil || c.rdb == nil || len(datasets) == 0 {
		return nil
	}
	keys := make([]string, 0, len(datasets))
	for _, d := range datasets {
		keys = append(keys, cachePrefix+d)
	}
	return c.rdb.Del(ctx, keys...).Err()
}
