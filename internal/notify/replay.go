package notify

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisReplayProtector remembers delivered event ids in Redis. A nil client
// disables the guard.
type RedisReplayProtector struct {
	Client *redis.Client
}

// Acquire claims key for ttl and reports whether this caller owns it.
func (p RedisReplayProtector) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if p.Client == nil {
		return true, nil
	}
	err := p.Client.SetArgs(ctx, key, time.Now().UTC().Format(time.RFC3339), redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}

// Release forgets key so a failed delivery can be retried.
func (p RedisReplayProtector) Release(ctx context.Context, key string) error {
	if p.Client == nil {
		return nil
	}
	return p.Client.Del(ctx, key).Err()
}
