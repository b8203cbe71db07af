package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter is a sliding window counter kept in a Redis sorted set per key.
// Rejected attempts are not recorded, so a client that keeps retrying is
// released once its oldest accepted attempt leaves the window.
type Limiter struct {
	Client *redis.Client
	Prefix string
	Now    func() time.Time
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// RetryAfter is how long the caller should wait before the next attempt.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || !d.Reset.After(now) {
		return 0
	}
	return d.Reset.Sub(now)
}

func (l Limiter) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Allow records an attempt for key and reports whether it fits within max
// attempts per window.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	now := l.now()
	if l.Client == nil || max <= 0 || window <= 0 {
		return Decision{Allowed: true, Limit: max, Remaining: max, Reset: now.Add(window)}, nil
	}

	redisKey := l.Prefix + key
	member := uuid.NewString()
	cutoff := strconv.FormatInt(now.Add(-window).UnixMicro(), 10)

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", "("+cutoff)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.PExpire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Limit: max, Reset: now.Add(window)}, fmt.Errorf("ratelimit %s: %w", key, err)
	}

	count := int(countCmd.Val())
	reset := now.Add(window)
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		reset = time.UnixMicro(int64(oldest[0].Score)).Add(window)
	}

	if count > max {
		if err := l.Client.ZRem(ctx, redisKey, member).Err(); err != nil {
			return Decision{Limit: max, Reset: reset}, fmt.Errorf("ratelimit %s: %w", key, err)
		}
		return Decision{Allowed: false, Limit: max, Remaining: 0, Reset: reset}, nil
	}
	return Decision{Allowed: true, Limit: max, Remaining: max - count, Reset: reset}, nil
}

// Clear forgets every attempt recorded for key.
func (l Limiter) Clear(ctx context.Context, key string) error {
	if l.Client == nil {
		return nil
	}
	return l.Client.Del(ctx, l.Prefix+key).Err()
}
