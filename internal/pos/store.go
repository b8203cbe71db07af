package pos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists sessions.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps sessions as JSON documents that expire after TTL of inactivity.
type RedisStore struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

func (st RedisStore) key(id string) string {
	prefix := st.Prefix
	if prefix == "" {
		prefix = "pos:session:"
	}
	return prefix + id
}

func (st RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := st.R.Get(ctx, st.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

// Save writes s and refreshes its expiry.
func (st RedisStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ttl := st.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return st.R.Set(ctx, st.key(s.ID), data, ttl).Err()
}

func (st RedisStore) Delete(ctx context.Context, id string) error {
	return st.R.Del(ctx, st.key(id)).Err()
}
