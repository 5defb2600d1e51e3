package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "storefront:failures:"

// RedisStore is a FailureStore shared by every gateway worker. Counters
// expire after ttl of inactivity.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore from a redis:// URL.
func NewRedisStore(rawURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts), ttl: ttl}, nil
}

func key(session string) string {
	return redisKeyPrefix + session
}

// RecordFailure implements FailureStore.
func (s *RedisStore) RecordFailure(ctx context.Context, session string) (bool, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key(session))
		if s.ttl > 0 {
			pipe.Expire(ctx, key(session), s.ttl)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("record failure: %w", err)
	}
	return crossed(incr.Val()), nil
}

// Reset implements FailureStore.
func (s *RedisStore) Reset(ctx context.Context, session string) error {
	if err := s.client.Del(ctx, key(session)).Err(); err != nil {
		return fmt.Errorf("reset failures: %w", err)
	}
	return nil
}

// Count implements FailureStore.
func (s *RedisStore) Count(ctx context.Context, session string) (int, error) {
	n, err := s.client.Get(ctx, key(session)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count failures: %w", err)
	}
	return n, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
