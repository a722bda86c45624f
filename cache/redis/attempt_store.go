package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptStore implements cache.AttemptStore backed by Redis, the shared
// source of truth once the portal runs with more than one instance.
type AttemptStore struct {
	client *redis.Client
	prefix string
}

// NewAttemptStore creates a new [AttemptStore] instance.
func NewAttemptStore(client *redis.Client, prefix string) *AttemptStore {
	return &AttemptStore{client: client, prefix: prefix}
}

func (r *AttemptStore) redisKey(key string) string {
	return fmt.Sprintf("%s:attempts:%s", r.prefix, key)
}

// Increment implements cache.AttemptStore.Increment. INCR plus EXPIRE keeps
// the window sliding from the most recent failure.
func (r *AttemptStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	k := r.redisKey(key)

	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment attempt counter: %w", err)
	}
	if _, err := r.client.Expire(ctx, k, ttl).Result(); err != nil {
		return count, fmt.Errorf("failed to set expiry for attempt counter: %w", err)
	}
	return count, nil
}

// Get implements cache.AttemptStore.Get.
func (r *AttemptStore) Get(ctx context.Context, key string) (int64, error) {
	count, err := r.client.Get(ctx, r.redisKey(key)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read attempt counter: %w", err)
	}
	return count, nil
}

// Clear implements cache.AttemptStore.Clear.
func (r *AttemptStore) Clear(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to clear attempt counter: %w", err)
	}
	return nil
}
