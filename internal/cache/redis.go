package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "givora:cache:"

// Redis is the production Cache. Entries survive process restarts and are
// shared by every API instance pointed at the same server. Expiry is enforced
// server-side, so a read after the TTL behaves exactly like a lazy eviction.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client; its lifecycle is managed by the caller.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, redisKeyPrefix+DigestKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, redisKeyPrefix+DigestKey(key), value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, redisKeyPrefix+DigestKey(key)).Err()
}
