package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps values under <prefix>:<browserID>:<key> with a sliding TTL
// refreshed on every write.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(browserID, key string) string {
	return r.prefix + ":" + browserID + ":" + key
}

func (r *Redis) Get(ctx context.Context, browserID, key string) (string, error) {
	value, err := r.client.Get(ctx, r.key(browserID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: redis get: %v", ErrUnavailable, err)
	}

	return value, nil
}

func (r *Redis) Set(ctx context.Context, browserID, key, value string) error {
	if err := r.client.Set(ctx, r.key(browserID, key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, browserID, key string) error {
	if err := r.client.Del(ctx, r.key(browserID, key)).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %v", ErrUnavailable, err)
	}
	return nil
}
