package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKV stores records as plain redis strings without expiry.
// The client is owned by the caller and is not closed by Close.
type RedisKV struct {
	rdb *redis.Client
}

// NewRedisKV wraps an initialized client.
func NewRedisKV(rdb *redis.Client) (*RedisKV, error) {
	if rdb == nil {
		return nil, errors.New("redis client not available")
	}
	return &RedisKV{rdb: rdb}, nil
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return []byte(val), nil
}

func (r *RedisKV) Put(ctx context.Context, key string, value []byte) error {
	if err := r.rdb.Set(ctx, key, string(value), 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Close() error {
	return nil
}
