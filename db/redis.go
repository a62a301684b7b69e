package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Redis struct {
	RedisClient *redis.Client
	RedisCtx    context.Context
}

// NewRedis connects using a redis:// URL and pings the server once.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{
		RedisClient: rdb,
		RedisCtx:    ctx,
	}, nil
}

// SetNX sets key only if it does not exist yet and reports whether it did.
func (r *Redis) SetNX(key string, value any, expiration time.Duration) (bool, error) {
	return r.RedisClient.SetNX(r.RedisCtx, key, value, expiration).Result()
}

func (r *Redis) Close() error {
	return r.RedisClient.Close()
}
