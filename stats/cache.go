package stats

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"hermannm.dev/wrap"
)

// ResponseCache stores raw statistics service responses, keyed by a hash of the request.
type ResponseCache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

const redisKeyPrefix = "stats:"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) RedisCache {
	return RedisCache{client: client, ttl: ttl}
}

func (cache RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := cache.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, wrap.Error(err, "redis get failed")
	}
	return value, true, nil
}

func (cache RedisCache) Set(ctx context.Context, key string, value []byte) error {
	if err := cache.client.Set(ctx, redisKeyPrefix+key, value, cache.ttl).Err(); err != nil {
		return wrap.Error(err, "redis set failed")
	}
	return nil
}
