package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores credential keys in Redis. Writes go through MULTI/EXEC
// so a domain's three keys are never observed half-written.
type RedisBackend struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisBackend creates a [RedisBackend]. prefix namespaces every key
// ("prefix:vendorToken"); an empty prefix stores the bare key names. ttl of
// zero keeps keys until they are removed.
func NewRedisBackend(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisBackend {
	return &RedisBackend{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (b *RedisBackend) key(k string) string {
	if b.prefix == "" {
		return k
	}
	return b.prefix + ":" + k
}

func (b *RedisBackend) keys(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = b.key(k)
	}
	return out
}

// Load fetches keys with a single MGET.
func (b *RedisBackend) Load(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := b.redis.MGet(ctx, b.keys(keys)...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	for i, v := range values {
		if s, ok := v.(string); ok {
			out[keys[i]] = s
		}
	}
	return out, nil
}

// Save writes all values in one transaction.
func (b *RedisBackend) Save(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	_, err := b.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, b.key(k), v, b.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Remove deletes keys with a single DEL. Missing keys are not an error.
func (b *RedisBackend) Remove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := b.redis.Del(ctx, b.keys(keys)...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}
