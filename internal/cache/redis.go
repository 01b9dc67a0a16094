package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// RedisBackend shares entries between replicas. Payloads are stored as JSON
// under prefix+key and expire after two TTLs, leaving one TTL of stale
// fallback.
type RedisBackend[T any] struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisBackend creates a backend on client.
func NewRedisBackend[T any](client redis.UniversalClient, prefix string) *RedisBackend[T] {
	return &RedisBackend[T]{client: client, prefix: prefix}
}

// Get implements Backend.
func (r *RedisBackend[T]) Get(ctx context.Context, key string) (Entry[T], bool, error) {
	var e Entry[T]
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return e, false, nil
	}
	if err != nil {
		return e, false, eris.Wrapf(err, "cache: redis get %s", key)
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return e, false, eris.Wrapf(err, "cache: decode %s", key)
	}
	return e, true, nil
}

// Set implements Backend.
func (r *RedisBackend[T]) Set(ctx context.Context, key string, e Entry[T], ttl time.Duration) error {
	data, err := json.Marshal(e)
	if err != nil {
		return eris.Wrapf(err, "cache: encode %s", key)
	}
	if err := r.client.Set(ctx, r.prefix+key, data, 2*ttl).Err(); err != nil {
		return eris.Wrapf(err, "cache: redis set %s", key)
	}
	return nil
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrapf(err, "cache: ping redis at %s", addr)
	}
	return client, nil
}
