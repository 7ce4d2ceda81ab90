package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisKV keeps each record as a plain string key with a shared prefix.
type RedisKV struct {
	client *redis.Client
	prefix string
}

// RedisOptions turns a REDIS_URL style value into client options. Both
// "redis://" URLs and bare host:port addresses are accepted.
func RedisOptions(addr string) (*redis.Options, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: addr}, nil
}

// NewRedisKV wraps a client. prefix namespaces every key (e.g. "pricebot:").
func NewRedisKV(client *redis.Client, prefix string) *RedisKV {
	return &RedisKV{client: client, prefix: prefix}
}

// Ping checks the connection to the Redis server.
func (r *RedisKV) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisKV) key(name string) string {
	return r.prefix + name
}

// Get returns the raw record stored under key.
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

// Put overwrites the record; SET is atomic for a single key.
func (r *RedisKV) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the client connections.
func (r *RedisKV) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

var _ KV = (*RedisKV)(nil)
