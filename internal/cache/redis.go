package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

// RedisStore implements Store on Redis strings. Entries never expire.
type RedisStore struct {
	client *redis.Client
	prefix string
}

type RedisConfig struct {
	Prefix string
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client, config RedisConfig) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: config.Prefix,
	}
}

// key builds the final Redis key with prefix.
func (c *RedisStore) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// Exists treats a zero-length value like a missing key.
func (c *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error: %w", err)
	}
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	n, err := c.client.StrLen(ctx, c.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis strlen failed: %w", err)
	}
	return n > 0, nil
}

func (c *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	res, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	if len(res) == 0 {
		return nil, ErrNotFound
	}
	return res, nil
}

// Store overwrites key with no TTL. SET replaces atomically.
func (c *RedisStore) Store(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key(key), value, 0).Err(); err != nil {
		return &WriteError{Key: key, Err: fmt.Errorf("redis set failed: %w", err)}
	}
	return nil
}

// Purge scans the prefix and deletes keys with a known suffix one by one.
func (c *RedisStore) Purge(ctx context.Context) PurgeResult {
	var res PurgeResult

	match := "*"
	if c.prefix != "" {
		match = c.prefix + ":*"
	}

	iter := c.client.Scan(ctx, 0, match, 100).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		name := full
		if c.prefix != "" {
			name = full[len(c.prefix)+1:]
		}
		if !KnownSuffix(name) {
			continue
		}
		if err := c.client.Del(ctx, full).Err(); err != nil {
			res.Err = multierr.Append(res.Err, fmt.Errorf("redis del %q failed: %w", full, err))
			continue
		}
		res.Removed = append(res.Removed, full)
	}
	if err := iter.Err(); err != nil {
		res.Err = multierr.Append(res.Err, fmt.Errorf("redis scan failed: %w", err))
	}
	return res
}

// Ping checks if Redis connection is healthy.
func (c *RedisStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	return c.client.Ping(ctx).Err()
}
