package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed cache, useful when several gateway
// instances share one registry source.
type RedisStore struct {
	client *redis.Client
	config Config
	prefix string
}

// NewRedisStore creates a Redis cache using the provided client.
func NewRedisStore(client *redis.Client, prefix string, config Config) *RedisStore {
	if prefix == "" {
		prefix = "hopgate:registry:"
	}
	config = applyDefaults(config)

	return &RedisStore{
		client: client,
		config: config,
		prefix: prefix,
	}
}

// NewRedisStoreFromURL creates a Redis cache from a Redis URL.
// URL format: redis://[user[:password]@]host[:port][/db][?option=value]
func NewRedisStoreFromURL(redisURL string, prefix string, config Config) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return NewRedisStore(redis.NewClient(opts), prefix, config), nil
}

// Get retrieves an entry from Redis.
func (rs *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := rs.client.Get(ctx, rs.makeKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}

	if entry.IsTooOld() {
		rs.client.Del(ctx, rs.makeKey(key))
		return nil, nil
	}

	return &entry, nil
}

// Set stores an entry in Redis with TTL + StaleTime expiration.
func (rs *RedisStore) Set(ctx context.Context, entry *Entry) error {
	if entry.TTL == 0 {
		entry.TTL = rs.config.TTL
	}
	if entry.StaleTime == 0 {
		entry.StaleTime = rs.config.StaleTime
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	expiration := entry.TTL + entry.StaleTime

	if err := rs.client.Set(ctx, rs.makeKey(entry.Key), data, expiration).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// Delete removes an entry from Redis.
func (rs *RedisStore) Delete(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, rs.makeKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

func (rs *RedisStore) makeKey(key string) string {
	return rs.prefix + key
}
