package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares dedupe state between instances through short-lived keys.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "dedupe:",
	}
}

// NewRedisStoreFromURL parses a redis:// URL and creates a store.
func NewRedisStoreFromURL(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewRedisStore(redis.NewClient(opts)), nil
}

// Seen sets the key only if it does not exist yet, with the window as TTL.
// An existing key means the event is a duplicate; its TTL is left untouched.
func (s *RedisStore) Seen(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record dedupe key: %w", err)
	}
	return !ok, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
