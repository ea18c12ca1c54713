package dedupe

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"trialgraph/internal/config"
)

// RedisStore is a Redis-backed Store, constructed from config.RedisConfig.
type RedisStore struct {
	client *redis.Client
}

// NewRedis opens a client against cfg.Addr/cfg.DB and pings it to validate
// the connection before returning, same as the teacher's
// NewRedisDedupeStore.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, DB: cfg.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Get returns "" on a cache miss, never redis.Nil.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Close closes the underlying client. Not part of Store; called directly
// by main at shutdown, same as the teacher's RedisDedupeStore.Close.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
