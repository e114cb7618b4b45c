// Package revocation keeps consumed refresh-token ids in Redis until the
// token would have expired anyway.
package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
	pingTimeout  = 2 * time.Second
)

const keyPrefix = "auth:revoked_refresh:"

// kv is the slice of the go-redis API the store needs.
type kv interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

type RedisStore struct {
	client kv
}

func NewRedisStore(client kv) *RedisStore {
	return &RedisStore{client: client}
}

// Connect parses redisURL, pings the server and returns the client.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout
	options.WriteTimeout = writeTimeout

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}
	return client, nil
}

func key(jti string) string {
	return keyPrefix + jti
}

// Consume records jti with SET NX so that exactly one caller sees true.
func (s *RedisStore) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	first, err := s.client.SetNX(ctx, key(jti), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis_consume_failed: %w", err)
	}
	return first, nil
}
