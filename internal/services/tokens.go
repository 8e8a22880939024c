package services

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrTokenNotFound = errors.New("token not found")

// TokenStore keeps short-lived auth state: refresh tokens and revoked JTIs.
type TokenStore interface {
	Save(ctx context.Context, key, value string, ttl time.Duration) error
	// Take returns and deletes key atomically.
	Take(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) Save(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisTokenStore) Take(ctx context.Context, key string) (string, error) {
	val, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	return val, err
}

func (s *RedisTokenStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	return n > 0, err
}
