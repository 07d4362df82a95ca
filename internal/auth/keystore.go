package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeySetRedisKey = "auth:jwks"

// RedisKeySetStore keeps the issuer's key set document in Redis so every
// replica reuses one fetch until the entry expires.
type RedisKeySetStore struct {
	client *redis.Client
	key    string
}

// NewRedisKeySetStore returns a store writing under key (or "auth:jwks").
func NewRedisKeySetStore(client *redis.Client, key string) *RedisKeySetStore {
	if key == "" {
		key = defaultKeySetRedisKey
	}
	return &RedisKeySetStore{client: client, key: key}
}

func (s *RedisKeySetStore) Load(ctx context.Context) ([]byte, error) {
	doc, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *RedisKeySetStore) Save(ctx context.Context, doc []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.key, doc, ttl).Err()
}
