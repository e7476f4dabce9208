package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisRevocationStore keeps revoked token ids in Redis until the token
// would have expired anyway.
type RedisRevocationStore struct {
	client *redis.Client
}

// NewRedisRevocationStore wraps a Redis client.
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

func revokedKey(tokenID string) string {
	return fmt.Sprintf("blacklist:%s", tokenID)
}

// Revoke marks the token id revoked for ttl.
func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return s.client.Set(ctx, revokedKey(tokenID), "1", ttl).Err()
}

// IsRevoked reports whether the token id was revoked.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
