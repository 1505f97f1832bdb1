package drafts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ltgsite:draft:"

type redisDraftClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps snapshots under a tab-scoped key that expires after ttl,
// so abandoned tabs clean themselves up.
type RedisStore struct {
	client redisDraftClient
	ttl    time.Duration
}

// NewRedisStore wraps a go-redis client.
func NewRedisStore(client redisDraftClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(tabID string) string {
	return redisKeyPrefix + tabID
}

func (s *RedisStore) Save(ctx context.Context, tabID string, data []byte) error {
	if err := checkTab(tabID); err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey(tabID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, tabID string) ([]byte, error) {
	data, err := s.client.Get(ctx, redisKey(tabID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	return data, nil
}

func (s *RedisStore) Delete(ctx context.Context, tabID string) error {
	if err := s.client.Del(ctx, redisKey(tabID)).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
