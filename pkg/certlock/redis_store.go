package certlock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore implements Store on Redis SETNX. Keys are written without
// a TTL: a consumed certificate stays consumed until an operator
// deletes the key out of band.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// Compile-time interface compliance check
var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed once-lock store.
func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

// IsLocked performs a plain existence read.
func (s *RedisStore) IsLocked(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		s.logger.Error("failed to read lock", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("failed to read lock: %w", err)
	}
	return n > 0, nil
}

// TryConsume claims the key with SETNX. Only the caller whose SETNX
// reports the key was newly set observes true.
func (s *RedisStore) TryConsume(ctx context.Context, key string, meta Meta) (bool, error) {
	value, err := json.Marshal(meta)
	if err != nil {
		return false, fmt.Errorf("failed to marshal lock meta: %w", err)
	}

	ok, err := s.client.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		s.logger.Error("failed to consume lock", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("failed to consume lock: %w", err)
	}

	if !ok {
		s.logger.Warn("lock already consumed",
			zap.String("key", key),
			zap.String("wallet", meta.Wallet),
		)
		return false, nil
	}

	s.logger.Info("lock consumed",
		zap.String("key", key),
		zap.String("wallet", meta.Wallet),
	)
	return true, nil
}
