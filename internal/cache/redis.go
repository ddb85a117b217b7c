package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hostiva/portal/internal/persistence"
)

// RedisStore is a second-level cache for deployments that want fetched pages
// to survive portal restarts. Values are JSON-encoded; Redis owns expiry.
type RedisStore struct {
	redis  *persistence.Redis
	prefix string
	logger *zap.Logger
}

// NewRedisStore wraps a Redis connection as a cache backend.
func NewRedisStore(r *persistence.Redis, prefix string, logger *zap.Logger) *RedisStore {
	return &RedisStore{redis: r, prefix: prefix, logger: logger}
}

// Set stores value under key with the given TTL. Failures are logged and
// swallowed: the in-memory cache remains the source of truth.
func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if s == nil || s.redis == nil || s.redis.Client == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("redis cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.redis.Client.Set(ctx, s.prefix+key, payload, ttl).Err(); err != nil {
		s.logger.Warn("redis cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Get loads the value for key into dest. Returns false on miss, expiry or any
// transport failure.
func (s *RedisStore) Get(ctx context.Context, key string, dest any) bool {
	if s == nil || s.redis == nil || s.redis.Client == nil {
		return false
	}
	payload, err := s.redis.Client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("redis cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		s.logger.Warn("redis cache decode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) {
	if s == nil || s.redis == nil || s.redis.Client == nil {
		return
	}
	if err := s.redis.Client.Del(ctx, s.prefix+key).Err(); err != nil {
		s.logger.Warn("redis cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
