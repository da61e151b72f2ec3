package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/uniconhq/unicon-backend/pkg/logger"
)

// Store is the keyed cache every forum cache builds on. All failures
// degrade to a miss: the caller falls back to the database and the bad
// entry self-heals on the next populate.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// TTL reports the configured entry lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

// Get unmarshals the entry into dest and reports whether it was present.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) bool {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set stores the value with the store TTL. Errors are logged and dropped.
func (s *Store) Set(ctx context.Context, key string, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// GetMany returns the raw entries found for keys. Missing keys are simply
// absent from the result.
func (s *Store) GetMany(ctx context.Context, keys []string) map[string][]byte {
	found := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return found
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		logger.Warn("cache mget failed", zap.Int("keys", len(keys)), zap.Error(err))
		return found
	}
	for i, v := range vals {
		if v == nil {
			continue
		}
		if str, ok := v.(string); ok {
			found[keys[i]] = []byte(str)
		}
	}
	return found
}

// SetMany stores all entries with the store TTL in one pipeline.
func (s *Store) SetMany(ctx context.Context, entries map[string]interface{}) {
	if len(entries) == 0 {
		return
	}
	pipe := s.client.Pipeline()
	for key, value := range entries {
		payload, err := json.Marshal(value)
		if err != nil {
			logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
			continue
		}
		pipe.Set(ctx, key, payload, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("cache mset failed", zap.Int("keys", len(entries)), zap.Error(err))
	}
}

func (s *Store) Delete(ctx context.Context, key string) {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
