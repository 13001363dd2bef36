package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRedisPrefix namespaces keys when several tools share a database.
const DefaultRedisPrefix = "promptstruct:"

// RedisStorage implements Storage on plain Redis string keys.
type RedisStorage struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedis parses redisURL and creates the client. The connection is checked
// in Init.
func NewRedis(redisURL, prefix string, logger *zap.Logger) (*RedisStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	return &RedisStorage{
		client: redis.NewClient(opts),
		prefix: prefix,
		logger: logger,
	}, nil
}

// Init pings the server.
func (r *RedisStorage) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		r.logger.Warn("redis unreachable", zap.Error(err))
		return failure("ping", err)
	}
	return nil
}

// Get reads keys with a single MGET.
func (r *RedisStorage) Get(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	result := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.prefix + k
	}

	values, err := r.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		return nil, failure("mget", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		result[keys[i]] = json.RawMessage(s)
	}
	return result, nil
}

// Set writes all entries inside a MULTI/EXEC transaction.
func (r *RedisStorage) Set(ctx context.Context, entries map[string]json.RawMessage) error {
	if len(entries) == 0 {
		return nil
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range entries {
			pipe.Set(ctx, r.prefix+key, string(value), 0)
		}
		return nil
	})
	if err != nil {
		return failure("set", err)
	}
	return nil
}

// Close closes the client.
func (r *RedisStorage) Close() error {
	return r.client.Close()
}
