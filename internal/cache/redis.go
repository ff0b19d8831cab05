package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// Compile-time check: Redis implements ResponseCache.
var _ ResponseCache = (*Redis)(nil)

const redisKeyPrefix = "nutrichat:chat_cache:"

// Redis is a response cache backed by a Redis server, for deployments where
// replicas should share one cache. TTL enforcement is server-side (SET EX);
// capacity is governed by the server's maxmemory policy, not the FIFO cap of
// the memory driver.
type Redis struct {
	client rueidis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// RedisConfig holds connection parameters for the redis cache driver.
type RedisConfig struct {
	Addrs    []string
	Password string
	TTL      time.Duration
	Logger   *zap.Logger
}

// NewRedis creates a Redis-backed response cache.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Redis{client: client, ttl: cfg.TTL, logger: logger}, nil
}

// Get returns the cached response. Connection errors degrade to a miss.
func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	cmd := r.client.B().Get().Key(redisKeyPrefix + key).Build()
	val, err := r.client.Do(ctx, cmd).ToString()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			r.logger.Warn("Response cache get failed", zap.Error(err))
		}
		return "", false
	}
	return val, true
}

// Set stores the response with a server-side TTL. Errors are logged, not
// propagated: a failed cache write must not fail the chat request.
func (r *Redis) Set(ctx context.Context, key, response string) {
	cmd := r.client.B().Set().Key(redisKeyPrefix + key).Value(response).Ex(r.ttl).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		r.logger.Warn("Response cache set failed", zap.Error(err))
	}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	cmd := r.client.B().Ping().Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (r *Redis) Close() {
	r.client.Close()
}
