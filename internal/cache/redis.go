package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"todolist/internal/config"
	"todolist/internal/metrics"
	"todolist/internal/models"
	"todolist/pkg/logger"
)

const ownerKeyPrefix = "todos:owner:"

var (
	client *redis.Client
	once   sync.Once
)

// Client returns the process-wide Redis client, built on first use from
// REDIS_URL. It is nil when the cache is disabled or Redis cannot be reached,
// and callers then read straight from the store.
func Client(ctx context.Context) *redis.Client {
	once.Do(func() {
		cfg := config.Get()
		if !cfg.CacheEnabled() {
			logger.Info(ctx, "Redis cache disabled (REDIS_URL not set)")
			return
		}
		c, err := NewClient(ctx, cfg.RedisURL, cfg.RedisPoolSize)
		if err != nil {
			logger.Error(ctx, "Redis unavailable; owner lists will not be cached", "error", err)
			return
		}
		client = c
	})
	return client
}

// NewClient parses url, applies the pool size and checks the server answers.
func NewClient(ctx context.Context, url string, poolSize int) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	if poolSize > 0 {
		opts.PoolSize = poolSize
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Addr, err)
	}
	logger.Info(ctx, "Redis client initialized", "addr", opts.Addr, "pool_size", opts.PoolSize)
	return c, nil
}

// OwnerCache caches each owner's visible todo list as JSON.
// Every failure is treated as a miss.
type OwnerCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewOwnerCache(rdb redis.Cmdable, ttl time.Duration) *OwnerCache {
	return &OwnerCache{rdb: rdb, ttl: ttl}
}

// OwnerKey returns the cache key for an owner's list.
func OwnerKey(ownerID string) string {
	return ownerKeyPrefix + ownerID
}

// GetOwnerTodos reads the owner's list. Returns (nil, false) on miss or error.
func (c *OwnerCache) GetOwnerTodos(ctx context.Context, ownerID string) ([]models.Todo, bool) {
	b, err := c.rdb.Get(ctx, OwnerKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		logger.Debug(ctx, "Redis get todos failed", "error", err, "owner_id", ownerID)
		return nil, false
	}
	var todos []models.Todo
	if err := json.Unmarshal(b, &todos); err != nil {
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		logger.Debug(ctx, "Redis unmarshal todos failed", "error", err)
		return nil, false
	}
	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return todos, true
}

// SetOwnerTodos writes the owner's list with the configured TTL.
func (c *OwnerCache) SetOwnerTodos(ctx context.Context, ownerID string, todos []models.Todo) {
	b, err := json.Marshal(todos)
	if err != nil {
		logger.Debug(ctx, "Marshal todos for cache failed", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, OwnerKey(ownerID), b, c.ttl).Err(); err != nil {
		logger.Debug(ctx, "Redis set todos failed", "error", err, "owner_id", ownerID)
	}
}

// InvalidateOwner deletes the owner's cached list so the next read goes to the store.
func (c *OwnerCache) InvalidateOwner(ctx context.Context, ownerID string) {
	if err := c.rdb.Del(ctx, OwnerKey(ownerID)).Err(); err != nil {
		logger.Debug(ctx, "Redis invalidate todos failed", "error", err, "owner_id", ownerID)
	}
}

// Ping checks the connection.
func (c *OwnerCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
