// Package cache keeps per-owner task stats in Redis between mutations.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/infrastructure/config"
)

// StatsCache stores entities.TaskStats as JSON under prefix+"stats:"+owner.
type StatsCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewClient builds a Redis client from config.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.GetAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewStatsCache wraps client. A non-positive ttl keeps entries until invalidated.
func NewStatsCache(client *redis.Client, prefix string, ttl time.Duration) *StatsCache {
	if ttl < 0 {
		ttl = 0
	}
	return &StatsCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *StatsCache) key(ownerID uuid.UUID) string {
	return c.prefix + "stats:" + ownerID.String()
}

// GetStats returns the cached stats and whether there was a hit.
func (c *StatsCache) GetStats(ctx context.Context, ownerID uuid.UUID) (entities.TaskStats, bool, error) {
	data, err := c.client.Get(ctx, c.key(ownerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entities.TaskStats{}, false, nil
		}
		return entities.TaskStats{}, false, fmt.Errorf("cache get error: %w", err)
	}

	var stats entities.TaskStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return entities.TaskStats{}, false, fmt.Errorf("cache unmarshal error: %w", err)
	}

	return stats, true, nil
}

// SetStats stores stats with the configured TTL.
func (c *StatsCache) SetStats(ctx context.Context, ownerID uuid.UUID, stats entities.TaskStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if err := c.client.Set(ctx, c.key(ownerID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

// Invalidate drops the owner's entry.
func (c *StatsCache) Invalidate(ctx context.Context, ownerID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(ownerID)).Err(); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

// Ping checks if the Redis connection is healthy.
func (c *StatsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client connection.
func (c *StatsCache) Close() error {
	return c.client.Close()
}
