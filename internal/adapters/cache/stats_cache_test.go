package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/todo/internal/domain/entities"
)

// requires Redis; set TEST_REDIS_ADDR to point elsewhere than localhost:6379
func setupStatsCache(t *testing.T) *StatsCache {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available at %s: %v", addr, err)
	}

	c := NewStatsCache(client, "todo-test:"+uuid.NewString()+":", time.Minute)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestStatsCache_Key(t *testing.T) {
	owner := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	c := NewStatsCache(redis.NewClient(&redis.Options{}), "todo:", time.Minute)
	defer c.Close()

	assert.Equal(t, "todo:stats:6ba7b810-9dad-11d1-80b4-00c04fd430c8", c.key(owner))
}

func TestStatsCache_NegativeTTL(t *testing.T) {
	c := NewStatsCache(redis.NewClient(&redis.Options{}), "todo:", -time.Second)
	defer c.Close()

	assert.Zero(t, c.ttl)
}

func TestStatsCache_RoundTrip(t *testing.T) {
	c := setupStatsCache(t)
	ctx := context.Background()
	owner := uuid.New()

	_, ok, err := c.GetStats(ctx, owner)
	require.NoError(t, err)
	assert.False(t, ok)

	want := entities.TaskStats{Total: 3, Pending: 2, Completed: 1, Deleted: 4}
	require.NoError(t, c.SetStats(ctx, owner, want))

	got, ok, err := c.GetStats(ctx, owner)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	_, ok, err = c.GetStats(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok, "entries are per owner")

	require.NoError(t, c.Invalidate(ctx, owner))
	_, ok, err = c.GetStats(ctx, owner)
	require.NoError(t, err)
	assert.False(t, ok)
}
