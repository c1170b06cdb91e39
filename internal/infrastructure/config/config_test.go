package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 300*time.Millisecond, cfg.Search.Debounce)
	assert.Equal(t, "authenticated", cfg.JWT.Audience)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("SEARCH_DEBOUNCE", "150ms")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 150*time.Millisecond, cfg.Search.Debounce)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Redis.TTL)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown store", map[string]string{"STORE_DRIVER": "sqlite"}},
		{"default secret in production", map[string]string{"APP_ENVIRONMENT": "production"}},
		{"bad port", map[string]string{"SERVER_PORT": "70000"}},
		{"negative debounce", map[string]string{"SEARCH_DEBOUNCE": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDSNAndAddrs(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "todo", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=todo sslmode=disable", db.GetDSN())

	r := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", r.GetAddr())
}
