package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_AUDIENCE", "client-123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "client-123", cfg.Auth.Audience)
	assert.Equal(t, "https://www.googleapis.com/oauth2/v3/certs", cfg.Auth.JWKSURL)
	assert.Equal(t, "X-Machine-Secret", cfg.Auth.MachineHeader)
	assert.Equal(t, "system", cfg.Auth.SystemIdentity)
	assert.Equal(t, 5*time.Minute, cfg.Auth.KeyCacheTTL())
	assert.Equal(t, 5*time.Second, cfg.Auth.KeyFetchTimeout())
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_AUDIENCE", "client-123")
	t.Setenv("AUTH_MACHINE_SECRET", "s3cret")
	t.Setenv("AUTH_MACHINE_HEADER", "X-Api-Key")
	t.Setenv("AUTH_JWKS_CACHE_TTL_SECONDS", "0")
	t.Setenv("AUTH_JWKS_FETCH_TIMEOUT_SECONDS", "garbage")
	t.Setenv("AUTH_JWKS_REDIS_CACHE", "true")
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Auth.MachineSecret)
	assert.Equal(t, "X-Api-Key", cfg.Auth.MachineHeader)
	assert.Equal(t, time.Duration(0), cfg.Auth.KeyCacheTTL())
	assert.Equal(t, 5*time.Second, cfg.Auth.KeyFetchTimeout())
	assert.True(t, cfg.Auth.UseRedisKeyCache)
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
}

func TestLoadRequiresAudience(t *testing.T) {
	t.Setenv("AUTH_AUDIENCE", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_AUDIENCE")
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("AUTH_AUDIENCE", "client-123")
	t.Setenv("REDIS_DB", "one")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadStorageSettings(t *testing.T) {
	t.Setenv("AUTH_AUDIENCE", "client-123")
	t.Setenv("APP_NAME", "journal-eu")
	t.Setenv("REDIS_KEY_PREFIX", "tj-eu")
	t.Setenv("REDIS_TIMEOUT_MS", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "journal-eu", cfg.Postgres.ApplicationName)
	assert.Equal(t, "tj-eu", cfg.Redis.KeyPrefix)
	assert.Equal(t, 250*time.Millisecond, cfg.Redis.Timeout())
	assert.Equal(t, 500*time.Millisecond, RedisConfig{}.Timeout())
}
