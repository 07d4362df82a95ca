package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/trading-journal/internal/config"
)

func TestPoolConfigPinsSessionSettings(t *testing.T) {
	cfg, err := poolConfig(config.PostgresConfig{
		DSN:             "postgres://journal:pw@localhost:5432/journal?sslmode=disable",
		MaxConns:        7,
		MinConns:        1,
		ConnMaxIdleSec:  45,
		ConnMaxLifeSec:  600,
		ApplicationName: "trading-journal",
	})
	require.NoError(t, err)

	assert.Equal(t, int32(7), cfg.MaxConns)
	assert.Equal(t, int32(1), cfg.MinConns)
	assert.Equal(t, 45*time.Second, cfg.MaxConnIdleTime)
	assert.Equal(t, 10*time.Minute, cfg.MaxConnLifetime)
	assert.Equal(t, "UTC", cfg.ConnConfig.RuntimeParams["timezone"])
	assert.Equal(t, "trading-journal", cfg.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfigKeepsDSNApplicationNameWhenUnset(t *testing.T) {
	cfg, err := poolConfig(config.PostgresConfig{DSN: "postgres://localhost/journal?application_name=batch"})
	require.NoError(t, err)
	assert.Equal(t, "batch", cfg.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfigRejectsBadDSN(t *testing.T) {
	_, err := poolConfig(config.PostgresConfig{DSN: "postgres://%zz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_DSN")
}
