package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/trading-journal/internal/config"
)

func TestMetricsCountersAndNilSafety(t *testing.T) {
	var nilMetrics *Metrics
	assert.NotPanics(t, func() {
		nilMetrics.RecordRequest("/x", "GET", 200, time.Millisecond)
		nilMetrics.RecordAuth("user")
		nilMetrics.RecordError("/x", "GET", "NOT_FOUND")
	})
	assert.Equal(t, Snapshot{}, nilMetrics.Snapshot())

	m := NewMetrics()
	m.RecordAuth("user")
	m.RecordAuth("user")
	m.RecordAuth("rejected:token expired")
	m.RecordError("/api/me", "GET", "UNAUTHORIZED")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Auth["user"])
	assert.Equal(t, int64(1), snap.Auth["rejected:token expired"])
	assert.Equal(t, int64(1), snap.Errors["/api/me|GET|UNAUTHORIZED"])

	snap.Auth["user"] = 99
	assert.Equal(t, int64(2), m.Snapshot().Auth["user"])
}

func TestRequestLoggerTagsRequests(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := NewMetrics()

	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), metrics))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		c.Locals(IdentityLocalKey, "ada@example.com")
		return c.SendStatus(http.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", resp.Header.Get("X-Request-ID"))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 2)
	fields := entries[1].ContextMap()
	assert.Equal(t, "fixed-id", fields["request_id"])
	assert.Equal(t, "ada@example.com", fields["identity"])
	assert.EqualValues(t, http.StatusNoContent, fields["status"])
	assert.Equal(t, int64(2), metrics.Snapshot().Requests["/whoami|GET|204"])
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "chatty"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}
