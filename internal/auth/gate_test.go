package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/trading-journal/internal/observability"
	apperrors "github.com/spec-kit/trading-journal/pkg/util/errorutil"
)

type stubVerifier struct {
	claims *Claims
	err    error
	calls  int
	aud    string
}

func (s *stubVerifier) Verify(_ context.Context, _ string, aud string) (*Claims, error) {
	s.calls++
	s.aud = aud
	return s.claims, s.err
}

func testGateConfig() GateConfig {
	return GateConfig{
		Audience:       testAudience,
		MachineHeader:  "X-Machine-Secret",
		MachineSecret:  "correct-horse-battery-staple",
		SystemIdentity: "system",
	}
}

func TestGateMachineSecretGrantsAdmin(t *testing.T) {
	v := &stubVerifier{err: errors.New("must not be called")}
	g := NewGate(v, testGateConfig(), nil, nil)

	h := http.Header{}
	h.Set("X-Machine-Secret", "correct-horse-battery-staple")
	h.Set("Authorization", "Bearer whatever")

	p, err := g.Resolve(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, &Principal{Identity: "system", DisplayName: "system", Role: RoleAdmin}, p)
	assert.True(t, p.IsAdmin())
	assert.Zero(t, v.calls)
}

func TestGateMachineSecretNeverTouchesKeyEndpoint(t *testing.T) {
	a, _ := testKeys(t)
	srv := newJWKSServer(t, jwkFor("key-a", &a.PublicKey))
	g := NewGate(NewVerifier(NewKeyResolver(KeyResolverConfig{URL: srv.URL}, nil)), testGateConfig(), nil, nil)

	h := http.Header{}
	h.Set("X-Machine-Secret", "correct-horse-battery-staple")
	p, err := g.Resolve(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, p.Role)
	assert.Equal(t, int32(0), srv.hits.Load())
}

func TestGateRejectsWrongMachineSecret(t *testing.T) {
	v := &stubVerifier{claims: &Claims{Email: "ada@example.com"}}
	g := NewGate(v, testGateConfig(), nil, nil)

	for _, secret := range []string{"correct-horse-battery", "correct-horse-battery-staple ", "CORRECT-HORSE-BATTERY-STAPLE"} {
		h := http.Header{}
		h.Set("X-Machine-Secret", secret)
		_, err := g.Resolve(context.Background(), h)
		assert.ErrorIs(t, err, ErrInvalidMachineSecret, secret)
	}
	assert.Zero(t, v.calls)
}

func TestGateWrongMachineSecretFallsBackToBearer(t *testing.T) {
	v := &stubVerifier{claims: &Claims{Email: "ada@example.com", Name: "Ada"}}
	g := NewGate(v, testGateConfig(), nil, nil)

	h := http.Header{}
	h.Set("X-Machine-Secret", "not-the-secret")
	h.Set("Authorization", "Bearer token")
	p, err := g.Resolve(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, &Principal{Identity: "ada@example.com", DisplayName: "Ada", Role: RoleUser}, p)
	assert.Equal(t, 1, v.calls)

	v.err = ErrTokenExpired
	_, err = g.Resolve(context.Background(), h)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestGateMachinePathDisabledWithoutSecret(t *testing.T) {
	cfg := testGateConfig()
	cfg.MachineSecret = ""
	v := &stubVerifier{claims: &Claims{Email: "ada@example.com", Name: "Ada"}}
	g := NewGate(v, cfg, nil, nil)

	h := http.Header{}
	h.Set("X-Machine-Secret", "")
	_, err := g.Resolve(context.Background(), h)
	assert.ErrorIs(t, err, ErrNoCredentials)

	h.Set("X-Machine-Secret", "anything")
	h.Set("Authorization", "Bearer token")
	p, err := g.Resolve(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, RoleUser, p.Role)
}

func TestGateBearerTokenGrantsUser(t *testing.T) {
	v := &stubVerifier{claims: &Claims{Email: "ada@example.com", Name: "Ada Lovelace"}}
	g := NewGate(v, testGateConfig(), nil, nil)

	for _, header := range []string{"Bearer tok", "bearer tok", "BEARER   tok"} {
		h := http.Header{}
		h.Set("Authorization", header)
		p, err := g.Resolve(context.Background(), h)
		require.NoError(t, err, header)
		assert.Equal(t, &Principal{Identity: "ada@example.com", DisplayName: "Ada Lovelace", Role: RoleUser}, p)
	}
	assert.Equal(t, testAudience, v.aud)
}

func TestGateRejectsMissingCredentials(t *testing.T) {
	g := NewGate(&stubVerifier{}, testGateConfig(), nil, nil)

	for _, header := range []string{"", "Bearer", "Bearer ", "Basic dXNlcjpwYXNz", "tok"} {
		h := http.Header{}
		if header != "" {
			h.Set("Authorization", header)
		}
		_, err := g.Resolve(context.Background(), h)
		assert.ErrorIs(t, err, ErrNoCredentials, header)
	}
}

func TestGateRejectsTokenWithoutEmail(t *testing.T) {
	g := NewGate(&stubVerifier{claims: &Claims{Name: "No Mail"}}, testGateConfig(), nil, nil)
	h := http.Header{}
	h.Set("Authorization", "Bearer tok")
	_, err := g.Resolve(context.Background(), h)
	assert.ErrorIs(t, err, ErrMissingIdentity)
}

func newGateApp(g *Gate) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code, "message": de.Message}})
		},
	})
	app.Get("/me", g.Handle, func(c *fiber.Ctx) error {
		p, ok := PrincipalFromContext(c)
		if !ok {
			return errors.New("principal missing")
		}
		return c.JSON(p)
	})
	app.Get("/admin", g.Handle, RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func TestGateHandleUniformRejection(t *testing.T) {
	a, b := testKeys(t)
	srv := newJWKSServer(t, jwkFor("key-a", &a.PublicKey))
	metrics := observability.NewMetrics()
	g := NewGate(NewVerifier(NewKeyResolver(KeyResolverConfig{URL: srv.URL, CacheTTL: time.Minute}, nil)), testGateConfig(), nil, metrics)
	app := newGateApp(g)

	expired := validClaims(testAudience)
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	tokens := map[string]string{
		"malformed":     "Bearer abc.def",
		"audience":      "Bearer " + mintToken(t, a, "key-a", validClaims("someone-else")),
		"expired":       "Bearer " + mintToken(t, a, "key-a", expired),
		"unknown kid":   "Bearer " + mintToken(t, a, "key-x", validClaims(testAudience)),
		"bad signature": "Bearer " + mintToken(t, b, "key-a", validClaims(testAudience)),
		"none":          "",
	}

	var bodies []string
	for name, header := range tokens {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err, name)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, name)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		bodies = append(bodies, string(body))
	}
	for _, body := range bodies {
		assert.JSONEq(t, `{"error":{"code":"UNAUTHORIZED","message":"unauthorized"}}`, body)
	}

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Auth["rejected:token expired"])
	assert.Equal(t, int64(1), snap.Auth["rejected:invalid signature"])
	assert.Equal(t, int64(1), snap.Auth["rejected:no credentials presented"])
}

func TestGateHandleStoresPrincipal(t *testing.T) {
	a, _ := testKeys(t)
	srv := newJWKSServer(t, jwkFor("key-a", &a.PublicKey))
	g := NewGate(NewVerifier(NewKeyResolver(KeyResolverConfig{URL: srv.URL}, nil)), testGateConfig(), nil, nil)
	app := newGateApp(g)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, a, "key-a", validClaims(testAudience)))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"identity":"ada@example.com","display_name":"Ada Lovelace","role":"user"}`, string(body))

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, a, "key-a", validClaims(testAudience)))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Machine-Secret", "correct-horse-battery-staple")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
