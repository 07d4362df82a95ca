package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/trading-journal/internal/observability"
	apperrors "github.com/spec-kit/trading-journal/pkg/util/errorutil"
)

const unauthorizedMessage = "unauthorized"

// TokenVerifier validates a bearer token for an audience.
type TokenVerifier interface {
	Verify(ctx context.Context, token, expectedAudience string) (*Claims, error)
}

// Headers is the read side of a request's header set. http.Header satisfies it.
type Headers interface {
	Get(key string) string
}

// GateConfig holds the credentials the gate accepts.
type GateConfig struct {
	Audience       string
	MachineHeader  string
	MachineSecret  string
	SystemIdentity string
}

// Gate resolves every protected request to a Principal.
type Gate struct {
	verifier TokenVerifier
	cfg      GateConfig
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewGate constructs the gate.
func NewGate(verifier TokenVerifier, cfg GateConfig, logger *zap.Logger, metrics *observability.Metrics) *Gate {
	if cfg.SystemIdentity == "" {
		cfg.SystemIdentity = "system"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{verifier: verifier, cfg: cfg, logger: logger, metrics: metrics}
}

// Resolve authenticates one request. The machine secret is checked first
// and never reaches the token verifier. A secret that does not match grants
// nothing; the request is then judged on its bearer token alone.
func (g *Gate) Resolve(ctx context.Context, headers Headers) (*Principal, error) {
	missing := ErrNoCredentials
	if g.cfg.MachineSecret != "" && g.cfg.MachineHeader != "" {
		if presented := headers.Get(g.cfg.MachineHeader); presented != "" {
			if subtle.ConstantTimeCompare([]byte(presented), []byte(g.cfg.MachineSecret)) == 1 {
				return &Principal{
					Identity:    g.cfg.SystemIdentity,
					DisplayName: g.cfg.SystemIdentity,
					Role:        RoleAdmin,
				}, nil
			}
			missing = ErrInvalidMachineSecret
		}
	}

	token, ok := bearerToken(headers.Get(fiber.HeaderAuthorization))
	if !ok {
		return nil, missing
	}
	claims, err := g.verifier.Verify(ctx, token, g.cfg.Audience)
	if err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, ErrMissingIdentity
	}
	return &Principal{
		Identity:    claims.Email,
		DisplayName: claims.Name,
		Role:        RoleUser,
	}, nil
}

// Handle is the fiber middleware for protected routes. Every failure is
// answered with the same 401 body.
func (g *Gate) Handle(c *fiber.Ctx) error {
	principal, err := g.Resolve(c.UserContext(), fiberHeaders{c: c})
	if err != nil {
		g.metrics.RecordAuth("rejected:" + rejectReason(err))
		g.logger.Info("authentication rejected",
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Error(err),
		)
		return apperrors.NewUnauthorized(unauthorizedMessage, err)
	}

	g.metrics.RecordAuth(string(principal.Role))
	c.Locals(principalKey, principal)
	c.Locals(observability.IdentityLocalKey, principal.Identity)
	return c.Next()
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func rejectReason(err error) string {
	for _, known := range []error{
		ErrNoCredentials,
		ErrInvalidMachineSecret,
		ErrMalformedToken,
		ErrInvalidAudience,
		ErrTokenExpired,
		ErrKeyNotFound,
		ErrInvalidSignature,
		ErrMissingIdentity,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "other"
}

type fiberHeaders struct {
	c *fiber.Ctx
}

func (h fiberHeaders) Get(key string) string {
	return h.c.Get(key)
}
