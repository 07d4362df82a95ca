package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/spec-kit/trading-journal/internal/auth"
	"github.com/spec-kit/trading-journal/internal/service"
	apperrors "github.com/spec-kit/trading-journal/pkg/util/errorutil"
)

func scopeFrom(c *fiber.Ctx) (service.Scope, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return service.Scope{}, apperrors.NewUnauthorized("unauthorized", nil)
	}
	return service.ScopeFor(principal), nil
}

// param copies a route parameter out of fiber's request buffer, which is
// reused once the handler returns.
func param(c *fiber.Ctx, name string) string {
	return utils.CopyString(c.Params(name))
}

func parseTime(val string) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}
