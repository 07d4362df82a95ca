package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/trading-journal/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Role is the authorization level of a principal.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Principal is the authenticated caller for one request. It is built once by
// the gate and never modified afterwards.
type Principal struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

// IsAdmin reports whether the principal came in on the machine credential.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	principal, ok := c.Locals(principalKey).(*Principal)
	return principal, ok && principal != nil
}

// RequireAdmin ensures the caller authenticated with the machine credential.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("unauthorized", nil)
		}
		if !principal.IsAdmin() {
			return apperrors.NewForbidden("admin role required")
		}
		return c.Next()
	}
}

// RequireAnyRole ensures the caller is authenticated.
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("unauthorized", nil)
		}
		return c.Next()
	}
}
