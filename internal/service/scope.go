package service

import (
	"github.com/google/uuid"

	"github.com/spec-kit/trading-journal/internal/auth"
	"github.com/spec-kit/trading-journal/internal/events"
)

// Scope is the slice of storage a principal may touch. Services never take
// an owner from anywhere else.
type Scope struct {
	Owner string
	Role  auth.Role
}

// ScopeFor derives the storage scope of a principal. An admin principal is
// scoped to its system identity; routes that let it act for someone else
// say so explicitly.
func ScopeFor(p *auth.Principal) Scope {
	return Scope{Owner: p.Identity, Role: p.Role}
}

// IsAdmin reports whether the scope came from the machine credential.
func (s Scope) IsAdmin() bool {
	return s.Role == auth.RoleAdmin
}

func (s Scope) actor() events.Actor {
	return events.Actor{Identity: s.Owner, Role: string(s.Role)}
}

// normalizeID returns the canonical form of id, or false when it could not
// name a stored row. Malformed ids are handled exactly like ids that match
// nothing.
func normalizeID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}
