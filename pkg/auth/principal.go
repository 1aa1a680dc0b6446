package auth

import (
	"context"
	"strings"

	"github.com/wardenhq/warden/pkg/contextkeys"
	"github.com/wardenhq/warden/pkg/datascope"
)

// RoleMarker prefixes role codes inside the authorities claim so roles are
// distinguishable from other granted authority kinds.
const RoleMarker = "ROLE_"

// Principal is the authenticated caller's identity, derived from a validated
// token. It is immutable for the lifetime of the request and carried in the
// request context.
type Principal struct {
	UserID    int64
	Username  string
	DeptID    int64
	DataScope datascope.Level
	RoleCodes []string
}

// HasRole reports whether the principal carries the given role code.
func (p *Principal) HasRole(code string) bool {
	for _, c := range p.RoleCodes {
		if c == code {
			return true
		}
	}
	return false
}

// Authorities returns the principal's role codes with the role marker
// prefix, as embedded in token claims.
func (p *Principal) Authorities() []string {
	out := make([]string, len(p.RoleCodes))
	for i, c := range p.RoleCodes {
		out[i] = RoleMarker + c
	}
	return out
}

// rolesFromAuthorities strips the role marker from claim authorities.
// Entries without the marker are ignored.
func rolesFromAuthorities(authorities []string) []string {
	var roles []string
	for _, a := range authorities {
		if strings.HasPrefix(a, RoleMarker) {
			roles = append(roles, strings.TrimPrefix(a, RoleMarker))
		}
	}
	return roles
}

// WithPrincipal stores the principal in the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return contextkeys.WithPrincipal(ctx, p)
}

// FromContext extracts the authenticated principal from the context.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextkeys.PrincipalKey).(*Principal)
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}
