// Package permission decides whether a caller's roles grant a required
// permission.
//
// Role-to-permission sets live in the shared cache and are refreshed
// externally when role assignments change; this package only reads them.
// Patterns support a trailing wildcard at a segment boundary, so "user:*"
// grants every action under the user namespace.
package permission

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wardenhq/warden/pkg/cache"
	"github.com/wardenhq/warden/pkg/datascope"
)

// DefaultRootRole is the super-admin role code. Carriers bypass permission
// and data-scope checks entirely.
const DefaultRootRole = "ROOT"

// KeyPrefix locates role permission sets in the shared cache. The value
// under each key is a JSON array of permission patterns.
const KeyPrefix = "perms:role:"

// Resolver answers permission checks against the shared cache.
type Resolver struct {
	store    cache.Store
	rootRole string
}

// NewResolver creates a resolver. rootRole defaults to DefaultRootRole when
// empty.
func NewResolver(store cache.Store, rootRole string) *Resolver {
	if rootRole == "" {
		rootRole = DefaultRootRole
	}
	return &Resolver{store: store, rootRole: rootRole}
}

// RootRole returns the configured super-admin role code.
func (r *Resolver) RootRole() string {
	return r.rootRole
}

// IsRoot reports whether the role set contains the super-admin role.
func (r *Resolver) IsRoot(roleCodes []string) bool {
	for _, code := range roleCodes {
		if code == r.rootRole {
			return true
		}
	}
	return false
}

// EffectiveScope returns the data-scope level to enforce for the caller.
// Root carriers see every row regardless of their stored level.
func (r *Resolver) EffectiveScope(roleCodes []string, level datascope.Level) datascope.Level {
	if r.IsRoot(roleCodes) {
		return datascope.LevelAll
	}
	return level
}

// HasPermission reports whether any of the caller's roles grants required.
// The root role short-circuits to true without touching the cache. All other
// roles are fetched in a single multi-key round trip; roles with no cache
// entry contribute nothing, and an empty union denies.
func (r *Resolver) HasPermission(ctx context.Context, roleCodes []string, required string) (bool, error) {
	if required == "" || len(roleCodes) == 0 {
		return false, nil
	}
	if r.IsRoot(roleCodes) {
		return true, nil
	}

	keys := make([]string, len(roleCodes))
	for i, code := range roleCodes {
		keys[i] = KeyPrefix + code
	}

	values, err := r.store.MGet(ctx, keys...)
	if err != nil {
		return false, fmt.Errorf("fetch role permissions: %w", err)
	}

	for _, raw := range values {
		var patterns []string
		if err := json.Unmarshal([]byte(raw), &patterns); err != nil {
			// A corrupt entry grants nothing; same as a missing role.
			continue
		}
		for _, pattern := range patterns {
			if Match(pattern, required) {
				return true, nil
			}
		}
	}
	return false, nil
}

// Match reports whether pattern grants perm. A bare "*" grants everything;
// a pattern ending in ":*" grants any permission under that namespace;
// anything else must match exactly.
func Match(pattern, perm string) bool {
	if pattern == perm {
		return true
	}
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, ":*") {
		return strings.HasPrefix(perm, pattern[:len(pattern)-1])
	}
	return false
}
