// Package auth defines the calling principal model and the access guard that
// gates administrative operations.
package auth

import (
	"context"
	"strings"
)

// ScopeAdmin marks an API key as carrying administrator rights.
const ScopeAdmin = "admin"

// Principal is the authenticated identity behind a request.
type Principal struct {
	ID string
	// OwnerID ties the principal to the customer account that owns orders.
	OwnerID string
	Email   string
	Name    string
	Scopes  []string
}

// HasScope reports whether the principal carries the given scope.
func (p Principal) HasScope(scope string) bool {
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	OwnerID string
	Email   string
	Name    string
	Scopes  []string
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// AccessGuard decides whether a principal holds administrator rights.
type AccessGuard interface {
	IsAdmin(ctx context.Context, p Principal) bool
}

// Guard implements AccessGuard by composing a static email allow-list with
// the persisted admin scope on the principal's API key. Either grants access.
type Guard struct {
	allowlist map[string]struct{}
}

// NewGuard builds a Guard from the configured admin email allow-list.
// Matching is case-insensitive.
func NewGuard(adminEmails []string) *Guard {
	allow := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			allow[e] = struct{}{}
		}
	}
	return &Guard{allowlist: allow}
}

// IsAdmin reports whether p is an administrator.
func (g *Guard) IsAdmin(_ context.Context, p Principal) bool {
	if p.HasScope(ScopeAdmin) {
		return true
	}
	_, ok := g.allowlist[strings.ToLower(p.Email)]
	return ok
}

type principalKey struct{}

// WithPrincipal stores the authenticated principal in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
