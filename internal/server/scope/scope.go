// Package scope carries the per-request tenant scope through the request
// context. The scope is set fresh on every request by the tenant-context
// middleware and passed explicitly into store calls; nothing is kept in
// connection-local state, so pooled connections cannot leak a tenant across
// requests.
package scope

import "context"

// Scope identifies the caller of one request. Every downstream data access
// is confined to TenantID.
type Scope struct {
	UserID   string
	TenantID string
	Email    string
	Role     string
}

type ctxKey struct{}

// WithScope returns a child context carrying s.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext extracts the request scope, if any.
func FromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(ctxKey{}).(Scope)
	return s, ok
}
