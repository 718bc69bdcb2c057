// Package tenant carries the per-request tenant scope and the filter
// registrations that confine every tenant-scoped query to that scope.
package tenant

import (
	"context"

	"github.com/google/uuid"
)

// Context is the resolved tenant identity for one request or data-access
// session. It is a value type fixed at resolution time; an absent tenant
// means an unscoped, full-catalog view reserved for trusted system paths
// such as startup and migrations.
type Context struct {
	id     uuid.UUID
	scoped bool
}

// Scope returns a Context confined to the given tenant.
func Scope(id uuid.UUID) Context {
	return Context{id: id, scoped: true}
}

// Unscoped returns a Context with full-catalog visibility. Never bind it to
// a caller-facing session.
func Unscoped() Context {
	return Context{}
}

// Scoped reports whether a tenant is present.
func (c Context) Scoped() bool {
	return c.scoped
}

// TenantID returns the tenant identifier and whether one is present.
func (c Context) TenantID() (uuid.UUID, bool) {
	return c.id, c.scoped
}

type contextKey struct{}

// WithContext stores the tenant scope in ctx.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext extracts the tenant scope from ctx.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(contextKey{}).(Context)
	return tc, ok
}
