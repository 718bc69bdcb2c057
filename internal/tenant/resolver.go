package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUnknownUser indicates the user has no row to resolve a tenant from.
var ErrUnknownUser = errors.New("tenant: unknown user")

// Resolver resolves the tenant scope for an authenticated user. Supplied by
// the request bootstrap; the access-control core only consumes it.
type Resolver interface {
	ResolveTenant(ctx context.Context, userID int64) (Context, error)
}

// PGResolver resolves a user's tenant from the users table. A NULL
// tenant_id marks a system account and yields an unscoped Context.
type PGResolver struct {
	pool *pgxpool.Pool
}

// NewPGResolver constructs a resolver backed by the provided pool.
func NewPGResolver(pool *pgxpool.Pool) *PGResolver {
	return &PGResolver{pool: pool}
}

// ResolveTenant implements Resolver.
func (r *PGResolver) ResolveTenant(ctx context.Context, userID int64) (Context, error) {
	var tenantID *uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT tenant_id FROM users WHERE id = $1`, userID).Scan(&tenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Context{}, fmt.Errorf("%w: %d", ErrUnknownUser, userID)
		}
		return Context{}, fmt.Errorf("tenant: resolve: %w", err)
	}
	if tenantID == nil {
		return Unscoped(), nil
	}
	return Scope(*tenantID), nil
}

var _ Resolver = (*PGResolver)(nil)
