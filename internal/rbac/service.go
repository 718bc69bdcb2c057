package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-mdm/atlas-mdm/internal/authz"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// ErrDuplicateRole indicates a role name collision.
var ErrDuplicateRole = errors.New("rbac: role already exists")

// Service orchestrates role and permission-assignment operations. It is the
// write side of the permission model; the authorization path never reads
// these tables directly, only the snapshots taken from them at login.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs a Service backed by the provided pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	now := time.Now().UTC()
	role := Role{Name: name, Description: strings.TrimSpace(description), CreatedAt: now, UpdatedAt: now}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		role.Name, role.Description, now, now).Scan(&role.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Role{}, ErrDuplicateRole
		}
		return Role{}, err
	}
	return role, nil
}

// DeleteRole removes a role by ID. Returns ErrNotFound if nothing was deleted.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRolePermissions replaces the permission pairs granted to a role.
// Sessions issued before the change keep their snapshot; only logins after
// the change observe the new set.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, pairs []authz.Pair) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("rbac: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("rbac: clear role permissions: %w", err)
	}
	for _, p := range pairs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, navigation_id, action_id) VALUES ($1, $2, $3)`,
			roleID, p.NavigationID, p.ActionID); err != nil {
			return fmt.Errorf("rbac: grant pair: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// AssignRole assigns a role to the given user, replacing any previous role.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id, created_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET role_id = EXCLUDED.role_id, created_at = now()`,
		userID, roleID)
	return err
}

// EffectiveGrant returns the user's role and granted permission pairs as
// currently configured. The login flow snapshots this result; it is never
// consulted again for an existing session.
func (s *Service) EffectiveGrant(ctx context.Context, userID int64) (Grant, error) {
	var grant Grant
	err := s.pool.QueryRow(ctx,
		`SELECT r.name FROM roles r JOIN user_roles ur ON ur.role_id = r.id WHERE ur.user_id = $1`,
		userID).Scan(&grant.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grant{}, fmt.Errorf("%w: user %d has no role", ErrNotFound, userID)
		}
		return Grant{}, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT rp.navigation_id, rp.action_id
		 FROM role_permissions rp
		 JOIN user_roles ur ON ur.role_id = rp.role_id
		 WHERE ur.user_id = $1`,
		userID)
	if err != nil {
		return Grant{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var p authz.Pair
		if err := rows.Scan(&p.NavigationID, &p.ActionID); err != nil {
			return Grant{}, err
		}
		grant.Pairs = append(grant.Pairs, p)
	}
	return grant, rows.Err()
}
