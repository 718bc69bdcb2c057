package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/atlas-mdm/atlas-mdm/internal/authz"
	"github.com/atlas-mdm/atlas-mdm/internal/platform/db"
	"github.com/atlas-mdm/atlas-mdm/internal/rbac"
	"github.com/atlas-mdm/atlas-mdm/internal/shared"
)

// GrantSource supplies a user's currently configured permissions. The login
// flow snapshots the result; later permission changes do not touch sessions
// already issued.
type GrantSource interface {
	EffectiveGrant(ctx context.Context, userID int64) (rbac.Grant, error)
}

// SnapshotWriter persists and removes session permission snapshots.
type SnapshotWriter interface {
	SaveSnapshot(ctx context.Context, tx pgx.Tx, snapshot *authz.Snapshot) error
	DeleteSnapshot(ctx context.Context, sessionID string) error
}

// SnapshotInvalidator drops cached snapshot copies on logout.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, sessionID string) error
}

// Service wraps authentication business rules.
type Service struct {
	pool      *pgxpool.Pool
	repo      Repository
	grants    GrantSource
	snapshots SnapshotWriter
	cache     SnapshotInvalidator
}

// NewService constructs a new Service. cache may be nil.
func NewService(pool *pgxpool.Pool, repo Repository, grants GrantSource, snapshots SnapshotWriter, cache SnapshotInvalidator) *Service {
	return &Service{pool: pool, repo: repo, grants: grants, snapshots: snapshots, cache: cache}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession persists the session record together with the permission
// snapshot taken from the user's current grants. Both commit atomically, so
// a session never exists without its snapshot.
func (s *Service) RegisterSession(ctx context.Context, sessionID string, user *User, expiresAt time.Time, ip, ua string) error {
	grant, err := s.grants.EffectiveGrant(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("auth: load grants: %w", err)
	}
	snapshot := authz.NewSnapshot(sessionID, grant.Role, grant.Pairs)
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.repo.CreateSession(ctx, tx, sessionID, user.ID, grant.Role, expiresAt, ip, ua); err != nil {
			return fmt.Errorf("auth: create session: %w", err)
		}
		if err := s.snapshots.SaveSnapshot(ctx, tx, snapshot); err != nil {
			return err
		}
		return nil
	})
}

// RemoveSession deletes the session record, its snapshot and any cached
// snapshot copy.
func (s *Service) RemoveSession(ctx context.Context, sessionID string) error {
	if err := s.snapshots.DeleteSnapshot(ctx, sessionID); err != nil {
		return err
	}
	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, sessionID); err != nil {
			return err
		}
	}
	return nil
}
