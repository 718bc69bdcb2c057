package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists session permission snapshots in PostgreSQL. Snapshot rows
// are written once at login inside the login transaction and only ever
// deleted afterwards, never updated.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a snapshot store backed by the provided pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// LoadSnapshot returns the snapshot for a session, or nil when the session
// is unknown or expired. The session row carries the role captured at
// login; the pair rows carry the granted permissions.
func (s *Store) LoadSnapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	var role string
	err := s.pool.QueryRow(ctx,
		`SELECT role FROM sessions WHERE id = $1 AND expires_at > now()`,
		sessionID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("authz: load session: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT navigation_id, action_id FROM session_permissions WHERE session_id = $1`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("authz: load snapshot: %w", err)
	}
	defer rows.Close()

	var pairs []Pair
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.NavigationID, &p.ActionID); err != nil {
			return nil, fmt.Errorf("authz: scan snapshot row: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("authz: load snapshot: %w", err)
	}
	return NewSnapshot(sessionID, role, pairs), nil
}

// SaveSnapshot inserts the snapshot rows within the caller's transaction so
// session record and snapshot commit atomically.
func (s *Store) SaveSnapshot(ctx context.Context, tx pgx.Tx, snapshot *Snapshot) error {
	for _, p := range snapshot.Pairs() {
		if _, err := tx.Exec(ctx,
			`INSERT INTO session_permissions (session_id, navigation_id, action_id) VALUES ($1, $2, $3)`,
			snapshot.SessionID, p.NavigationID, p.ActionID); err != nil {
			return fmt.Errorf("authz: save snapshot: %w", err)
		}
	}
	return nil
}

// DeleteSnapshot removes all snapshot rows for a session (logout).
func (s *Store) DeleteSnapshot(ctx context.Context, sessionID string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM session_permissions WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("authz: delete snapshot: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired session records together with their
// snapshot rows and returns the number of sessions removed. Driven by the
// background worker.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM session_permissions sp
		 USING sessions s
		 WHERE sp.session_id = s.id AND s.expires_at < now()`); err != nil {
		return 0, fmt.Errorf("authz: purge expired snapshots: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("authz: purge expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ SnapshotSource = (*Store)(nil)
