package authz

import (
	"context"

	"github.com/google/uuid"
)

// Pair is one granted (navigation, action) combination in stable-id form.
type Pair struct {
	NavigationID uuid.UUID `json:"navigation_id"`
	ActionID     uuid.UUID `json:"action_id"`
}

// Snapshot is the point-in-time copy of a session's granted permission
// pairs, taken when the session is created. It is immutable: revoking a
// permission from a role does not shrink snapshots already issued, so a
// live session keeps its login-time grants until logout or expiry.
type Snapshot struct {
	SessionID string
	Role      string
	pairs     map[Pair]struct{}
}

// NewSnapshot builds an immutable snapshot from the granted pairs.
func NewSnapshot(sessionID, role string, pairs []Pair) *Snapshot {
	set := make(map[Pair]struct{}, len(pairs))
	for _, p := range pairs {
		set[p] = struct{}{}
	}
	return &Snapshot{SessionID: sessionID, Role: role, pairs: set}
}

// Grants reports whether the snapshot contains the given pair.
func (s *Snapshot) Grants(navigationID, actionID uuid.UUID) bool {
	if s == nil {
		return false
	}
	_, ok := s.pairs[Pair{NavigationID: navigationID, ActionID: actionID}]
	return ok
}

// Pairs returns a copy of the granted pairs.
func (s *Snapshot) Pairs() []Pair {
	if s == nil {
		return nil
	}
	out := make([]Pair, 0, len(s.pairs))
	for p := range s.pairs {
		out = append(out, p)
	}
	return out
}

// SnapshotSource loads the permission snapshot for a session.
// A nil snapshot with a nil error means the session is unknown or expired.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context, sessionID string) (*Snapshot, error)
}
