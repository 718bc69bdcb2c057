package authz

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-mdm/atlas-mdm/internal/registry"
	_ "github.com/atlas-mdm/atlas-mdm/testing"
)

type stubSource struct {
	snapshots map[string]*Snapshot
	err       error
}

func (s *stubSource) LoadSnapshot(_ context.Context, sessionID string) (*Snapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshots[sessionID], nil
}

func testRegistries(t *testing.T) (*registry.Registry[Navigation], *registry.Registry[Action]) {
	t.Helper()
	navs := registry.New[Navigation]()
	navMap := make(map[Navigation]uuid.UUID)
	for _, nav := range Navigations() {
		navMap[nav] = uuid.New()
	}
	require.NoError(t, navs.Initialize(navMap))

	actions := registry.New[Action]()
	actionMap := make(map[Action]uuid.UUID)
	for _, action := range Actions() {
		actionMap[action] = uuid.New()
	}
	require.NoError(t, actions.Initialize(actionMap))
	return navs, actions
}

func grantPair(t *testing.T, navs *registry.Registry[Navigation], actions *registry.Registry[Action], nav Navigation, action Action) Pair {
	t.Helper()
	navID, err := navs.Resolve(nav)
	require.NoError(t, err)
	actionID, err := actions.Resolve(action)
	require.NoError(t, err)
	return Pair{NavigationID: navID, ActionID: actionID}
}

func TestAuthorize(t *testing.T) {
	navs, actions := testRegistries(t)
	pair := grantPair(t, navs, actions, NavProducts, ActionView)
	source := &stubSource{snapshots: map[string]*Snapshot{
		"sess-1": NewSnapshot("sess-1", "viewer", []Pair{pair}),
	}}
	authorizer := NewAuthorizer(slog.Default(), source, navs, actions, nil)

	t.Run("granted pair allows", func(t *testing.T) {
		outcome := authorizer.Authorize(t.Context(), Identity{SessionID: "sess-1", UserID: "7"},
			Requirement{Navigation: NavProducts, Action: ActionView})
		assert.True(t, outcome.Allowed)
		assert.Equal(t, DenyNone, outcome.Reason)
	})

	t.Run("missing pair denies", func(t *testing.T) {
		outcome := authorizer.Authorize(t.Context(), Identity{SessionID: "sess-1", UserID: "7"},
			Requirement{Navigation: NavProducts, Action: ActionDelete})
		assert.False(t, outcome.Allowed)
		assert.Equal(t, DenyNotGranted, outcome.Reason)
	})

	t.Run("no identity denies", func(t *testing.T) {
		outcome := authorizer.Authorize(t.Context(), Identity{},
			Requirement{Navigation: NavProducts, Action: ActionView})
		assert.False(t, outcome.Allowed)
		assert.Equal(t, DenyNoIdentity, outcome.Reason)
	})

	t.Run("unknown session denies", func(t *testing.T) {
		outcome := authorizer.Authorize(t.Context(), Identity{SessionID: "sess-gone", UserID: "7"},
			Requirement{Navigation: NavProducts, Action: ActionView})
		assert.False(t, outcome.Allowed)
		assert.Equal(t, DenySessionNotFound, outcome.Reason)
	})
}

func TestAuthorizeSourceError(t *testing.T) {
	navs, actions := testRegistries(t)
	source := &stubSource{err: errors.New("storage down")}
	authorizer := NewAuthorizer(slog.Default(), source, navs, actions, nil)

	outcome := authorizer.Authorize(t.Context(), Identity{SessionID: "sess-1", UserID: "7"},
		Requirement{Navigation: NavProducts, Action: ActionView})
	assert.False(t, outcome.Allowed)
	assert.Equal(t, DenyError, outcome.Reason)
}

func TestAuthorizeUninitializedRegistryDenies(t *testing.T) {
	navs := registry.New[Navigation]()
	actions := registry.New[Action]()
	source := &stubSource{snapshots: map[string]*Snapshot{
		"sess-1": NewSnapshot("sess-1", "viewer", nil),
	}}
	authorizer := NewAuthorizer(slog.Default(), source, navs, actions, nil)

	outcome := authorizer.Authorize(t.Context(), Identity{SessionID: "sess-1", UserID: "7"},
		Requirement{Navigation: NavProducts, Action: ActionView})
	assert.False(t, outcome.Allowed)
	assert.Equal(t, DenyError, outcome.Reason)
}

// Permission changes after login must not affect an existing snapshot.
func TestSnapshotIsStableAfterGrantChanges(t *testing.T) {
	navs, actions := testRegistries(t)
	pair := grantPair(t, navs, actions, NavProducts, ActionView)
	source := &stubSource{snapshots: map[string]*Snapshot{
		"sess-1": NewSnapshot("sess-1", "viewer", []Pair{pair}),
	}}
	authorizer := NewAuthorizer(slog.Default(), source, navs, actions, nil)
	req := Requirement{Navigation: NavProducts, Action: ActionView}
	ident := Identity{SessionID: "sess-1", UserID: "7"}

	assert.True(t, authorizer.Authorize(t.Context(), ident, req).Allowed)

	// Role configuration changes land in new snapshots only. The session's
	// own snapshot keeps answering the same way until re-login replaces it.
	source.snapshots["sess-2"] = NewSnapshot("sess-2", "viewer", nil)
	assert.True(t, authorizer.Authorize(t.Context(), ident, req).Allowed)

	outcome := authorizer.Authorize(t.Context(), Identity{SessionID: "sess-2", UserID: "7"}, req)
	assert.False(t, outcome.Allowed)
	assert.Equal(t, DenyNotGranted, outcome.Reason)
}
