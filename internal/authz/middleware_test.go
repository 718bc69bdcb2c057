package authz

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-mdm/atlas-mdm/internal/shared"
	_ "github.com/atlas-mdm/atlas-mdm/testing"
)

func middlewareFixture(t *testing.T) Middleware {
	t.Helper()
	navs, actions := testRegistries(t)
	pair := grantPair(t, navs, actions, NavProducts, ActionView)
	source := &stubSource{snapshots: map[string]*Snapshot{
		"sess-1": NewSnapshot("sess-1", "viewer", []Pair{pair}),
	}}
	return Middleware{
		Authorizer: NewAuthorizer(slog.Default(), source, navs, actions, nil),
		Logger:     slog.Default(),
	}
}

func doRequest(t *testing.T, mw func(http.Handler) http.Handler, sess *shared.Session) *httptest.ResponseRecorder {
	t.Helper()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	if sess != nil {
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func sessionFor(id, user string) *shared.Session {
	sess := &shared.Session{ID: id}
	sess.SetUser(user)
	return sess
}

func TestRequirePermission(t *testing.T) {
	mw := middlewareFixture(t)
	policy := Requirement{Navigation: NavProducts, Action: ActionView}.PolicyName()

	t.Run("granted", func(t *testing.T) {
		rec := doRequest(t, mw.Require(policy), sessionFor("sess-1", "7"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("anonymous gets 401", func(t *testing.T) {
		rec := doRequest(t, mw.Require(policy), nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown session gets 403", func(t *testing.T) {
		rec := doRequest(t, mw.Require(policy), sessionFor("sess-gone", "7"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing grant gets 403 without detail", func(t *testing.T) {
		deny := Requirement{Navigation: NavProducts, Action: ActionDelete}.PolicyName()
		rec := doRequest(t, mw.Require(deny), sessionFor("sess-1", "7"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.NotContains(t, rec.Body.String(), "not_granted")
	})
}

func TestRequireNamedPolicy(t *testing.T) {
	mw := middlewareFixture(t)
	called := false
	mw.Named = NamedPolicies{
		"AllowAll": func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				next.ServeHTTP(w, r)
			})
		},
	}

	rec := doRequest(t, mw.Require("AllowAll"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestRequireUnknownPolicyDeniesAll(t *testing.T) {
	mw := middlewareFixture(t)

	rec := doRequest(t, mw.Require("NoSuchPolicy"), sessionFor("sess-1", "7"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
