package tenant

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-mdm/atlas-mdm/internal/shared"
	_ "github.com/atlas-mdm/atlas-mdm/testing"
)

type stubResolver struct {
	tc  Context
	err error
}

func (r stubResolver) ResolveTenant(context.Context, int64) (Context, error) {
	return r.tc, r.err
}

func middlewareRequest(t *testing.T, resolver Resolver, userID string) (*httptest.ResponseRecorder, Context, bool) {
	t.Helper()

	var (
		captured Context
		present  bool
	)
	handler := Middleware(slog.New(slog.DiscardHandler), resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, present = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	if userID != "" {
		sess := &shared.Session{}
		sess.SetUser(userID)
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr, captured, present
}

func TestMiddlewareStoresScopedContext(t *testing.T) {
	id := uuid.New()
	rr, tc, present := middlewareRequest(t, stubResolver{tc: Scope(id)}, "42")

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, present)
	assert.True(t, tc.Scoped())
	got, ok := tc.TenantID()
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestMiddlewareWithholdsUnscopedContext(t *testing.T) {
	// A system account resolves without a tenant. The request proceeds but
	// carries no tenant context, so tenant-bound repositories refuse it
	// instead of running without a tenant predicate.
	rr, _, present := middlewareRequest(t, stubResolver{tc: Unscoped()}, "42")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, present)
}

func TestMiddlewarePassesAnonymousThrough(t *testing.T) {
	rr, _, present := middlewareRequest(t, stubResolver{tc: Scope(uuid.New())}, "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, present)
}

func TestMiddlewareRejectsResolverError(t *testing.T) {
	rr, _, present := middlewareRequest(t, stubResolver{err: errors.New("boom")}, "42")

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.False(t, present)
}

func TestMiddlewareRejectsMalformedUserID(t *testing.T) {
	rr, _, present := middlewareRequest(t, stubResolver{tc: Scope(uuid.New())}, "not-a-number")

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.False(t, present)
}
