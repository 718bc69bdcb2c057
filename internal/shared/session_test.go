package shared

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/atlas-mdm/atlas-mdm/testing"
)

func testSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "atlas_session", "test-secret", time.Hour, false)
}

func TestSessionLifecycle(t *testing.T) {
	sm := testSessionManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(t.Context(), req)
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.NotEmpty(t, sess.ID)

	sess.SetUser("42")
	sess.Set("theme", "dark")

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(t.Context(), rec, req, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "atlas_session", cookies[0].Name)
	assert.Equal(t, sess.ID, cookies[0].Value)

	// Reload from the committed cookie.
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookies[0])
	reloaded, err := sm.Load(t.Context(), req2)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, reloaded.ID)
	assert.Equal(t, "42", reloaded.User())
	assert.Equal(t, "dark", reloaded.Get("theme"))
}

func TestSessionDestroy(t *testing.T) {
	sm := testSessionManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(t.Context(), req)
	require.NoError(t, err)
	sess.SetUser("42")

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(t.Context(), rec, req, sess))
	cookie := rec.Result().Cookies()[0]

	sm.Destroy(sess)
	rec2 := httptest.NewRecorder()
	require.NoError(t, sm.Commit(t.Context(), rec2, req, sess))
	expired := rec2.Result().Cookies()
	require.Len(t, expired, 1)
	assert.Negative(t, expired[0].MaxAge)

	// The stored payload is gone; the old cookie resolves to a fresh session.
	req3 := httptest.NewRequest(http.MethodGet, "/", nil)
	req3.AddCookie(cookie)
	fresh, err := sm.Load(t.Context(), req3)
	require.NoError(t, err)
	assert.Empty(t, fresh.User())
}

func TestCSRFTokenRoundTrip(t *testing.T) {
	manager := NewCSRFManager("csrf-secret")
	sess := &Session{ID: "sess-1"}

	token, err := manager.EnsureToken(t.Context(), sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, manager.VerifyToken(t.Context(), sess, token))
	assert.ErrorIs(t, manager.VerifyToken(t.Context(), sess, "forged"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, manager.VerifyToken(t.Context(), sess, ""), ErrCSRFTokenMissing)
}
