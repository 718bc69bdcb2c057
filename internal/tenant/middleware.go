package tenant

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/atlas-mdm/atlas-mdm/internal/shared"
)

// Middleware resolves the tenant scope once per request from the session
// identity and stores it in the request context. Requests without an
// authenticated user pass through with no tenant in context; protected
// routes reject those separately via the policy middleware. Sessions that
// resolve to a system account (no tenant) also pass through without a
// Context, so tenant-bound repositories refuse them.
func Middleware(logger *slog.Logger, resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.User() == "" {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := strconv.ParseInt(sess.User(), 10, 64)
			if err != nil {
				if logger != nil {
					logger.Error("tenant middleware: bad user id", slog.String("value", sess.User()))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			tc, err := resolver.ResolveTenant(r.Context(), userID)
			if err != nil {
				if logger != nil {
					logger.Error("tenant middleware: resolve", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !tc.Scoped() {
				// System accounts carry no tenant. An unscoped session must
				// never reach tenant-bound repositories, so no Context is
				// stored: tenant-scoped endpoints then fail closed while
				// administrative endpoints stay reachable. Unscoped access
				// is reserved for seed and migration paths that bind it
				// explicitly.
				if logger != nil {
					logger.Warn("tenant middleware: system account without tenant scope", slog.Int64("user_id", userID))
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
		})
	}
}
