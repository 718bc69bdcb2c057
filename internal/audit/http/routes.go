package audithttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/atlas-mdm/atlas-mdm/internal/authz"
	"github.com/atlas-mdm/atlas-mdm/internal/shared"
)

const rateLimit = 10
const rateWindow = time.Minute

// Guard wraps a route group with the authorization middleware for one
// navigation/action pair.
type Guard func(nav authz.Navigation, action authz.Action) func(http.Handler) http.Handler

// Mount registers the audit timeline and CSV export endpoints. Exports are
// rate limited per user to keep large scans off the hot path.
func (h *Handler) Mount(r chi.Router, guard Guard) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.With(guard(authz.NavAuditLog, authz.ActionView)).Get("/", h.handleTimeline)
	r.Group(func(gr chi.Router) {
		gr.Use(guard(authz.NavAuditLog, authz.ActionExport))
		gr.Use(limiter)
		gr.Get("/export.csv", h.handleExport)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if user := strings.TrimSpace(sess.User()); user != "" {
			return "user:" + user, nil
		}
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
