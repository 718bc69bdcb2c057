package authz

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/atlas-mdm/atlas-mdm/internal/platform/httpx"
	"github.com/atlas-mdm/atlas-mdm/internal/shared"
)

// NamedPolicies maps policy names that are not permission expressions to
// their middleware. This is the fallback path for ParsePolicy misses.
type NamedPolicies map[string]func(http.Handler) http.Handler

// Middleware guards HTTP routes with policy names. Permission expressions
// go through the Authorizer; anything else resolves against Named.
type Middleware struct {
	Authorizer *Authorizer
	Logger     *slog.Logger
	Named      NamedPolicies
	Audit      *shared.AuditLogger
}

// Require returns a middleware enforcing the given policy name. The policy
// is parsed once at route-registration time.
func (m Middleware) Require(policyName string) func(http.Handler) http.Handler {
	if req, ok := ParsePolicy(policyName); ok {
		return m.requirePermission(policyName, req)
	}
	if named, ok := m.Named[policyName]; ok {
		return named
	}
	// A policy nobody registered is a wiring bug. Deny everything rather
	// than let the route go unguarded.
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.Logger != nil {
				m.Logger.Error("unknown policy name", slog.String("policy", policyName))
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		})
	}
}

func (m Middleware) requirePermission(policyName string, req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := identityFromRequest(r)
			outcome := m.Authorizer.Authorize(r.Context(), ident, req)
			if outcome.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			m.recordDenial(r, ident, policyName, outcome)
			if outcome.Reason == DenyNoIdentity {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			// The specific reason stays server-side.
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		})
	}
}

func (m Middleware) recordDenial(r *http.Request, ident Identity, policyName string, outcome Outcome) {
	if m.Audit == nil {
		return
	}
	var actorID int64
	if ident.UserID != "" {
		actorID, _ = strconv.ParseInt(ident.UserID, 10, 64)
	}
	err := m.Audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   "authz.deny",
		Entity:   "policy",
		EntityID: policyName,
		Meta: map[string]any{
			"reason": string(outcome.Reason),
			"path":   r.URL.Path,
		},
		At: time.Now().UTC(),
	})
	if err != nil && m.Logger != nil {
		m.Logger.Warn("record authz denial", slog.Any("error", err))
	}
}

func identityFromRequest(r *http.Request) Identity {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		return Identity{}
	}
	return Identity{SessionID: sess.ID, UserID: sess.User()}
}
