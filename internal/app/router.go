package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/atlas-mdm/atlas-mdm/internal/audit/http"
	"github.com/atlas-mdm/atlas-mdm/internal/auth"
	"github.com/atlas-mdm/atlas-mdm/internal/authz"
	"github.com/atlas-mdm/atlas-mdm/internal/masterdata"
	"github.com/atlas-mdm/atlas-mdm/internal/observability"
	"github.com/atlas-mdm/atlas-mdm/internal/rbac"
	"github.com/atlas-mdm/atlas-mdm/internal/shared"
	"github.com/atlas-mdm/atlas-mdm/internal/tenant"
	"github.com/atlas-mdm/atlas-mdm/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	TenantResolver tenant.Resolver

	Policies authz.Middleware

	AuthHandler       *auth.Handler
	RBACHandler       *rbac.Handler
	UsersHandler      *users.Handler
	MasterDataHandler *masterdata.Handler
	AuditHandler      *audithttp.Handler

	Metrics *observability.Metrics
}

// guardFor adapts the policy middleware to the per-module Guard shape. The
// policy name is assembled once, at route-registration time.
func guardFor(policies authz.Middleware) func(nav authz.Navigation, action authz.Action) func(http.Handler) http.Handler {
	return func(nav authz.Navigation, action authz.Action) func(http.Handler) http.Handler {
		return policies.Require(authz.Requirement{Navigation: nav, Action: action}.PolicyName())
	}
}

// NewRouter constructs the chi.Router with Atlas defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		TenantResolver: params.TenantResolver,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	guard := guardFor(params.Policies)

	r.Route("/auth", params.AuthHandler.MountRoutes)

	if params.MasterDataHandler != nil {
		r.Route("/masterdata", func(r chi.Router) {
			params.MasterDataHandler.Mount(r, guard)
		})
	}
	if params.UsersHandler != nil {
		r.Route("/users", func(r chi.Router) {
			params.UsersHandler.Mount(r, guard)
		})
	}
	if params.RBACHandler != nil {
		r.Route("/rbac", func(r chi.Router) {
			params.RBACHandler.Mount(r, guard)
		})
	}
	if params.AuditHandler != nil {
		r.Route("/audit", func(r chi.Router) {
			params.AuditHandler.Mount(r, guard)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
