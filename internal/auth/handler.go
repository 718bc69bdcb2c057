package auth

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atlas-mdm/atlas-mdm/internal/platform/httpx"
	"github.com/atlas-mdm/atlas-mdm/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	audit          *shared.AuditLogger
	reauth         ReauthPolicy
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance. audit may be nil.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, audit *shared.AuditLogger, reauth ReauthPolicy) *Handler {
	if reauth == "" {
		reauth = ReauthInteractive
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		audit:          audit,
		reauth:         reauth,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/csrf", h.handleCSRFToken)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	if scheme := h.reauthScheme(); scheme != ReauthInteractive {
		// Reserved for a future non-interactive refresh flow.
		httpx.Problem(w, http.StatusNotImplemented, "Not Implemented", "")
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
		return
	}

	sess.SetUser(strconv.FormatInt(user.ID, 10))
	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Error("register session", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	h.recordAudit(r, user.ID, "auth.login", sess.ID)

	httpx.JSON(w, http.StatusOK, loginResponse{UserID: user.ID, Email: user.Email})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
		h.logger.Warn("remove session", slog.Any("error", err))
	}
	userID, _ := strconv.ParseInt(sess.User(), 10, 64)
	h.recordAudit(r, userID, "auth.logout", sess.ID)
	h.sessionManager.Destroy(sess)
	w.WriteHeader(http.StatusNoContent)
}

type csrfResponse struct {
	Token string `json:"csrf_token"`
}

func (h *Handler) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, csrfResponse{Token: token})
}

// reauthScheme is the decision point for routing sessions with expired
// credentials. Both configured policies currently resolve to the
// interactive scheme.
// TODO: differentiate the refresh flow once product defines expired-session handling.
func (h *Handler) reauthScheme() ReauthPolicy {
	if h.reauth == ReauthRefresh {
		return ReauthInteractive
	}
	return ReauthInteractive
}

func (h *Handler) recordAudit(r *http.Request, actorID int64, action, sessionID string) {
	if h.audit == nil {
		return
	}
	err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "session",
		EntityID: sessionID,
		Meta:     map[string]any{"ip": r.RemoteAddr},
		At:       time.Now().UTC(),
	})
	if err != nil {
		h.logger.Warn("record auth audit", slog.Any("error", err))
	}
}
