package authz

import (
	"context"
	"log/slog"

	"github.com/atlas-mdm/atlas-mdm/internal/registry"
)

// DenyReason is the closed set of server-side denial causes. It is logged
// and measured, never returned to the caller.
type DenyReason string

const (
	DenyNone            DenyReason = ""
	DenyNoIdentity      DenyReason = "no_identity"
	DenySessionNotFound DenyReason = "session_not_found"
	DenyNotGranted      DenyReason = "not_granted"
	DenyError           DenyReason = "error"
)

// Outcome is the terminal result of a single authorization evaluation.
type Outcome struct {
	Allowed bool
	Reason  DenyReason
}

var allow = Outcome{Allowed: true}

func deny(reason DenyReason) Outcome {
	return Outcome{Reason: reason}
}

// Identity describes the authenticated caller, as resolved by the request
// pipeline before authorization runs.
type Identity struct {
	SessionID string
	UserID    string
}

// DecisionRecorder receives one call per evaluated requirement.
type DecisionRecorder interface {
	RecordAuthzDecision(allowed bool, reason string)
}

// Authorizer evaluates permission requirements against session snapshots.
// It is fail-closed: no error ever escapes to the caller, every failure
// surfaces as a generic denial while the cause goes to the log.
type Authorizer struct {
	logger      *slog.Logger
	source      SnapshotSource
	navigations *registry.Registry[Navigation]
	actions     *registry.Registry[Action]
	metrics     DecisionRecorder
}

// NewAuthorizer constructs an Authorizer. metrics may be nil.
func NewAuthorizer(logger *slog.Logger, source SnapshotSource, navigations *registry.Registry[Navigation], actions *registry.Registry[Action], metrics DecisionRecorder) *Authorizer {
	return &Authorizer{
		logger:      logger,
		source:      source,
		navigations: navigations,
		actions:     actions,
		metrics:     metrics,
	}
}

// Authorize evaluates one requirement for one caller and returns Allow or
// Deny. The context carries the request's cancellation signal; a cancelled
// or timed-out snapshot lookup resolves to Deny rather than blocking.
func (a *Authorizer) Authorize(ctx context.Context, ident Identity, req Requirement) Outcome {
	outcome := a.evaluate(ctx, ident, req)
	if a.metrics != nil {
		a.metrics.RecordAuthzDecision(outcome.Allowed, string(outcome.Reason))
	}
	return outcome
}

func (a *Authorizer) evaluate(ctx context.Context, ident Identity, req Requirement) Outcome {
	if ident.SessionID == "" {
		a.log(ctx, req, DenyNoIdentity, nil)
		return deny(DenyNoIdentity)
	}

	snapshot, err := a.source.LoadSnapshot(ctx, ident.SessionID)
	if err != nil {
		a.log(ctx, req, DenyError, err)
		return deny(DenyError)
	}
	if snapshot == nil {
		a.log(ctx, req, DenySessionNotFound, nil)
		return deny(DenySessionNotFound)
	}

	navID, err := a.navigations.Resolve(req.Navigation)
	if err != nil {
		a.log(ctx, req, DenyError, err)
		return deny(DenyError)
	}
	actionID, err := a.actions.Resolve(req.Action)
	if err != nil {
		a.log(ctx, req, DenyError, err)
		return deny(DenyError)
	}

	if !snapshot.Grants(navID, actionID) {
		a.log(ctx, req, DenyNotGranted, nil)
		return deny(DenyNotGranted)
	}
	return allow
}

func (a *Authorizer) log(ctx context.Context, req Requirement, reason DenyReason, err error) {
	if a.logger == nil {
		return
	}
	attrs := []any{
		slog.String("navigation", string(req.Navigation)),
		slog.String("action", string(req.Action)),
		slog.String("reason", string(reason)),
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
		a.logger.ErrorContext(ctx, "authorization failed", attrs...)
		return
	}
	a.logger.WarnContext(ctx, "authorization denied", attrs...)
}
