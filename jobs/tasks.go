package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/atlas-mdm/atlas-mdm/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsPurge removes expired sessions and their permission snapshots.
	TaskSessionsPurge = "sessions:purge"
	// TaskPermissionsSync reconciles the permission catalog with the code enums.
	TaskPermissionsSync = "permissions:sync"
)

// SessionsPurgePayload carries scheduling metadata for the purge run.
type SessionsPurgePayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewSessionsPurgeTask constructs an Asynq task for session purging.
func NewSessionsPurgeTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(SessionsPurgePayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionsPurge, body, asynq.Queue(QueueDefault)), nil
}

// SessionPurger removes expired sessions and their snapshots.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// NewSessionsPurgeHandler returns the handler for TaskSessionsPurge.
func NewSessionsPurgeHandler(logger *slog.Logger, purger SessionPurger) asynq.HandlerFunc {
	metrics := jobmetrics.NewMetrics(nil)
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SessionsPurgePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track(TaskSessionsPurge)
		removed, err := purger.PurgeExpired(ctx)
		if err = tracker.End(err); err != nil {
			logger.Error("sessions purge failed", slog.Any("error", err))
			return err
		}
		logger.Info("sessions purged",
			slog.Int64("removed", removed),
			slog.Time("scheduled_for", payload.ScheduledFor))
		return nil
	}
}

// PermissionsSyncPayload carries scheduling metadata for the catalog sync.
type PermissionsSyncPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewPermissionsSyncTask constructs an Asynq task for catalog reconciliation.
func NewPermissionsSyncTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(PermissionsSyncPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPermissionsSync, body, asynq.Queue(QueueDefault)), nil
}

// CatalogSyncer inserts catalog rows for enum keys that lack one.
type CatalogSyncer func(ctx context.Context) (int64, error)

// NewPermissionsSyncHandler returns the handler for TaskPermissionsSync.
func NewPermissionsSyncHandler(logger *slog.Logger, sync CatalogSyncer) asynq.HandlerFunc {
	metrics := jobmetrics.NewMetrics(nil)
	return func(ctx context.Context, t *asynq.Task) error {
		var payload PermissionsSyncPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track(TaskPermissionsSync)
		created, err := sync(ctx)
		if err = tracker.End(err); err != nil {
			logger.Error("permissions sync failed", slog.Any("error", err))
			return err
		}
		logger.Info("permission catalog synced",
			slog.Int64("created", created),
			slog.Time("scheduled_for", payload.ScheduledFor))
		return nil
	}
}
