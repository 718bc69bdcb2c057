package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atlas-mdm/atlas-mdm/internal/app"
	"github.com/atlas-mdm/atlas-mdm/internal/authz"
	"github.com/atlas-mdm/atlas-mdm/internal/platform/db"
	"github.com/atlas-mdm/atlas-mdm/internal/rbac"
	"github.com/atlas-mdm/atlas-mdm/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	snapshotStore := authz.NewStore(pool)
	syncCatalog := func(ctx context.Context) (int64, error) {
		return rbac.SyncCatalog(ctx, pool)
	}

	purgeTask, err := jobs.NewSessionsPurgeTask(time.Now().UTC())
	if err != nil {
		logger.Error("build purge task", slog.Any("error", err))
		os.Exit(1)
	}
	syncTask, err := jobs.NewPermissionsSyncTask(time.Now().UTC())
	if err != nil {
		logger.Error("build sync task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSessionsPurge, Handler: jobs.NewSessionsPurgeHandler(logger, snapshotStore)},
			{Type: jobs.TaskPermissionsSync, Handler: jobs.NewPermissionsSyncHandler(logger, syncCatalog)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 3 * * *", Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 3 * * *", Task: syncTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
