package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atlas-mdm/atlas-mdm/internal/app"
	"github.com/atlas-mdm/atlas-mdm/internal/audit"
	audithttp "github.com/atlas-mdm/atlas-mdm/internal/audit/http"
	"github.com/atlas-mdm/atlas-mdm/internal/auth"
	"github.com/atlas-mdm/atlas-mdm/internal/authz"
	"github.com/atlas-mdm/atlas-mdm/internal/masterdata"
	"github.com/atlas-mdm/atlas-mdm/internal/observability"
	"github.com/atlas-mdm/atlas-mdm/internal/platform/cache"
	"github.com/atlas-mdm/atlas-mdm/internal/platform/db"
	"github.com/atlas-mdm/atlas-mdm/internal/rbac"
	"github.com/atlas-mdm/atlas-mdm/internal/shared"
	"github.com/atlas-mdm/atlas-mdm/internal/tenant"
	"github.com/atlas-mdm/atlas-mdm/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	// Catalog rows must exist before the registries initialise; missing
	// rows for known enum keys abort startup.
	if created, err := rbac.SyncCatalog(ctx, dbpool); err != nil {
		logger.Error("sync permission catalog", slog.Any("error", err))
		os.Exit(1)
	} else if created > 0 {
		logger.Info("permission catalog extended", slog.Int64("created", created))
	}
	navigations, actions, err := rbac.LoadRegistries(ctx, dbpool, logger)
	if err != nil {
		logger.Error("load permission registries", slog.Any("error", err))
		os.Exit(1)
	}

	injector := tenant.NewInjector()
	if err := injector.RegisterAll(masterdata.Models()...); err != nil {
		logger.Error("register tenant models", slog.Any("error", err))
		os.Exit(1)
	}
	if err := injector.Validate(masterdata.Models()...); err != nil {
		logger.Error("tenant isolation defect", slog.Any("error", err))
		os.Exit(1)
	}

	sessionManager := shared.NewSessionManager(redisClient, "atlas_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	snapshotStore := authz.NewStore(dbpool)
	snapshotSource := authz.NewCachedSource(snapshotStore, redisClient, cfg.SnapshotCacheTTL)
	authorizer := authz.NewAuthorizer(logger, snapshotSource, navigations, actions, metrics)
	policies := authz.Middleware{
		Authorizer: authorizer,
		Logger:     logger,
		Audit:      auditLogger,
	}

	rbacService := rbac.NewService(dbpool)
	rbacHandler := rbac.NewHandler(logger, rbacService, navigations, actions)

	reauthPolicy, err := cfg.ReauthPolicy()
	if err != nil {
		logger.Error("parse reauth policy", slog.Any("error", err))
		os.Exit(1)
	}
	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(dbpool, authRepo, rbacService, snapshotStore, snapshotSource)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, auditLogger, reauthPolicy)

	tenantResolver := tenant.NewPGResolver(dbpool)

	masterdataRepo := masterdata.NewRepository(dbpool, injector)
	masterdataService := masterdata.NewService(masterdataRepo)
	masterdataHandler := masterdata.NewHandler(masterdataService)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService)

	auditRepo := audit.NewPGRepository(dbpool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audithttp.NewHandler(logger, auditService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		TenantResolver:    tenantResolver,
		Policies:          policies,
		AuthHandler:       authHandler,
		RBACHandler:       rbacHandler,
		UsersHandler:      usersHandler,
		MasterDataHandler: masterdataHandler,
		AuditHandler:      auditHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
