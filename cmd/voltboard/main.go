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
	"github.com/redis/go-redis/v9"

	"github.com/voltboard/voltboard/internal/app"
	"github.com/voltboard/voltboard/internal/auth"
	"github.com/voltboard/voltboard/internal/authz"
	"github.com/voltboard/voltboard/internal/members"
	"github.com/voltboard/voltboard/internal/observability"
	"github.com/voltboard/voltboard/internal/orgs"
	"github.com/voltboard/voltboard/internal/platform/db"
	"github.com/voltboard/voltboard/internal/roles"
	"github.com/voltboard/voltboard/internal/shared"
	"github.com/voltboard/voltboard/internal/users"
	"github.com/voltboard/voltboard/jobs"
)

func main() {
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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "voltboard_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	metrics := observability.NewMetrics()

	taskClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init task client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Warn("task client close", slog.Any("error", err))
		}
	}()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	orgRepo := orgs.NewRepository(dbpool)
	orgService := orgs.NewService(orgRepo)

	userRepo := users.NewRepository(dbpool)

	roleRepo := roles.NewRepository(dbpool)
	roleService := roles.NewService(roleRepo, taskClient, logger)

	guard := authz.NewGuard(roleService, metrics)
	authzMiddleware := authz.Middleware{Guard: guard, Logger: logger}

	memberRepo := members.NewRepository(dbpool)
	memberService := members.NewService(memberRepo, userRepo, roleService, guard, logger)

	orgHandler := orgs.NewHandler(logger, orgService, authzMiddleware)
	rolesHandler := roles.NewHandler(logger, roleService, authzMiddleware)
	membersHandler := members.NewHandler(logger, memberService, authzMiddleware)
	permissionsHandler := authz.NewPermissionsHandler()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	tenant := &app.Tenant{
		Orgs:      orgService,
		Members:   memberService,
		Logger:    logger,
		OrgHeader: cfg.OrgHeader,
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		Tenant:             tenant,
		AuthHandler:        authHandler,
		OrgHandler:         orgHandler,
		RolesHandler:       rolesHandler,
		MembersHandler:     membersHandler,
		PermissionsHandler: permissionsHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
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
