package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/fleet-helpdesk/internal/api/http"
	"github.com/spec-kit/fleet-helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/fleet-helpdesk/internal/auth"
	"github.com/spec-kit/fleet-helpdesk/internal/config"
	"github.com/spec-kit/fleet-helpdesk/internal/events"
	"github.com/spec-kit/fleet-helpdesk/internal/notify"
	"github.com/spec-kit/fleet-helpdesk/internal/observability"
	"github.com/spec-kit/fleet-helpdesk/internal/persistence"
	"github.com/spec-kit/fleet-helpdesk/internal/repository"
	"github.com/spec-kit/fleet-helpdesk/internal/service"
	"github.com/spec-kit/fleet-helpdesk/internal/storage"
	"github.com/spec-kit/fleet-helpdesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Configured() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var (
		userRepo     repository.UserRepository
		helpdeskRepo repository.HelpdeskRepository
	)
	if pg.Configured() {
		pool := pg.PoolHandle()
		userRepo = repository.NewUserRepository(pool)
		helpdeskRepo = repository.NewHelpdeskRepository(pool)
	} else {
		userRepo = repository.NewMemoryUserRepository()
		helpdeskRepo = repository.NewMemoryHelpdeskRepository()
	}

	bucket, err := storage.Open(cfg.Storage)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	if err := bucket.EnsureBucket(ctx, cfg.Storage.Bucket); err != nil {
		logger.Warn("bucket not ready", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	audit := worker.StartNotificationWorker(events.NewInMemoryDispatcher(), logger)

	var sink notify.Sink
	switch cfg.Notification.Driver {
	case "redis":
		sink = notify.Multi{notify.NewRedis(redis.Client, cfg.Redis.ChannelPrefix), audit}
	case "log":
		sink = audit
	default:
		sink = notify.Nop{}
	}

	authService := service.NewAuthService(cfg.Auth, userRepo, logger)
	if cfg.Auth.BootstrapAdminEmail != "" {
		if err := authService.EnsureBootstrapAdmin(ctx, cfg.Auth.BootstrapAdminName,
			cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPass); err != nil {
			logger.Fatal("failed to bootstrap admin", zap.Error(err))
		}
	}
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	deps := service.HelpdeskDependencies{
		HelpdeskRepo: helpdeskRepo,
		UserRepo:     userRepo,
		Bucket:       bucket,
		BucketName:   cfg.Storage.Bucket,
		Sink:         sink,
		SupportTopic: cfg.Notification.SupportTopic,
		Drops:        metrics,
		Logger:       logger.Named("helpdesk"),
	}
	helpdeskService := service.NewHelpdeskService(deps)
	messageService := service.NewMessageService(deps)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, handlers.HealthDependencies{
			Postgres:   pg,
			Redis:      redis,
			Bucket:     bucket,
			BucketName: cfg.Storage.Bucket,
		}),
		Users:          handlers.NewUsersHandler(authService),
		Helpdesk:       handlers.NewHelpdeskHandler(helpdeskService, messageService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
