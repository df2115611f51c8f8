package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sync-service/internal/api/http"
	"github.com/spec-kit/sync-service/internal/api/http/handlers"
	"github.com/spec-kit/sync-service/internal/auth"
	"github.com/spec-kit/sync-service/internal/config"
	"github.com/spec-kit/sync-service/internal/events"
	"github.com/spec-kit/sync-service/internal/observability"
	"github.com/spec-kit/sync-service/internal/persistence"
	"github.com/spec-kit/sync-service/internal/repository"
	"github.com/spec-kit/sync-service/internal/service"
	"github.com/spec-kit/sync-service/internal/worker"
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	service.NewSyncEventObserver(dispatcher, logger, metrics).RegisterHandlers()

	pool := pg.PoolHandle()
	changeRepo := repository.NewChangeRepository(pool)
	itemRepo := repository.NewItemRepository(pool)

	deltaService := service.NewDeltaService(service.DeltaDependencies{
		ChangeRepo: changeRepo,
		ItemRepo:   itemRepo,
		Compactor:  service.NewCompactor(),
		Metrics:    metrics,
		Sync:       cfg.Sync,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens)

	ttlCompactor := worker.NewTTLCompactor(worker.TTLCompactorDeps{
		ChangeRepo: changeRepo,
		Locker:     redis,
		Dispatcher: dispatcher,
		Logger:     logger,
		Config:     cfg.Compaction,
	})
	if cfg.Compaction.Enabled {
		ttlCompactor.Start(ctx)
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Delta:          handlers.NewDeltaHandler(deltaService),
		Metrics:        handlers.NewMetricsHandler(metrics),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
