package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/bognix/dymek-api/internal/api/http"
	"github.com/bognix/dymek-api/internal/api/http/handlers"
	"github.com/bognix/dymek-api/internal/config"
	"github.com/bognix/dymek-api/internal/events"
	"github.com/bognix/dymek-api/internal/geo"
	"github.com/bognix/dymek-api/internal/notify"
	"github.com/bognix/dymek-api/internal/observability"
	"github.com/bognix/dymek-api/internal/persistence"
	"github.com/bognix/dymek-api/internal/repository"
	"github.com/bognix/dymek-api/internal/service"
	"github.com/bognix/dymek-api/internal/store"
	"github.com/bognix/dymek-api/internal/worker"
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

	markerRecords, err := store.NewPostgresStore(pg.PoolHandle(), cfg.Postgres.MarkersTable)
	if err != nil {
		logger.Fatal("failed to init marker store", zap.Error(err))
	}
	reportRecords, err := store.NewPostgresStore(pg.PoolHandle(), cfg.Postgres.ReportsTable)
	if err != nil {
		logger.Fatal("failed to init report store", zap.Error(err))
	}

	index := geo.NewIndex(cfg.Geo.HashPrecision, cfg.Geo.RadiusFallbackNeighbors, cfg.Geo.MaxCoveringCells)
	markerRepo := repository.NewMarkerRepository(markerRecords, index)
	reportRepo := repository.NewReportRepository(reportRecords, markerRepo, index)
	userDirectory := repository.NewUserDirectory(redis.Client)

	dispatcher := events.NewInMemoryDispatcher()
	transitionService := service.NewTransitionService(markerRepo, reportRepo, dispatcher)

	sender := notify.NewHTTPSender(cfg.Push.Endpoint, cfg.Push.ServerKey, cfg.Push.Timeout())
	notificationService := service.NewNotificationService(dispatcher, userDirectory, sender, logger)
	worker.StartNotificationWorker(notificationService)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(pg, redis),
		Markers: handlers.NewMarkersHandler(markerRepo, transitionService),
		Reports: handlers.NewReportsHandler(reportRepo, transitionService),
		Users:   handlers.NewUsersHandler(userDirectory),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
