package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/hostiva/portal/internal/alerts"
	httptransport "github.com/hostiva/portal/internal/api/http"
	"github.com/hostiva/portal/internal/api/http/handlers"
	"github.com/hostiva/portal/internal/auth"
	"github.com/hostiva/portal/internal/backend"
	"github.com/hostiva/portal/internal/cache"
	"github.com/hostiva/portal/internal/config"
	"github.com/hostiva/portal/internal/events"
	"github.com/hostiva/portal/internal/observability"
	"github.com/hostiva/portal/internal/persistence"
	"github.com/hostiva/portal/internal/scheduler"
	"github.com/hostiva/portal/internal/store"
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

	metrics := observability.NewMetrics()
	session := auth.NewSession(cfg.Backend.BearerToken)
	client := backend.NewClient(cfg.Backend, session, logger, metrics)

	var redis *persistence.Redis
	var l2 *cache.RedisStore
	if cfg.Redis.Enabled {
		redis = persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		l2 = cache.NewRedisStore(redis, "portal:tickets:", logger)
	}

	dispatcher := events.NewInMemoryDispatcher()
	alertManager := alerts.NewManager(logger)
	alertManager.RegisterHandlers(dispatcher)

	ticketStore := store.NewTicketStore(store.TicketDependencies{
		Client:      client,
		Logger:      logger,
		Dispatcher:  dispatcher,
		Alerts:      alertManager,
		L2Cache:     l2,
		PageTTL:     cfg.Cache.PageTTL(),
		SoftTimeout: cfg.Backend.ListSoftTimeout(),
	})
	defer ticketStore.Close()

	notificationStore := store.NewNotificationStore(store.NotificationDependencies{
		Client:     client,
		Logger:     logger,
		Dispatcher: dispatcher,
	})
	defer notificationStore.Close()

	refresh := scheduler.New(cfg.Refresh.Interval(), cfg.Refresh.Enabled, logger)
	defer refresh.Stop()

	go ticketStore.Run(ctx, refresh.Subscribe())
	go notificationStore.Run(ctx, refresh.Subscribe())

	// Warm the snapshots before the first tick.
	refresh.ForceRefresh()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, client, redis, metrics),
		Tickets:       handlers.NewTicketsHandler(ticketStore),
		Notifications: handlers.NewNotificationsHandler(notificationStore),
		Alerts:        handlers.NewAlertsHandler(alertManager),
		Refresh:       handlers.NewRefreshHandler(refresh),
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
