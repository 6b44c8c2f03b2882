package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	appcart "github.com/mercato-dev/marketcore/internal/application/cart"
	apporder "github.com/mercato-dev/marketcore/internal/application/order"
	appstock "github.com/mercato-dev/marketcore/internal/application/stock"
	"github.com/mercato-dev/marketcore/internal/config"
	domcart "github.com/mercato-dev/marketcore/internal/domain/cart"
	"github.com/mercato-dev/marketcore/internal/domain/event"
	domorder "github.com/mercato-dev/marketcore/internal/domain/order"
	domstock "github.com/mercato-dev/marketcore/internal/domain/stock"
	"github.com/mercato-dev/marketcore/internal/domain/storage"
	amqppub "github.com/mercato-dev/marketcore/internal/infrastructure/amqp"
	"github.com/mercato-dev/marketcore/internal/infrastructure/bus"
	httptransport "github.com/mercato-dev/marketcore/internal/infrastructure/http"
	"github.com/mercato-dev/marketcore/internal/infrastructure/id"
	"github.com/mercato-dev/marketcore/internal/infrastructure/memory"
	"github.com/mercato-dev/marketcore/internal/infrastructure/postgres"
	"github.com/mercato-dev/marketcore/internal/pkg/logging"
)

func main() {
	app := &cli.App{
		Name:  "marketcored",
		Usage: "marketplace order-placement and inventory-consistency core",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP service",
				Action: runServe,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations",
				Action: runMigrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		zap.L().Error("fatal", zap.Error(err))
		os.Exit(1)
	}
}

func runMigrate(*cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("migrate: DATABASE_URL is required")
	}

	m, err := migrate.New(cfg.MigrationsPath, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

type repos struct {
	uow    storage.UnitOfWork
	stock  domstock.Repository
	carts  domcart.Repository
	orders domorder.Repository
}

func runServe(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	baseLogger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := buildRepos(ctx, cfg, baseLogger)
	if err != nil {
		return err
	}

	publisher, cleanup, err := buildPublisher(ctx, cfg, baseLogger)
	if err != nil {
		return err
	}
	defer cleanup()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	orderMetrics := apporder.NewMetrics(registry)

	idGen := id.NewUUIDGenerator()
	ledger := appstock.NewService(store.stock, store.uow, idGen)
	carts := appcart.NewService(store.carts, store.stock, ledger)
	orders := apporder.NewService(store.uow, store.orders, ledger, carts, idGen, publisher, orderMetrics)

	fiberApp := fiber.New(fiber.Config{
		AppName:               cfg.ServiceName,
		DisableStartupMessage: true,
	})
	httptransport.NewHandler(carts, orders, ledger, baseLogger).Register(fiberApp)

	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	go func() {
		baseLogger.Info("metrics_server_start", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("metrics_server_error", zap.Error(err))
		}
	}()
	go func() {
		baseLogger.Info("http_server_start", zap.String("addr", cfg.HTTPAddr))
		if err := fiberApp.Listen(cfg.HTTPAddr); err != nil {
			baseLogger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		baseLogger.Error("http_server_shutdown_error", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("metrics_server_shutdown_error", zap.Error(err))
	}
	baseLogger.Info("stopped")
	return nil
}

func buildRepos(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repos, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("store_selected", zap.String("store", "memory"))
		store := memory.NewStore()
		return &repos{
			uow:    memory.NewUnitOfWork(store),
			stock:  memory.NewStockRepository(store),
			carts:  memory.NewCartRepository(store),
			orders: memory.NewOrderRepository(store),
		}, nil
	}

	logger.Info("store_selected", zap.String("store", "postgres"))
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return &repos{
		uow:    postgres.NewUnitOfWork(db, cfg.StoreTimeout),
		stock:  postgres.NewStockRepository(db),
		carts:  postgres.NewCartRepository(db),
		orders: postgres.NewOrderRepository(db),
	}, nil
}

func buildPublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (event.Publisher, func(), error) {
	if cfg.AMQPURL == "" {
		b := bus.New(logger)
		b.Start(ctx)
		b.Subscribe(domorder.OrderPlacedEvent{}.EventName(), logEvent(logger))
		b.Subscribe(domorder.OrderCancelledEvent{}.EventName(), logEvent(logger))
		b.Subscribe(domorder.OrderStatusChangedEvent{}.EventName(), logEvent(logger))
		return b, func() { b.Stop(context.Background()) }, nil
	}

	pub := amqppub.NewPublisher(amqppub.Config{
		URL:      cfg.AMQPURL,
		Exchange: cfg.AMQPExchange,
	}, logger)
	if err := pub.Connect(); err != nil {
		return nil, nil, err
	}
	return pub, func() { _ = pub.Close() }, nil
}

func logEvent(logger *zap.Logger) event.Handler {
	return func(_ context.Context, e event.Event) error {
		logger.Info("order_event", zap.String("event", e.EventName()), zap.Any("payload", e))
		return nil
	}
}
