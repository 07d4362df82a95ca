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

	httptransport "github.com/spec-kit/trading-journal/internal/api/http"
	"github.com/spec-kit/trading-journal/internal/api/http/handlers"
	"github.com/spec-kit/trading-journal/internal/auth"
	"github.com/spec-kit/trading-journal/internal/config"
	"github.com/spec-kit/trading-journal/internal/events"
	"github.com/spec-kit/trading-journal/internal/observability"
	"github.com/spec-kit/trading-journal/internal/persistence"
	"github.com/spec-kit/trading-journal/internal/repository"
	"github.com/spec-kit/trading-journal/internal/service"
	"github.com/spec-kit/trading-journal/internal/worker"
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
	dependencies := map[string]handlers.Pinger{}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var (
		transactionRepo repository.TransactionRepository
		snapshotRepo    repository.SnapshotRepository
		settingRepo     repository.SettingRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		transactionRepo = repository.NewTransactionRepository(pool)
		snapshotRepo = repository.NewSnapshotRepository(pool)
		settingRepo = repository.NewSettingRepository(pool)
		dependencies["postgres"] = pg
	} else {
		logger.Warn("using in-memory repositories; data is lost on restart")
		transactionRepo = repository.NewMemoryTransactionRepository()
		snapshotRepo = repository.NewMemorySnapshotRepository()
		settingRepo = repository.NewMemorySettingRepository()
	}

	var keyStore auth.KeySetStore
	if cfg.Auth.UseRedisKeyCache {
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		keyStore = auth.NewRedisKeySetStore(redis.Client, redis.Key("auth", "jwks"))
		dependencies["redis"] = redis
	}

	keys := auth.NewKeyResolver(auth.KeyResolverConfig{
		URL:          cfg.Auth.JWKSURL,
		CacheTTL:     cfg.Auth.KeyCacheTTL(),
		FetchTimeout: cfg.Auth.KeyFetchTimeout(),
		Store:        keyStore,
	}, logger)
	gate := auth.NewGate(auth.NewVerifier(keys), auth.GateConfig{
		Audience:       cfg.Auth.Audience,
		MachineHeader:  cfg.Auth.MachineHeader,
		MachineSecret:  cfg.Auth.MachineSecret,
		SystemIdentity: cfg.Auth.SystemIdentity,
	}, logger, metrics)
	if cfg.Auth.MachineSecret == "" {
		logger.Warn("AUTH_MACHINE_SECRET not set; machine access disabled")
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartAuditWorker(dispatcher, logger)

	journal := service.NewJournalService(service.JournalDependencies{
		TransactionRepo: transactionRepo,
		SettingRepo:     settingRepo,
		Dispatcher:      dispatcher,
	})
	snapshots := service.NewSnapshotService(snapshotRepo, dispatcher)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:       handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Transactions: handlers.NewTransactionsHandler(journal),
		Snapshots:    handlers.NewSnapshotsHandler(snapshots),
		Settings:     handlers.NewSettingsHandler(journal),
		Admin:        handlers.NewAdminHandler(metrics),
		Gate:         gate,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	logger.Info("auth outcomes", zap.Any("counts", metrics.Snapshot().Auth))
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
