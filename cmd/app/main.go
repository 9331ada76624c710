package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yieldland/production-core/internal/concurrency"
	"github.com/yieldland/production-core/internal/config"
	"github.com/yieldland/production-core/internal/database"
	"github.com/yieldland/production-core/internal/database/postgres"
	"github.com/yieldland/production-core/internal/event"
	"github.com/yieldland/production-core/internal/land"
	"github.com/yieldland/production-core/internal/ledger"
	"github.com/yieldland/production-core/internal/logger"
	"github.com/yieldland/production-core/internal/mining"
	"github.com/yieldland/production-core/internal/scheduler"
	"github.com/yieldland/production-core/internal/server"
	"github.com/yieldland/production-core/internal/settlement"
	"github.com/yieldland/production-core/internal/synthesis"
	"github.com/yieldland/production-core/internal/tool"
	"github.com/yieldland/production-core/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.NewConfig(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName, cfg.Version, cfg.Environment, false))
	log := slog.Default()

	ctx := context.Background()

	if err := database.Migrate(ctx, cfg.GetDBConnString()); err != nil {
		log.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	pool, err := database.NewPool(cfg.GetDBConnString(), 10, 5*time.Minute, 30*time.Minute)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	catalog, err := land.LoadOrDefault(cfg.LandCatalogPath)
	if err != nil {
		log.Error("Failed to load land catalog", "error", err)
		os.Exit(1)
	}
	recipes := synthesis.LoadTableOrDefault(ctx, cfg.RecipeConfigPath)

	store := postgres.NewStore(pool)
	locks := concurrency.NewLockManager(cfg.LockRetryAttempts, cfg.LockRetryDelay)
	bus := event.NewMemoryBus()
	event.SubscribeLogging(bus, log)

	ledgerSvc := ledger.NewService(store, locks)
	tools := tool.NewRegistry(store)
	synthEngine := synthesis.NewEngine(ledgerSvc, tools, recipes, bus, rand.New(rand.NewSource(time.Now().UnixNano())))
	settleEngine := settlement.NewEngine(locks)
	manager := mining.NewManager(store, locks, tools, settleEngine, catalog, bus)

	workers := worker.NewPool(cfg.WorkerCount, cfg.WorkerQueue)
	workers.Start(ctx)
	sched := scheduler.NewScheduler(workers)
	sched.Every(cfg.SettlementTick, mining.NewSettlementJob(manager))
	sched.Start(ctx)

	srv := server.NewServer(cfg.Port, cfg.APIKey, server.Info{
		Service:     cfg.ServiceName,
		Version:     cfg.Version,
		Environment: cfg.Environment,
	}, pool, ledgerSvc, tools, synthEngine, manager)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		log.Error("Server stopped unexpectedly", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
	}
	sched.Stop()
	workers.Stop()
	log.Info("Shutdown complete")
}
