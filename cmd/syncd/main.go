package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crewbuild/sitesync/internal/bootstrap"
	"github.com/crewbuild/sitesync/internal/config"
	"github.com/crewbuild/sitesync/internal/database"
	"github.com/crewbuild/sitesync/internal/handler"
	"github.com/crewbuild/sitesync/internal/reconciler"
	"github.com/crewbuild/sitesync/internal/scheduler"
	"github.com/crewbuild/sitesync/internal/server"
	"github.com/crewbuild/sitesync/internal/sse"
	"github.com/crewbuild/sitesync/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	warnings, err := config.ValidateEnvWithWarnings()
	if err != nil {
		log.Fatalf("Environment validation failed: %v", err)
	}
	for _, warning := range warnings {
		log.Printf("WARNING: %s", warning)
	}

	logFile, err := bootstrap.SetupLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logFile.Close()

	handler.InitValidator()

	if err := database.Migrate(cfg.GetDBConnString()); err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}

	dbPool, err := database.NewPool(cfg.GetDBConnString(), cfg.DBMaxConns, cfg.DBMaxConnIdleTime, cfg.DBMaxConnLifetime)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	repos := bootstrap.InitializeRepositories(dbPool)
	eventBus := bootstrap.InitializeEventSystem()

	sseHub := sse.NewHub()
	sseHub.Start()
	bootstrap.RegisterEventHandlers(eventBus, sseHub)

	reconcileSvc := reconciler.NewService(repos.Queue, repos.Records, eventBus)
	syncHandler := handler.NewSyncHandler(reconcileSvc, repos.Queue, eventBus)

	workerPool := worker.NewPool(worker.DefaultWorkerCount, worker.DefaultQueueSize)
	workerPool.Start()

	sched := scheduler.New(workerPool)
	sched.Schedule(cfg.SessionCleanupInterval, worker.NewSessionCleanupJob(repos.SessionJanitor))

	srv := server.NewServer(cfg.Port, cfg.APIKey, cfg.TrustedProxies, dbPool, repos.Sessions, syncHandler, sseHub)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	bootstrap.GracefulShutdown(ctx, bootstrap.ShutdownComponents{
		Server:     srv,
		Scheduler:  sched,
		WorkerPool: workerPool,
		SSEHub:     sseHub,
	})
}
