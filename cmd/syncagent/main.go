package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/crewbuild/sitesync/internal/bootstrap"
	"github.com/crewbuild/sitesync/internal/cachestore"
	"github.com/crewbuild/sitesync/internal/config"
	"github.com/crewbuild/sitesync/internal/connectivity"
	"github.com/crewbuild/sitesync/internal/domain"
	"github.com/crewbuild/sitesync/internal/localstore"
	"github.com/crewbuild/sitesync/internal/reconciler"
	"github.com/crewbuild/sitesync/internal/scheduler"
	"github.com/crewbuild/sitesync/internal/syncmanager"
	"github.com/crewbuild/sitesync/internal/syncqueue"
	"github.com/crewbuild/sitesync/internal/tenant"
	"github.com/crewbuild/sitesync/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.ServerURL == "" {
		log.Fatal("SERVER_URL environment variable must be set")
	}
	if cfg.SessionToken == "" {
		log.Fatal("SESSION_TOKEN environment variable must be set")
	}
	if cfg.BusinessID == "" {
		log.Fatal("BUSINESS_ID environment variable must be set")
	}

	logFile, err := bootstrap.SetupLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logFile.Close()

	store, err := localstore.Open(cfg.LocalStorePath)
	if err != nil {
		slog.Error("Failed to open local store", "path", cfg.LocalStorePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	cache, err := cachestore.New(store)
	if err != nil {
		slog.Error("Failed to initialize cache manager", "error", err)
		os.Exit(1)
	}

	queue := syncqueue.New(store, nil)

	header := http.Header{}
	header.Set("X-API-Key", cfg.APIKey)
	header.Set("X-Session-Token", cfg.SessionToken)
	probe := connectivity.NewSocketProbe(probeURL(cfg.ServerURL), header)

	client := reconciler.NewClient(cfg.ServerURL, cfg.APIKey, cfg.SessionToken, queue)

	resolver := tenant.StaticResolver{
		BusinessID: cfg.BusinessID,
		UserID:     cfg.UserID,
	}

	manager := syncmanager.New(queue, client, probe, resolver,
		syncmanager.WithReconcileTimeout(cfg.ReconcileTimeout))
	defer manager.Close()

	unsubscribe := manager.Subscribe(func(status domain.SyncStatus) {
		slog.Info("Sync status changed",
			"state", status.State,
			"online", status.IsOnline,
			"queued", status.QueueCount)
	})
	defer unsubscribe()

	workerPool := worker.NewPool(worker.DefaultWorkerCount, worker.DefaultQueueSize)
	workerPool.Start()

	sched := scheduler.New(workerPool)
	sched.Schedule(cfg.EvictionInterval, worker.NewEvictionJob(cache, cfg.CacheMaxAge))

	probe.Start()
	slog.Info("Sync agent started",
		"server_url", cfg.ServerURL,
		"business_id", cfg.BusinessID,
		"local_store", cfg.LocalStorePath)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Sync agent shutting down")
	probe.Stop()
	sched.Stop()
	workerPool.Stop()
}

// probeURL converts the configured server base URL into the websocket
// endpoint used for connectivity probing.
func probeURL(serverURL string) string {
	ws := serverURL
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return strings.TrimSuffix(ws, "/") + "/api/v1/sync/ws"
}
