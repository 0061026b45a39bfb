package bootstrap

import (
	"context"
	"log/slog"

	"github.com/crewbuild/sitesync/internal/scheduler"
	"github.com/crewbuild/sitesync/internal/server"
	"github.com/crewbuild/sitesync/internal/sse"
	"github.com/crewbuild/sitesync/internal/worker"
)

// ShutdownComponents holds all components that need graceful shutdown.
type ShutdownComponents struct {
	Server     *server.Server
	Scheduler  *scheduler.Scheduler
	WorkerPool *worker.Pool
	SSEHub     *sse.Hub
}

// GracefulShutdown performs graceful shutdown of all application components.
// It shuts down in the correct order:
// 1. HTTP server (stop accepting new requests)
// 2. Scheduler (stop producing new background jobs)
// 3. Worker pool (drain in-flight jobs)
// 4. SSE hub (disconnect streaming clients)
//
// Errors during shutdown are logged but do not stop the shutdown sequence.
func GracefulShutdown(ctx context.Context, components ShutdownComponents) {
	slog.Info(LogMsgShuttingDownServer)

	if components.Server != nil {
		if err := components.Server.Stop(ctx); err != nil {
			slog.Error(LogMsgServerForcedShutdown, "error", err)
		}
	}

	if components.Scheduler != nil {
		slog.Info(LogMsgShuttingDownScheduler)
		components.Scheduler.Stop()
	}

	if components.WorkerPool != nil {
		slog.Info(LogMsgShuttingDownWorkers)
		components.WorkerPool.Stop()
	}

	if components.SSEHub != nil {
		slog.Info(LogMsgShuttingDownSSEHub)
		components.SSEHub.Stop()
	}

	slog.Info(LogMsgServerStopped)
}
