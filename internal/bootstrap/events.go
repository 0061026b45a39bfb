package bootstrap

import (
	"log/slog"

	"github.com/crewbuild/sitesync/internal/event"
	"github.com/crewbuild/sitesync/internal/sse"
)

// InitializeEventSystem creates the in-memory event bus that connects the
// reconciler and handlers to downstream subscribers.
func InitializeEventSystem() event.Bus {
	eventBus := event.NewMemoryBus()
	slog.Info(LogMsgEventSystemInitialized)
	return eventBus
}

// RegisterEventHandlers attaches subscribers to the event bus. Currently this
// is the SSE subscriber, which forwards sync lifecycle events to connected
// dashboard clients.
func RegisterEventHandlers(eventBus event.Bus, hub *sse.Hub) {
	subscriber := sse.NewSubscriber(hub, eventBus)
	subscriber.Subscribe()
	slog.Info(LogMsgSSESubscriberAttached)
}
