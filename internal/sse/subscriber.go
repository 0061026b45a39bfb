package sse

import (
	"context"
	"log/slog"

	"github.com/crewbuild/sitesync/internal/event"
)

// Subscriber bridges the internal event bus to the SSE hub
type Subscriber struct {
	hub *Hub
	bus event.Bus
}

// NewSubscriber creates a new SSE subscriber
func NewSubscriber(hub *Hub, bus event.Bus) *Subscriber {
	return &Subscriber{
		hub: hub,
		bus: bus,
	}
}

// Subscribe registers handlers for all relevant event types
func (s *Subscriber) Subscribe() {
	s.bus.Subscribe(event.SyncPassCompleted, s.handlePassCompleted)
	s.bus.Subscribe(event.SyncPassFailed, s.handlePassFailed)
	s.bus.Subscribe(event.SyncEntryDropped, s.handleEntryDropped)
	s.bus.Subscribe(event.SyncQueueUploaded, s.handleQueueUploaded)

	slog.Info("SSE subscriber registered for event types",
		"types", []string{
			string(event.SyncPassCompleted),
			string(event.SyncPassFailed),
			string(event.SyncEntryDropped),
			string(event.SyncQueueUploaded),
		})
}

// handlePassCompleted broadcasts finished reconciliation passes to SSE clients
func (s *Subscriber) handlePassCompleted(_ context.Context, evt event.Event) error {
	payload, ok := evt.Payload.(event.SyncPassCompletedPayloadV1)
	if !ok {
		slog.Warn("Invalid pass completed event payload type")
		return nil
	}

	s.hub.Broadcast(EventTypeSyncCompleted, SyncCompletedPayload{
		BusinessID: payload.BusinessID,
		Synced:     payload.Synced,
		Failed:     payload.Failed,
	})

	slog.Debug(LogMsgEventBroadcast,
		"event_type", EventTypeSyncCompleted,
		"business_id", payload.BusinessID,
		"synced", payload.Synced,
		"failed", payload.Failed)

	return nil
}

// handlePassFailed broadcasts pass-level failures to SSE clients
func (s *Subscriber) handlePassFailed(_ context.Context, evt event.Event) error {
	payload, ok := evt.Payload.(event.SyncPassFailedPayloadV1)
	if !ok {
		slog.Warn("Invalid pass failed event payload type")
		return nil
	}

	s.hub.Broadcast(EventTypeSyncFailed, SyncFailedPayload{
		BusinessID: payload.BusinessID,
		Reason:     payload.Reason,
	})

	slog.Debug(LogMsgEventBroadcast,
		"event_type", EventTypeSyncFailed,
		"business_id", payload.BusinessID)

	return nil
}

// handleEntryDropped broadcasts retry-ceiling drops to SSE clients
func (s *Subscriber) handleEntryDropped(_ context.Context, evt event.Event) error {
	payload, ok := evt.Payload.(event.SyncEntryDroppedPayloadV1)
	if !ok {
		slog.Warn("Invalid entry dropped event payload type")
		return nil
	}

	s.hub.Broadcast(EventTypeEntryDropped, EntryDroppedPayload{
		EntryID:   payload.EntryID,
		Table:     payload.Table,
		Operation: payload.Operation,
		Attempts:  payload.Attempts,
	})

	slog.Debug(LogMsgEventBroadcast,
		"event_type", EventTypeEntryDropped,
		"entry_id", payload.EntryID,
		"table", payload.Table)

	return nil
}

// handleQueueUploaded broadcasts client queue uploads to SSE clients
func (s *Subscriber) handleQueueUploaded(_ context.Context, evt event.Event) error {
	payload, ok := evt.Payload.(event.SyncQueueUploadedPayloadV1)
	if !ok {
		slog.Warn("Invalid queue uploaded event payload type")
		return nil
	}

	s.hub.Broadcast(EventTypeQueueUploaded, QueueUploadedPayload{
		BusinessID: payload.BusinessID,
		Entries:    payload.Entries,
	})

	slog.Debug(LogMsgEventBroadcast,
		"event_type", EventTypeQueueUploaded,
		"business_id", payload.BusinessID,
		"entries", payload.Entries)

	return nil
}
