package event

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Type represents the type of an event
type Type string

// Metadata defines the type for event metadata
type Metadata interface{}

// Event represents a generic event in the system
type Event struct {
	Version  string      `json:"version"` // Event schema version (e.g., "1.0")
	Type     Type        `json:"type"`
	Payload  interface{} `json:"payload"`
	Metadata Metadata    `json:"metadata"`
}

// Sync lifecycle event types
const (
	SyncPassCompleted Type = "sync.pass.completed"
	SyncPassFailed    Type = "sync.pass.failed"
	SyncEntryDropped  Type = "sync.entry.dropped"
	SyncQueueUploaded Type = "sync.queue.uploaded"
)

// Typed event payloads for type safety

// SyncPassCompletedPayloadV1 is the typed payload for completed passes
type SyncPassCompletedPayloadV1 struct {
	BusinessID string `json:"business_id"`
	Synced     int    `json:"synced"`
	Failed     int    `json:"failed"`
	Timestamp  int64  `json:"timestamp"`
}

// SyncPassFailedPayloadV1 is the typed payload for pass-level failures
type SyncPassFailedPayloadV1 struct {
	BusinessID string `json:"business_id"`
	Reason     string `json:"reason"`
	Timestamp  int64  `json:"timestamp"`
}

// SyncEntryDroppedPayloadV1 is the typed payload for entries dropped at the
// retry ceiling
type SyncEntryDroppedPayloadV1 struct {
	EntryID   string `json:"entry_id"`
	Table     string `json:"table"`
	Operation string `json:"operation"`
	Attempts  int    `json:"attempts"`
	Timestamp int64  `json:"timestamp"`
}

// SyncQueueUploadedPayloadV1 is the typed payload for client queue uploads
type SyncQueueUploadedPayloadV1 struct {
	BusinessID string `json:"business_id"`
	Entries    int    `json:"entries"`
	Timestamp  int64  `json:"timestamp"`
}

// Type-safe event constructors

// NewSyncPassCompletedEvent creates a new pass completed event
func NewSyncPassCompletedEvent(businessID string, synced, failed int) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    SyncPassCompleted,
		Payload: SyncPassCompletedPayloadV1{
			BusinessID: businessID,
			Synced:     synced,
			Failed:     failed,
			Timestamp:  time.Now().Unix(),
		},
		Metadata: nil,
	}
}

// NewSyncPassFailedEvent creates a new pass failed event
func NewSyncPassFailedEvent(businessID, reason string) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    SyncPassFailed,
		Payload: SyncPassFailedPayloadV1{
			BusinessID: businessID,
			Reason:     reason,
			Timestamp:  time.Now().Unix(),
		},
		Metadata: nil,
	}
}

// NewSyncEntryDroppedEvent creates a new entry dropped event
func NewSyncEntryDroppedEvent(entryID, table, operation string, attempts int) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    SyncEntryDropped,
		Payload: SyncEntryDroppedPayloadV1{
			EntryID:   entryID,
			Table:     table,
			Operation: operation,
			Attempts:  attempts,
			Timestamp: time.Now().Unix(),
		},
		Metadata: nil,
	}
}

// NewSyncQueueUploadedEvent creates a new queue uploaded event
func NewSyncQueueUploadedEvent(businessID string, entries int) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    SyncQueueUploaded,
		Payload: SyncQueueUploadedPayloadV1{
			BusinessID: businessID,
			Entries:    entries,
			Timestamp:  time.Now().Unix(),
		},
		Metadata: nil,
	}
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for an event bus
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType Type, handler Handler)
}

// MemoryBus is an in-memory implementation of the Event Bus
type MemoryBus struct {
	handlers map[Type][]Handler
	mu       sync.RWMutex
}

// NewMemoryBus creates a new MemoryBus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[Type][]Handler),
	}
}

// Publish publishes an event to all subscribers synchronously
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers, ok := b.handlers[event.Type]
	b.mu.RUnlock()

	if !ok {
		return nil
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf(LogMsgHandlerErrorFormat, len(errs), event.Type, errs)
	}

	return nil
}

// Subscribe subscribes a handler to an event type
func (b *MemoryBus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}
