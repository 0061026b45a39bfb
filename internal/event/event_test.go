package event

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus()
	handled := false

	bus.Subscribe(SyncPassCompleted, func(ctx context.Context, event Event) error {
		if event.Type != SyncPassCompleted {
			t.Errorf("Expected event type %s, got %s", SyncPassCompleted, event.Type)
		}
		payload, ok := event.Payload.(SyncPassCompletedPayloadV1)
		if !ok {
			t.Fatalf("Expected SyncPassCompletedPayloadV1, got %T", event.Payload)
		}
		if payload.BusinessID != "biz-1" {
			t.Errorf("Expected business biz-1, got %s", payload.BusinessID)
		}
		if payload.Synced != 3 || payload.Failed != 1 {
			t.Errorf("Expected synced=3 failed=1, got %d/%d", payload.Synced, payload.Failed)
		}
		handled = true
		return nil
	})

	err := bus.Publish(context.Background(), NewSyncPassCompletedEvent("biz-1", 3, 1))
	if err != nil {
		t.Errorf("Publish returned error: %v", err)
	}

	if !handled {
		t.Error("Handler was not called")
	}
}

func TestMemoryBus_PublishMultipleHandlers(t *testing.T) {
	bus := NewMemoryBus()
	count := 0

	handler := func(ctx context.Context, event Event) error {
		count++
		return nil
	}

	bus.Subscribe(SyncPassFailed, handler)
	bus.Subscribe(SyncPassFailed, handler)

	err := bus.Publish(context.Background(), NewSyncPassFailedEvent("biz-1", "store unavailable"))
	if err != nil {
		t.Errorf("Publish returned error: %v", err)
	}

	if count != 2 {
		t.Errorf("Expected 2 handlers to be called, got %d", count)
	}
}

func TestMemoryBus_PublishNoSubscribers(t *testing.T) {
	bus := NewMemoryBus()

	err := bus.Publish(context.Background(), NewSyncQueueUploadedEvent("biz-1", 5))
	if err != nil {
		t.Errorf("Publish with no subscribers returned error: %v", err)
	}
}

func TestMemoryBus_PublishError(t *testing.T) {
	bus := NewMemoryBus()

	bus.Subscribe(SyncEntryDropped, func(ctx context.Context, event Event) error {
		return errors.New("handler error")
	})

	err := bus.Publish(context.Background(), NewSyncEntryDroppedEvent("e1", "projects", "update", 3))
	if err == nil {
		t.Error("Expected error from Publish, got nil")
	}
}
