package repository

import (
	"context"

	"github.com/crewbuild/sitesync/internal/domain"
)

// SyncQueueStore is the server-side durable queue the reconciler drains. The
// reconciler trusts its own read of this store, never a client snapshot, so a
// stale client cannot cause double-application or omission.
type SyncQueueStore interface {
	// UpsertEntries stores uploaded entries. Idempotent by entry id: a
	// re-uploaded entry is ignored, not duplicated.
	UpsertEntries(ctx context.Context, entries []domain.QueueEntry) error

	// PendingEntries returns a tenant's entries in enqueue order.
	PendingEntries(ctx context.Context, businessID string) ([]domain.QueueEntry, error)

	// IncrementRetries bumps the retry counter on the given entries after a
	// failed application attempt, so the count survives across passes.
	IncrementRetries(ctx context.Context, ids []string) error

	// DeleteEntries removes entries by id, after they have been applied or
	// once they reach the retry ceiling.
	DeleteEntries(ctx context.Context, ids []string) error
}
