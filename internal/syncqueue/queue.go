// Package syncqueue manages the durable queue of mutations made while
// disconnected. Enqueueing is purely local and never blocks on network state.
package syncqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crewbuild/sitesync/internal/domain"
	"github.com/crewbuild/sitesync/internal/localstore"
	"github.com/crewbuild/sitesync/internal/logger"
)

// ReplayScheduler is a best-effort background replay hint. Available is the
// explicit capability check; when it returns false the queue simply skips the
// hint. A missing or unavailable scheduler must never fail an enqueue.
type ReplayScheduler interface {
	Available() bool
	Schedule(businessID string)
}

// Queue is the client-side mutation queue backed by the durable local store.
type Queue struct {
	store *localstore.Store
	hint  ReplayScheduler
}

// New creates a queue over the given store. hint may be nil.
func New(store *localstore.Store, hint ReplayScheduler) *Queue {
	return &Queue{store: store, hint: hint}
}

// SetReplayScheduler installs the replay hint after construction. The sync
// manager registers itself here once both sides exist.
func (q *Queue) SetReplayScheduler(hint ReplayScheduler) {
	q.hint = hint
}

// EnqueueParams describes one pending mutation.
type EnqueueParams struct {
	Table      string
	Operation  domain.Operation
	Data       map[string]interface{}
	BusinessID string
	UserID     string
}

// Enqueue constructs a queue entry and persists it, then fires the replay
// hint if one is available. The entry id embeds table, operation, timestamp
// and a random suffix so rapid-fire enqueues within the same millisecond
// still get unique ids.
func (q *Queue) Enqueue(ctx context.Context, p EnqueueParams) (domain.QueueEntry, error) {
	if !p.Operation.Valid() {
		return domain.QueueEntry{}, fmt.Errorf("%w: %q", domain.ErrInvalidOperation, p.Operation)
	}
	if p.BusinessID == "" {
		return domain.QueueEntry{}, domain.ErrNoTenant
	}
	if p.Operation != domain.OperationInsert {
		if _, ok := p.Data["id"].(string); !ok {
			return domain.QueueEntry{}, fmt.Errorf("%s %s: %w", p.Table, p.Operation, domain.ErrMissingRecordID)
		}
	}

	now := time.Now().UnixMilli()
	entry := domain.QueueEntry{
		ID:         fmt.Sprintf("%s_%s_%d_%s", p.Table, p.Operation, now, uuid.NewString()[:8]),
		Table:      p.Table,
		Operation:  p.Operation,
		Data:       p.Data,
		BusinessID: p.BusinessID,
		UserID:     p.UserID,
		Timestamp:  now,
		RetryCount: 0,
	}

	if err := q.store.InsertQueueEntry(ctx, entry); err != nil {
		return domain.QueueEntry{}, err
	}

	if q.hint != nil && q.hint.Available() {
		q.hint.Schedule(p.BusinessID)
	} else {
		logger.FromContext(ctx).Debug("No replay scheduler available, entry waits for next online transition",
			"entry_id", entry.ID)
	}

	return entry, nil
}

// ListPending returns all pending entries for a tenant in insertion order.
func (q *Queue) ListPending(ctx context.Context, businessID string) ([]domain.QueueEntry, error) {
	return q.store.QueueEntries(ctx, businessID)
}

// Remove deletes a single entry; removing a non-existent id is not an error.
func (q *Queue) Remove(ctx context.Context, id string) error {
	return q.store.DeleteQueueEntry(ctx, id)
}

// IncrementRetry bumps an entry's retry counter and returns the new count.
func (q *Queue) IncrementRetry(ctx context.Context, id string) (int, error) {
	return q.store.IncrementQueueRetry(ctx, id)
}

// Count returns the number of pending entries for a tenant.
func (q *Queue) Count(ctx context.Context, businessID string) (int, error) {
	return q.store.QueueCount(ctx, businessID)
}
