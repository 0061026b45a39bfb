// Package reconciler applies a tenant's queued mutations against the
// authoritative store. It runs in a trusted execution context: the tenant is
// re-derived from the caller's session and a mismatch aborts the whole pass.
package reconciler

import (
	"context"
	"sort"

	"github.com/crewbuild/sitesync/internal/concurrency"
	"github.com/crewbuild/sitesync/internal/domain"
	"github.com/crewbuild/sitesync/internal/event"
	"github.com/crewbuild/sitesync/internal/logger"
	"github.com/crewbuild/sitesync/internal/metrics"
	"github.com/crewbuild/sitesync/internal/repository"
	"github.com/crewbuild/sitesync/internal/tenant"
)

// Service runs reconciliation passes.
type Service interface {
	// Reconcile drains the tenant's pending queue. The context must carry
	// the session-derived business id (see tenant.WithBusinessID); a
	// mismatch with businessID fails the pass with zero items synced.
	Reconcile(ctx context.Context, businessID string) (domain.SyncResult, error)
}

type service struct {
	queue   repository.SyncQueueStore
	records repository.RecordStore
	bus     event.Bus
	locks   *concurrency.LockManager
}

// NewService creates a reconciler over the server-side queue and record
// stores. bus may be nil.
func NewService(queue repository.SyncQueueStore, records repository.RecordStore, bus event.Bus) Service {
	return &service{
		queue:   queue,
		records: records,
		bus:     bus,
		locks:   concurrency.NewLockManager(),
	}
}

func (s *service) Reconcile(ctx context.Context, businessID string) (domain.SyncResult, error) {
	log := logger.FromContext(ctx)

	// Fail closed: the session's tenant is authoritative, whatever the
	// client claims.
	authoritative, ok := tenant.BusinessIDFromContext(ctx)
	if !ok {
		return failure(domain.ErrMsgNoTenant), domain.ErrNoTenant
	}
	if authoritative != businessID {
		log.Warn("Reconcile rejected: session tenant does not match request",
			"session_business_id", authoritative, "requested_business_id", businessID)
		s.publish(ctx, event.NewSyncPassFailedEvent(businessID, domain.ErrMsgTenantMismatch))
		return failure(domain.ErrMsgTenantMismatch), domain.ErrTenantMismatch
	}

	// One pass per tenant at a time. A second caller gets an immediate
	// conflict instead of queueing behind the running pass.
	lock, acquired := s.locks.TryLock(businessID)
	if !acquired {
		log.Warn("Reconcile rejected: pass already running", "business_id", businessID)
		return failure(domain.ErrMsgSyncInFlight), domain.ErrSyncInFlight
	}
	defer lock.Unlock()

	// The server trusts its own read of the durable queue, not whatever the
	// client most recently observed.
	entries, err := s.queue.PendingEntries(ctx, businessID)
	if err != nil {
		s.publish(ctx, event.NewSyncPassFailedEvent(businessID, err.Error()))
		return failure("queue unreadable: " + err.Error()), err
	}

	// Apply in enqueue order even if the store returned rows unsorted: a
	// later update for a record must never run before the insert that
	// creates it. Seq breaks same-millisecond ties; ids carry a random
	// fragment and only make the order total.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp != entries[j].Timestamp {
			return entries[i].Timestamp < entries[j].Timestamp
		}
		if entries[i].Seq != entries[j].Seq {
			return entries[i].Seq < entries[j].Seq
		}
		return entries[i].ID < entries[j].ID
	})

	result := domain.SyncResult{Success: true}
	var retryIDs []string
	var droppedIDs []string
	for _, entry := range entries {
		if err := s.applyEntry(ctx, entry); err != nil {
			// Per-entry failure: isolated to this entry, siblings proceed.
			attempt := entry.RetryCount + 1
			result.ErrorCount++
			if result.RetryCounts == nil {
				result.RetryCounts = make(map[string]int)
			}
			result.RetryCounts[entry.ID] = attempt
			metrics.SyncEntryFailures.WithLabelValues(string(entry.Operation)).Inc()

			if attempt >= domain.MaxRetries {
				// A poison entry must not outlive the ceiling server-side
				// either: once the client drops its copy, nothing else
				// would ever remove it.
				droppedIDs = append(droppedIDs, entry.ID)
				metrics.SyncEntriesDropped.Inc()
				log.Warn("Dropped queue entry after retry ceiling",
					"entry_id", entry.ID, "table", entry.Table, "operation", entry.Operation,
					"attempts", attempt, "error", err)
				s.publish(ctx, event.NewSyncEntryDroppedEvent(entry.ID, entry.Table, string(entry.Operation), attempt))
			} else {
				retryIDs = append(retryIDs, entry.ID)
				log.Warn("Queue entry failed to apply",
					"entry_id", entry.ID, "table", entry.Table, "operation", entry.Operation,
					"attempt", attempt, "error", err)
			}
			continue
		}
		result.SyncedItems = append(result.SyncedItems, entry.ID)
		metrics.SyncEntriesApplied.WithLabelValues(string(entry.Operation)).Inc()
	}

	if len(retryIDs) > 0 {
		// Persist the attempt so the count advances across passes instead of
		// resetting every time the queue is re-read.
		if err := s.queue.IncrementRetries(ctx, retryIDs); err != nil {
			log.Warn("Failed to record retries on server queue", "error", err)
		}
	}

	toDelete := append(append([]string(nil), result.SyncedItems...), droppedIDs...)
	if len(toDelete) > 0 {
		if err := s.queue.DeleteEntries(ctx, toDelete); err != nil {
			// Applied but not yet deleted: the next pass retries them, and
			// idempotent deletes plus per-entry transactions keep that safe.
			log.Warn("Failed to delete entries from server queue", "error", err)
		}
	}

	s.publish(ctx, event.NewSyncPassCompletedEvent(businessID, len(result.SyncedItems), result.ErrorCount))
	return result, nil
}

// applyEntry dispatches one entry. The record store wraps each operation in
// its own transaction, so one bad entry cannot taint its siblings.
func (s *service) applyEntry(ctx context.Context, entry domain.QueueEntry) error {
	switch entry.Operation {
	case domain.OperationInsert:
		return s.records.InsertRecord(ctx, entry.BusinessID, entry.Table, entry.Data)
	case domain.OperationUpdate:
		id, ok := entry.RecordID()
		if !ok {
			return domain.ErrMissingRecordID
		}
		return s.records.UpdateRecord(ctx, entry.BusinessID, entry.Table, id, entry.Data)
	case domain.OperationDelete:
		id, ok := entry.RecordID()
		if !ok {
			return domain.ErrMissingRecordID
		}
		return s.records.DeleteRecord(ctx, entry.BusinessID, entry.Table, id)
	default:
		return domain.ErrInvalidOperation
	}
}

func (s *service) publish(ctx context.Context, evt event.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, evt); err != nil {
		logger.FromContext(ctx).Warn("Failed to publish sync event", "type", evt.Type, "error", err)
	}
}

func failure(msg string) domain.SyncResult {
	return domain.SyncResult{Success: false, Error: msg}
}
