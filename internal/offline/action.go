// Package offline gives every business mutation a uniform online/offline
// contract so call sites never re-implement the branch themselves.
package offline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crewbuild/sitesync/internal/cachestore"
	"github.com/crewbuild/sitesync/internal/connectivity"
	"github.com/crewbuild/sitesync/internal/domain"
	"github.com/crewbuild/sitesync/internal/logger"
	"github.com/crewbuild/sitesync/internal/syncqueue"
)

// ActionParams names everything the wrapper needs explicitly; nothing is
// inferred from argument position.
type ActionParams struct {
	Table      string
	Operation  domain.Operation
	BusinessID string
	UserID     string
}

// MutationFunc is an online business mutation: it receives the payload and
// returns the persisted record.
type MutationFunc func(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error)

// ActionRecorder appends to the offline action log. Optional.
type ActionRecorder interface {
	AppendActionLog(ctx context.Context, e domain.ActionLogEntry) error
}

// Wrapper decorates business mutations with the offline branch.
type Wrapper struct {
	queue   *syncqueue.Queue
	monitor connectivity.Monitor
	actions ActionRecorder
}

// NewWrapper creates a wrapper. actions may be nil to skip action logging.
func NewWrapper(queue *syncqueue.Queue, monitor connectivity.Monitor, actions ActionRecorder) *Wrapper {
	return &Wrapper{queue: queue, monitor: monitor, actions: actions}
}

// Wrap produces the offline-aware version of fn.
//
// Online, fn is called and its result or error propagates unchanged. Offline,
// the wrapper synthesizes an optimistic record, enqueues the mutation and
// returns the record as if it had succeeded; a later sync failure surfaces
// through the sync status, never by this call throwing. That trade-off is
// deliberate. The one loud failure mode is the local store itself being
// unavailable, because the data would otherwise be silently lost.
func (w *Wrapper) Wrap(params ActionParams, fn MutationFunc) MutationFunc {
	return func(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error) {
		if w.monitor.Online() {
			return fn(ctx, payload)
		}

		optimistic, err := w.synthesize(params.Operation, payload)
		if err != nil {
			return nil, err
		}

		entry, err := w.queue.Enqueue(ctx, syncqueue.EnqueueParams{
			Table:      params.Table,
			Operation:  params.Operation,
			Data:       optimistic,
			BusinessID: params.BusinessID,
			UserID:     params.UserID,
		})
		if err != nil {
			return nil, fmt.Errorf("queue offline %s on %s: %w", params.Operation, params.Table, err)
		}

		w.record(ctx, params, entry)

		logger.FromContext(ctx).Debug("Mutation queued for later sync",
			"table", params.Table, "operation", params.Operation, "entry_id", entry.ID)
		return optimistic, nil
	}
}

// synthesize builds the optimistic record. Inserts get a client-generated id
// and timestamps; updates and deletes carry the supplied id forward.
func (w *Wrapper) synthesize(op domain.Operation, payload map[string]interface{}) (map[string]interface{}, error) {
	optimistic := make(map[string]interface{}, len(payload)+3)
	for k, v := range payload {
		optimistic[k] = v
	}

	switch op {
	case domain.OperationInsert:
		if _, ok := optimistic["id"].(string); !ok {
			optimistic["id"] = uuid.NewString()
		}
		now := time.Now().UTC().Format(time.RFC3339)
		optimistic["created_at"] = now
		optimistic["updated_at"] = now
	case domain.OperationUpdate:
		if _, ok := optimistic["id"].(string); !ok {
			return nil, fmt.Errorf("offline update: %w", domain.ErrMissingRecordID)
		}
		optimistic["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	case domain.OperationDelete:
		if _, ok := optimistic["id"].(string); !ok {
			return nil, fmt.Errorf("offline delete: %w", domain.ErrMissingRecordID)
		}
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidOperation, op)
	}

	return optimistic, nil
}

// record appends to the offline action log. Best effort: the queue entry is
// the durable source of truth, the log is for support.
func (w *Wrapper) record(ctx context.Context, params ActionParams, entry domain.QueueEntry) {
	if w.actions == nil {
		return
	}
	logEntry := domain.ActionLogEntry{
		ID:         uuid.NewString(),
		Table:      params.Table,
		Operation:  params.Operation,
		Digest:     cachestore.Checksum(entry.Data),
		BusinessID: params.BusinessID,
		UserID:     params.UserID,
		Timestamp:  entry.Timestamp,
	}
	if err := w.actions.AppendActionLog(ctx, logEntry); err != nil {
		logger.FromContext(ctx).Warn("Failed to append offline action log", "error", err)
	}
}
