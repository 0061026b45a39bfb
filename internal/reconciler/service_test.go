package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewbuild/sitesync/internal/domain"
	"github.com/crewbuild/sitesync/internal/event"
	"github.com/crewbuild/sitesync/internal/tenant"
)

// mockQueueStore is a hand-written fake of the server-side queue. Increment
// and delete mutate the backing entries so multi-pass tests see retry counts
// advance the way the durable store would.
type mockQueueStore struct {
	entries    []domain.QueueEntry
	pendingErr error
	deleted    [][]string
	deleteErr  error
	upserted   []domain.QueueEntry
	retried    [][]string
}

func (m *mockQueueStore) UpsertEntries(ctx context.Context, entries []domain.QueueEntry) error {
	m.upserted = append(m.upserted, entries...)
	return nil
}

func (m *mockQueueStore) PendingEntries(ctx context.Context, businessID string) ([]domain.QueueEntry, error) {
	if m.pendingErr != nil {
		return nil, m.pendingErr
	}
	return m.entries, nil
}

func (m *mockQueueStore) IncrementRetries(ctx context.Context, ids []string) error {
	m.retried = append(m.retried, ids)
	for _, id := range ids {
		for i := range m.entries {
			if m.entries[i].ID == id {
				m.entries[i].RetryCount++
			}
		}
	}
	return nil
}

func (m *mockQueueStore) DeleteEntries(ctx context.Context, ids []string) error {
	m.deleted = append(m.deleted, ids)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	byID := make(map[string]bool, len(ids))
	for _, id := range ids {
		byID[id] = true
	}
	kept := m.entries[:0]
	for _, e := range m.entries {
		if !byID[e.ID] {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

// mockRecordStore records applied operations in order and fails ids on demand.
// When entered/release are set, the first apply signals entered and parks
// until release closes, so tests can hold a pass mid-flight.
type mockRecordStore struct {
	mu      sync.Mutex
	applied []string // "op:recordID"
	failIDs map[string]error
	entered chan struct{}
	release chan struct{}
}

func (m *mockRecordStore) apply(op, recordID string) error {
	if m.entered != nil {
		m.mu.Lock()
		entered := m.entered
		m.entered = nil
		m.mu.Unlock()
		if entered != nil {
			close(entered)
			<-m.release
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failIDs[recordID]; ok {
		return err
	}
	m.applied = append(m.applied, fmt.Sprintf("%s:%s", op, recordID))
	return nil
}

func (m *mockRecordStore) InsertRecord(ctx context.Context, businessID, table string, data map[string]interface{}) error {
	id, _ := data["id"].(string)
	return m.apply("insert", id)
}

func (m *mockRecordStore) UpdateRecord(ctx context.Context, businessID, table, recordID string, data map[string]interface{}) error {
	return m.apply("update", recordID)
}

func (m *mockRecordStore) DeleteRecord(ctx context.Context, businessID, table, recordID string) error {
	return m.apply("delete", recordID)
}

func entryWith(id string, op domain.Operation, recordID string, ts int64) domain.QueueEntry {
	return domain.QueueEntry{
		ID:         id,
		Table:      "projects",
		Operation:  op,
		Data:       map[string]interface{}{"id": recordID},
		BusinessID: "biz-1",
		Timestamp:  ts,
	}
}

func sessionCtx(businessID string) context.Context {
	return tenant.WithBusinessID(context.Background(), businessID)
}

func TestReconcile_NoSessionTenant(t *testing.T) {
	svc := NewService(&mockQueueStore{}, &mockRecordStore{}, nil)

	result, err := svc.Reconcile(context.Background(), "biz-1")

	assert.ErrorIs(t, err, domain.ErrNoTenant)
	assert.False(t, result.Success)
}

func TestReconcile_TenantMismatch(t *testing.T) {
	bus := event.NewMemoryBus()
	var failedEvents []event.Event
	bus.Subscribe(event.SyncPassFailed, func(ctx context.Context, e event.Event) error {
		failedEvents = append(failedEvents, e)
		return nil
	})

	queue := &mockQueueStore{entries: []domain.QueueEntry{entryWith("e1", domain.OperationInsert, "r1", 1)}}
	records := &mockRecordStore{}
	svc := NewService(queue, records, bus)

	result, err := svc.Reconcile(sessionCtx("biz-1"), "biz-2")

	assert.ErrorIs(t, err, domain.ErrTenantMismatch)
	assert.False(t, result.Success)
	assert.Empty(t, result.SyncedItems, "A rejected pass syncs nothing")
	assert.Empty(t, records.applied)
	require.Len(t, failedEvents, 1)
}

func TestReconcile_AppliesInEnqueueOrder(t *testing.T) {
	// Store returns rows unsorted; the pass must re-sort by (timestamp, id).
	queue := &mockQueueStore{entries: []domain.QueueEntry{
		entryWith("b", domain.OperationUpdate, "r1", 200),
		entryWith("c", domain.OperationDelete, "r2", 300),
		entryWith("a", domain.OperationInsert, "r1", 100),
	}}
	records := &mockRecordStore{}
	svc := NewService(queue, records, nil)

	result, err := svc.Reconcile(sessionCtx("biz-1"), "biz-1")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, []string{"a", "b", "c"}, result.SyncedItems)
	assert.Equal(t, []string{"insert:r1", "update:r1", "delete:r2"}, records.applied,
		"An update must never run before the insert that creates its record")

	require.Len(t, queue.deleted, 1)
	assert.Equal(t, []string{"a", "b", "c"}, queue.deleted[0])
}

func TestReconcile_SameMillisecondOrderedBySeq(t *testing.T) {
	// All three entries share one timestamp; the insertion sequence is the
	// only thing separating insert(r1) from the update that follows it.
	queue := &mockQueueStore{entries: []domain.QueueEntry{
		{ID: "z-update", Table: "projects", Operation: domain.OperationUpdate,
			Data: map[string]interface{}{"id": "r1"}, BusinessID: "biz-1", Timestamp: 100, Seq: 2},
		{ID: "a-delete", Table: "projects", Operation: domain.OperationDelete,
			Data: map[string]interface{}{"id": "r2"}, BusinessID: "biz-1", Timestamp: 100, Seq: 3},
		{ID: "m-insert", Table: "projects", Operation: domain.OperationInsert,
			Data: map[string]interface{}{"id": "r1"}, BusinessID: "biz-1", Timestamp: 100, Seq: 1},
	}}
	records := &mockRecordStore{}
	svc := NewService(queue, records, nil)

	result, err := svc.Reconcile(sessionCtx("biz-1"), "biz-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"m-insert", "z-update", "a-delete"}, result.SyncedItems)
	assert.Equal(t, []string{"insert:r1", "update:r1", "delete:r2"}, records.applied,
		"Lexical entry-id order must not override the insertion sequence")
}

func TestReconcile_PoisonEntryDroppedAtCeiling(t *testing.T) {
	bus := event.NewMemoryBus()
	var droppedEvents []event.Event
	bus.Subscribe(event.SyncEntryDropped, func(ctx context.Context, e event.Event) error {
		droppedEvents = append(droppedEvents, e)
		return nil
	})

	queue := &mockQueueStore{entries: []domain.QueueEntry{
		{ID: "q1", Table: "projects", Operation: domain.OperationUpdate,
			Data: map[string]interface{}{"id": "poison"}, BusinessID: "biz-1", Timestamp: 100},
	}}
	records := &mockRecordStore{failIDs: map[string]error{"poison": errors.New("constraint violation")}}
	svc := NewService(queue, records, bus)

	// The retry count advances one attempt per pass and the entry leaves the
	// durable queue at the ceiling, not before.
	for attempt := 1; attempt < domain.MaxRetries; attempt++ {
		result, err := svc.Reconcile(sessionCtx("biz-1"), "biz-1")
		require.NoError(t, err)
		assert.Equal(t, attempt, result.RetryCounts["q1"])
		assert.Len(t, queue.entries, 1, "Entry stays queued below the ceiling")
	}
	require.Len(t, queue.retried, domain.MaxRetries-1)

	result, err := svc.Reconcile(sessionCtx("biz-1"), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, domain.MaxRetries, result.RetryCounts["q1"])
	assert.Empty(t, queue.entries, "Poison entry is deleted at the ceiling")

	require.Len(t, droppedEvents, 1)
	payload, ok := droppedEvents[0].Payload.(event.SyncEntryDroppedPayloadV1)
	require.True(t, ok)
	assert.Equal(t, "q1", payload.EntryID)
	assert.Equal(t, domain.MaxRetries, payload.Attempts)

	// Later passes find nothing left to fail.
	final, err := svc.Reconcile(sessionCtx("biz-1"), "biz-1")
	require.NoError(t, err)
	assert.Zero(t, final.ErrorCount)
}

func TestReconcile_PerEntryFailureIsolation(t *testing.T) {
	queue := &mockQueueStore{entries: []domain.QueueEntry{
		entryWith("e1", domain.OperationInsert, "r1", 100),
		{ID: "e2", Table: "projects", Operation: domain.OperationUpdate,
			Data: map[string]interface{}{"id": "poison"}, BusinessID: "biz-1", Timestamp: 200, RetryCount: 1},
		entryWith("e3", domain.OperationInsert, "r3", 300),
	}}
	records := &mockRecordStore{failIDs: map[string]error{"poison": errors.New("constraint violation")}}
	svc := NewService(queue, records, nil)

	result, err := svc.Reconcile(sessionCtx("biz-1"), "biz-1")
	require.NoError(t, err, "Per-entry failures do not fail the pass")

	assert.True(t, result.Success)
	assert.Equal(t, []string{"e1", "e3"}, result.SyncedItems, "Siblings proceed around the failed entry")
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, map[string]int{"e2": 2}, result.RetryCounts, "Attempt count is the stored count plus this attempt")
	assert.Equal(t, [][]string{{"e2"}}, queue.retried, "Failed attempt is persisted on the durable queue")

	require.Len(t, queue.deleted, 1)
	assert.NotContains(t, queue.deleted[0], "e2")
}

func TestReconcile_MissingRecordIDFailsEntry(t *testing.T) {
	queue := &mockQueueStore{entries: []domain.QueueEntry{
		{ID: "e1", Table: "projects", Operation: domain.OperationUpdate,
			Data: map[string]interface{}{"name": "no id"}, BusinessID: "biz-1", Timestamp: 100},
		entryWith("e2", domain.OperationInsert, "r2", 200),
	}}
	records := &mockRecordStore{}
	svc := NewService(queue, records, nil)

	result, err := svc.Reconcile(sessionCtx("biz-1"), "biz-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"e2"}, result.SyncedItems)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Contains(t, result.RetryCounts, "e1")
}

func TestReconcile_QueueUnreadableFailsPass(t *testing.T) {
	queue := &mockQueueStore{pendingErr: errors.New("connection reset")}
	svc := NewService(queue, &mockRecordStore{}, nil)

	result, err := svc.Reconcile(sessionCtx("biz-1"), "biz-1")

	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "queue unreadable")
}

func TestReconcile_EmptyQueue(t *testing.T) {
	queue := &mockQueueStore{}
	svc := NewService(queue, &mockRecordStore{}, nil)

	result, err := svc.Reconcile(sessionCtx("biz-1"), "biz-1")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Empty(t, result.SyncedItems)
	assert.Zero(t, result.ErrorCount)
	assert.Empty(t, queue.deleted, "Nothing applied means nothing to delete")
}

func TestReconcile_ConcurrentPassRejected(t *testing.T) {
	queue := &mockQueueStore{entries: []domain.QueueEntry{entryWith("e1", domain.OperationInsert, "r1", 1)}}
	records := &mockRecordStore{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := NewService(queue, records, nil)

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.Reconcile(sessionCtx("biz-1"), "biz-1")
		firstDone <- err
	}()
	<-records.entered

	// While the first pass is mid-apply, a second pass for the same tenant
	// conflicts instead of interleaving.
	result, err := svc.Reconcile(sessionCtx("biz-1"), "biz-1")
	assert.ErrorIs(t, err, domain.ErrSyncInFlight)
	assert.False(t, result.Success)
	assert.Equal(t, domain.ErrMsgSyncInFlight, result.Error)

	// Other tenants are unaffected.
	otherResult, err := svc.Reconcile(sessionCtx("biz-2"), "biz-2")
	require.NoError(t, err)
	assert.True(t, otherResult.Success)

	close(records.release)
	require.NoError(t, <-firstDone)

	// The lock releases with the pass; a retry now succeeds.
	_, err = svc.Reconcile(sessionCtx("biz-1"), "biz-1")
	require.NoError(t, err)
}

func TestReconcile_PublishesPassCompleted(t *testing.T) {
	bus := event.NewMemoryBus()
	var completed []event.Event
	bus.Subscribe(event.SyncPassCompleted, func(ctx context.Context, e event.Event) error {
		completed = append(completed, e)
		return nil
	})

	queue := &mockQueueStore{entries: []domain.QueueEntry{entryWith("e1", domain.OperationInsert, "r1", 1)}}
	svc := NewService(queue, &mockRecordStore{}, bus)

	_, err := svc.Reconcile(sessionCtx("biz-1"), "biz-1")
	require.NoError(t, err)

	require.Len(t, completed, 1)
	payload, ok := completed[0].Payload.(event.SyncPassCompletedPayloadV1)
	require.True(t, ok)
	assert.Equal(t, "biz-1", payload.BusinessID)
	assert.Equal(t, 1, payload.Synced)
	assert.Equal(t, 0, payload.Failed)
}
