package syncmanager

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewbuild/sitesync/internal/connectivity"
	"github.com/crewbuild/sitesync/internal/domain"
	"github.com/crewbuild/sitesync/internal/localstore"
	"github.com/crewbuild/sitesync/internal/offline"
	"github.com/crewbuild/sitesync/internal/syncqueue"
	"github.com/crewbuild/sitesync/internal/tenant"
)

// TestOfflineCreateThenOnlineSync drives the whole client path: a daily log
// created while offline returns an optimistic record and lands in the queue,
// and the next online transition replays it and empties the queue.
func TestOfflineCreateThenOnlineSync(t *testing.T) {
	store, err := localstore.Open(filepath.Join(t.TempDir(), "flow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	queue := syncqueue.New(store, nil)
	monitor := connectivity.NewNotifier(false)
	wrapper := offline.NewWrapper(queue, monitor, store)

	rec := &fakeReconciler{}
	m := New(queue, rec, monitor, tenant.StaticResolver{BusinessID: "biz-1", UserID: "user-7"})
	defer m.Close()

	createLog := wrapper.Wrap(offline.ActionParams{
		Table:      "daily_logs",
		Operation:  domain.OperationInsert,
		BusinessID: "biz-1",
		UserID:     "user-7",
	}, func(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error) {
		t.Error("Online mutation must not run while offline")
		return payload, nil
	})

	got, err := createLog(context.Background(), map[string]interface{}{
		"project_id":     "proj-9",
		"work_completed": "Poured foundation, north wing",
	})
	require.NoError(t, err)

	// The caller sees a complete record immediately, as if the create hit
	// the server.
	assert.NotEmpty(t, got["id"])
	assert.NotEmpty(t, got["created_at"])
	assert.Equal(t, "Poured foundation, north wing", got["work_completed"])

	pending, err := queue.ListPending(context.Background(), "biz-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "daily_logs", pending[0].Table)
	assert.Equal(t, domain.OperationInsert, pending[0].Operation)
	assert.Equal(t, got["id"], pending[0].Data["id"])

	before := m.Status()
	assert.Equal(t, domain.SyncStateOffline, before.State)
	assert.True(t, before.LastSyncTime.IsZero())

	// Going online triggers an automatic pass that drains the entry.
	rec.result = domain.SyncResult{Success: true, SyncedItems: []string{pending[0].ID}}
	monitor.Set(true)

	require.Eventually(t, func() bool {
		count, err := queue.Count(context.Background(), "biz-1")
		return err == nil && count == 0
	}, time.Second, 10*time.Millisecond, "Synced entry must leave the local queue")

	require.Eventually(t, func() bool {
		status := m.Status()
		return status.State == domain.SyncStateIdle && !status.LastSyncTime.IsZero()
	}, time.Second, 10*time.Millisecond)

	status := m.Status()
	assert.True(t, status.IsOnline)
	assert.False(t, status.IsSyncing)
	assert.Zero(t, status.QueueCount)
	assert.Empty(t, status.SyncError)
	assert.Equal(t, 1, rec.callCount())
}
