package offline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewbuild/sitesync/internal/connectivity"
	"github.com/crewbuild/sitesync/internal/domain"
	"github.com/crewbuild/sitesync/internal/localstore"
	"github.com/crewbuild/sitesync/internal/syncqueue"
)

func newTestWrapper(t *testing.T, online bool) (*Wrapper, *syncqueue.Queue, *localstore.Store, *connectivity.Notifier) {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "offline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	queue := syncqueue.New(store, nil)
	monitor := connectivity.NewNotifier(online)
	return NewWrapper(queue, monitor, store), queue, store, monitor
}

func insertParams() ActionParams {
	return ActionParams{
		Table:      "projects",
		Operation:  domain.OperationInsert,
		BusinessID: "biz-1",
		UserID:     "user-7",
	}
}

func TestWrap_OnlineCallsThrough(t *testing.T) {
	w, queue, _, _ := newTestWrapper(t, true)

	called := false
	fn := w.Wrap(insertParams(), func(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error) {
		called = true
		payload["id"] = "server-assigned"
		return payload, nil
	})

	got, err := fn(context.Background(), map[string]interface{}{"name": "North site"})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "server-assigned", got["id"])

	count, err := queue.Count(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count, "Online mutations never touch the queue")
}

func TestWrap_OnlineErrorPropagates(t *testing.T) {
	w, _, _, _ := newTestWrapper(t, true)

	wantErr := errors.New("validation failed")
	fn := w.Wrap(insertParams(), func(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error) {
		return nil, wantErr
	})

	_, err := fn(context.Background(), map[string]interface{}{"name": "p"})
	assert.ErrorIs(t, err, wantErr)
}

func TestWrap_OfflineInsertSynthesizesAndEnqueues(t *testing.T) {
	w, queue, store, _ := newTestWrapper(t, false)

	fn := w.Wrap(insertParams(), func(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error) {
		t.Fatal("Online mutation must not run while offline")
		return nil, nil
	})

	got, err := fn(context.Background(), map[string]interface{}{"name": "North site"})
	require.NoError(t, err)

	// The optimistic record is returned as if the mutation succeeded.
	assert.NotEmpty(t, got["id"], "Offline inserts get a client-generated id")
	assert.NotEmpty(t, got["created_at"])
	assert.NotEmpty(t, got["updated_at"])
	assert.Equal(t, "North site", got["name"])

	pending, err := queue.ListPending(context.Background(), "biz-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.OperationInsert, pending[0].Operation)
	assert.Equal(t, got["id"], pending[0].Data["id"])
	assert.Equal(t, "user-7", pending[0].UserID)

	// The action log recorded the mutation for support.
	actions, err := store.ActionLog(context.Background(), "biz-1", 0)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "projects", actions[0].Table)
	assert.Equal(t, domain.OperationInsert, actions[0].Operation)
	assert.NotZero(t, actions[0].Digest)
}

func TestWrap_OfflineInsertKeepsSuppliedID(t *testing.T) {
	w, _, _, _ := newTestWrapper(t, false)

	fn := w.Wrap(insertParams(), nil)

	got, err := fn(context.Background(), map[string]interface{}{"id": "caller-chosen", "name": "p"})
	require.NoError(t, err)
	assert.Equal(t, "caller-chosen", got["id"])
}

func TestWrap_OfflineUpdateRequiresID(t *testing.T) {
	w, queue, _, _ := newTestWrapper(t, false)

	params := insertParams()
	params.Operation = domain.OperationUpdate

	fn := w.Wrap(params, nil)

	_, err := fn(context.Background(), map[string]interface{}{"name": "no id"})
	assert.ErrorIs(t, err, domain.ErrMissingRecordID)

	count, err := queue.Count(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count, "A rejected mutation must not be queued")
}

func TestWrap_OfflineDeleteCarriesIDForward(t *testing.T) {
	w, queue, _, _ := newTestWrapper(t, false)

	params := insertParams()
	params.Operation = domain.OperationDelete

	fn := w.Wrap(params, nil)

	got, err := fn(context.Background(), map[string]interface{}{"id": "r1"})
	require.NoError(t, err)
	assert.Equal(t, "r1", got["id"])
	assert.NotContains(t, got, "created_at", "Deletes do not synthesize timestamps")

	pending, err := queue.ListPending(context.Background(), "biz-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.OperationDelete, pending[0].Operation)
}

func TestWrap_NilRecorderSkipsActionLog(t *testing.T) {
	store, err := localstore.Open(filepath.Join(t.TempDir(), "norec.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	queue := syncqueue.New(store, nil)
	w := NewWrapper(queue, connectivity.NewNotifier(false), nil)

	fn := w.Wrap(insertParams(), nil)

	_, err = fn(context.Background(), map[string]interface{}{"name": "p"})
	require.NoError(t, err)

	actions, err := store.ActionLog(context.Background(), "biz-1", 0)
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestWrap_TransitionBackOnlineUsesMutation(t *testing.T) {
	w, queue, _, monitor := newTestWrapper(t, false)

	fn := w.Wrap(insertParams(), func(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error) {
		payload["id"] = "server-assigned"
		return payload, nil
	})

	_, err := fn(context.Background(), map[string]interface{}{"name": "queued"})
	require.NoError(t, err)

	monitor.Set(true)

	got, err := fn(context.Background(), map[string]interface{}{"name": "direct"})
	require.NoError(t, err)
	assert.Equal(t, "server-assigned", got["id"])

	count, err := queue.Count(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "Only the offline mutation was queued")
}
