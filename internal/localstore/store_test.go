package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewbuild/sitesync/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func queueEntry(id, table, businessID string, ts int64) domain.QueueEntry {
	return domain.QueueEntry{
		ID:         id,
		Table:      table,
		Operation:  domain.OperationInsert,
		Data:       map[string]interface{}{"id": "rec-" + id, "name": "entry " + id},
		BusinessID: businessID,
		Timestamp:  ts,
	}
}

func TestOpen_MemoizesHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	first, err := Open(path)
	require.NoError(t, err)

	second, err := Open(path)
	require.NoError(t, err)
	assert.Same(t, first, second, "Opening the same path twice should return the same handle")

	require.NoError(t, first.Close())

	third, err := Open(path)
	require.NoError(t, err)
	defer third.Close()
	assert.NotSame(t, first, third, "A closed handle should not be reused")
}

func TestStore_ClosedGuard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ctx := context.Background()

	err = s.InsertQueueEntry(ctx, queueEntry("e1", "projects", "biz-1", 1))
	assert.ErrorIs(t, err, domain.ErrStoreClosed)

	_, err = s.QueueEntries(ctx, "biz-1")
	assert.ErrorIs(t, err, domain.ErrStoreClosed)

	_, err = s.CacheEntries(ctx, "projects", "biz-1")
	assert.ErrorIs(t, err, domain.ErrStoreClosed)

	assert.NoError(t, s.Close(), "Closing twice should be a no-op")
}

func TestQueue_OrderAndTenantScoping(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Insert out of timestamp order; same-millisecond entries keep their
	// insertion order regardless of how their ids compare.
	require.NoError(t, s.InsertQueueEntry(ctx, queueEntry("b", "projects", "biz-1", 200)))
	require.NoError(t, s.InsertQueueEntry(ctx, queueEntry("c", "projects", "biz-1", 100)))
	require.NoError(t, s.InsertQueueEntry(ctx, queueEntry("a", "projects", "biz-1", 200)))
	require.NoError(t, s.InsertQueueEntry(ctx, queueEntry("x", "projects", "biz-2", 50)))

	entries, err := s.QueueEntries(ctx, "biz-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].ID)
	assert.Equal(t, "b", entries[1].ID, "b was inserted before a within the same millisecond")
	assert.Equal(t, "a", entries[2].ID)
	assert.Less(t, entries[1].Seq, entries[2].Seq, "Seq exposes the insertion sequence")

	// Payloads survive the encode/decode round trip.
	assert.Equal(t, "rec-c", entries[0].Data["id"])
	assert.Equal(t, "entry c", entries[0].Data["name"])

	other, err := s.QueueEntries(ctx, "biz-2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "x", other[0].ID)

	count, err := s.QueueCount(ctx, "biz-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestQueue_DeleteIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertQueueEntry(ctx, queueEntry("e1", "projects", "biz-1", 1)))

	require.NoError(t, s.DeleteQueueEntry(ctx, "e1"))
	require.NoError(t, s.DeleteQueueEntry(ctx, "e1"), "Deleting a missing entry is not an error")
	require.NoError(t, s.DeleteQueueEntry(ctx, "never-existed"))

	count, err := s.QueueCount(ctx, "biz-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestQueue_IncrementRetry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertQueueEntry(ctx, queueEntry("e1", "projects", "biz-1", 1)))

	count, err := s.IncrementQueueRetry(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = s.IncrementQueueRetry(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = s.IncrementQueueRetry(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestCache_WholeTableReplace(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := []domain.CacheEntry{
		{ID: "projects_r1", Table: "projects", BusinessID: "biz-1", Data: map[string]interface{}{"id": "r1"}, Timestamp: 100},
		{ID: "projects_r2", Table: "projects", BusinessID: "biz-1", Data: map[string]interface{}{"id": "r2"}, Timestamp: 100},
	}
	require.NoError(t, s.ReplaceTableCache(ctx, "projects", first))

	// Replace with a set that no longer contains r2: it must disappear.
	second := []domain.CacheEntry{
		{ID: "projects_r1", Table: "projects", BusinessID: "biz-1", Data: map[string]interface{}{"id": "r1", "name": "updated"}, Timestamp: 200},
		{ID: "projects_r3", Table: "projects", BusinessID: "biz-1", Data: map[string]interface{}{"id": "r3"}, Timestamp: 200},
	}
	require.NoError(t, s.ReplaceTableCache(ctx, "projects", second))

	entries, err := s.CacheEntries(ctx, "projects", "biz-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	ids := []string{entries[0].ID, entries[1].ID}
	assert.Contains(t, ids, "projects_r1")
	assert.Contains(t, ids, "projects_r3")
	assert.NotContains(t, ids, "projects_r2")
}

func TestCache_TenantScoping(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entries := []domain.CacheEntry{
		{ID: "projects_r1", Table: "projects", BusinessID: "biz-1", Data: map[string]interface{}{"id": "r1"}, Timestamp: 100},
		{ID: "projects_r2", Table: "projects", BusinessID: "biz-2", Data: map[string]interface{}{"id": "r2"}, Timestamp: 100},
	}
	require.NoError(t, s.ReplaceTableCache(ctx, "projects", entries))

	got, err := s.CacheEntries(ctx, "projects", "biz-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "projects_r1", got[0].ID)
}

func TestCache_DeleteOlderThan(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entries := []domain.CacheEntry{
		{ID: "projects_old", Table: "projects", BusinessID: "biz-1", Data: map[string]interface{}{"id": "old"}, Timestamp: 100},
		{ID: "projects_new", Table: "projects", BusinessID: "biz-1", Data: map[string]interface{}{"id": "new"}, Timestamp: 900},
	}
	require.NoError(t, s.ReplaceTableCache(ctx, "projects", entries))

	removed, err := s.DeleteCacheOlderThan(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	got, err := s.CacheEntries(ctx, "projects", "biz-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "projects_new", got[0].ID)
}

func TestActionLog_AppendAndRead(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"a1", "a2", "a3"} {
		require.NoError(t, s.AppendActionLog(ctx, domain.ActionLogEntry{
			ID:         id,
			Table:      "projects",
			Operation:  domain.OperationInsert,
			Digest:     42,
			BusinessID: "biz-1",
			Timestamp:  int64(100 * (i + 1)),
		}))
	}

	// Newest first.
	got, err := s.ActionLog(ctx, "biz-1", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a3", got[0].ID)
	assert.Equal(t, "a1", got[2].ID)
	assert.Equal(t, uint64(42), got[0].Digest)

	limited, err := s.ActionLog(ctx, "biz-1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	removed, err := s.DeleteActionLogOlderThan(ctx, 250)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}
