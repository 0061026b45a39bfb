package reconciler_bench

import (
	"context"
	"fmt"
	"testing"

	"github.com/crewbuild/sitesync/internal/domain"
	"github.com/crewbuild/sitesync/internal/reconciler"
	"github.com/crewbuild/sitesync/internal/tenant"
)

// --- Stubs (Zero-overhead mocks for benchmarking) ---

type StubQueueStore struct {
	entries []domain.QueueEntry
}

func (s *StubQueueStore) UpsertEntries(ctx context.Context, entries []domain.QueueEntry) error {
	return nil
}

func (s *StubQueueStore) PendingEntries(ctx context.Context, businessID string) ([]domain.QueueEntry, error) {
	return s.entries, nil
}

func (s *StubQueueStore) IncrementRetries(ctx context.Context, ids []string) error {
	return nil
}

func (s *StubQueueStore) DeleteEntries(ctx context.Context, ids []string) error {
	return nil
}

type StubRecordStore struct{}

func (s *StubRecordStore) InsertRecord(ctx context.Context, businessID, table string, data map[string]interface{}) error {
	return nil
}

func (s *StubRecordStore) UpdateRecord(ctx context.Context, businessID, table, recordID string, data map[string]interface{}) error {
	return nil
}

func (s *StubRecordStore) DeleteRecord(ctx context.Context, businessID, table, recordID string) error {
	return nil
}

func pendingEntries(n int) []domain.QueueEntry {
	entries := make([]domain.QueueEntry, n)
	for i := 0; i < n; i++ {
		entries[i] = domain.QueueEntry{
			ID:         fmt.Sprintf("entry_%d", i),
			Table:      "projects",
			Operation:  domain.OperationInsert,
			Data:       map[string]interface{}{"id": fmt.Sprintf("record_%d", i), "name": "bench"},
			BusinessID: "biz-bench",
			Timestamp:  int64(n - i), // reversed so the pass has to re-sort
		}
	}
	return entries
}

func benchmarkReconcile(b *testing.B, queueSize int) {
	svc := reconciler.NewService(&StubQueueStore{entries: pendingEntries(queueSize)}, &StubRecordStore{}, nil)
	ctx := tenant.WithBusinessID(context.Background(), "biz-bench")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result, err := svc.Reconcile(ctx, "biz-bench")
		if err != nil {
			b.Fatal(err)
		}
		if len(result.SyncedItems) != queueSize {
			b.Fatalf("expected %d synced items, got %d", queueSize, len(result.SyncedItems))
		}
	}
}

func BenchmarkReconcile10(b *testing.B)   { benchmarkReconcile(b, 10) }
func BenchmarkReconcile100(b *testing.B)  { benchmarkReconcile(b, 100) }
func BenchmarkReconcile1000(b *testing.B) { benchmarkReconcile(b, 1000) }
