package domain

import "time"

// Operation is the kind of mutation a queue entry carries.
type Operation string

const (
	OperationInsert Operation = "insert"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Valid reports whether the operation is one of the three supported kinds.
func (o Operation) Valid() bool {
	switch o {
	case OperationInsert, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// MaxRetries is the ceiling on reconciliation attempts for a single queue
// entry. An entry that has failed this many times is dropped from the queue
// so a poison entry cannot block its siblings forever.
const MaxRetries = 3

// QueueEntry is one pending mutation awaiting replay against the
// authoritative store. Entries are immutable once enqueued except for
// RetryCount.
//
// Replay order is (Timestamp, Seq): Seq is the local store's monotonic
// insertion sequence and breaks ties between entries enqueued within the
// same millisecond. Entry ids carry a random component and must never be
// used for ordering.
type QueueEntry struct {
	ID         string                 `json:"id" db:"id"`
	Table      string                 `json:"table" db:"table_name"`
	Operation  Operation              `json:"operation" db:"operation"`
	Data       map[string]interface{} `json:"data" db:"data"`
	BusinessID string                 `json:"business_id" db:"business_id"`
	UserID     string                 `json:"user_id,omitempty" db:"user_id"`
	Timestamp  int64                  `json:"timestamp" db:"timestamp_ms"` // epoch millis, orders replay
	Seq        int64                  `json:"seq,omitempty" db:"seq"`      // insertion sequence, same-millisecond tiebreak
	RetryCount int                    `json:"retry_count" db:"retry_count"`
}

// RecordID returns the id of the record this entry targets, if present.
// Updates and deletes must carry one; inserts carry the optimistic id.
func (e QueueEntry) RecordID() (string, bool) {
	if e.Data == nil {
		return "", false
	}
	id, ok := e.Data["id"].(string)
	return id, ok && id != ""
}

// CacheEntry is one locally stored snapshot of a server record, served only
// for offline reads. Checksum is an order-independent hash of the record's
// own fields; it is a change-detection hint, not a correctness mechanism.
type CacheEntry struct {
	ID         string                 `json:"id" db:"id"` // composite "{table}_{recordID}"
	Table      string                 `json:"table" db:"table_name"`
	BusinessID string                 `json:"business_id" db:"business_id"`
	Data       map[string]interface{} `json:"data" db:"data"`
	Timestamp  int64                  `json:"timestamp" db:"timestamp_ms"`
	Version    int64                  `json:"version,omitempty" db:"version"`
	Checksum   uint64                 `json:"checksum,omitempty" db:"checksum"`
}

// ActionLogEntry records one offline action for support and debugging. The
// log is generic: it is swept by the same age-based eviction as the cache and
// nothing reconciles from it.
type ActionLogEntry struct {
	ID         string    `json:"id" db:"id"`
	Table      string    `json:"table" db:"table_name"`
	Operation  Operation `json:"operation" db:"operation"`
	Digest     uint64    `json:"digest" db:"digest"` // payload checksum, not the payload itself
	BusinessID string    `json:"business_id" db:"business_id"`
	UserID     string    `json:"user_id,omitempty" db:"user_id"`
	Timestamp  int64     `json:"timestamp" db:"timestamp_ms"`
}

// SyncResult is the outcome of one reconciliation pass.
//
// Success=false is reserved for pass-level failures (tenant mismatch, queue
// unreadable); per-entry failures leave Success=true and are reported through
// ErrorCount and RetryCounts.
type SyncResult struct {
	Success     bool           `json:"success"`
	SyncedItems []string       `json:"synced_items,omitempty"`
	ErrorCount  int            `json:"error_count,omitempty"`
	RetryCounts map[string]int `json:"retry_counts,omitempty"` // failed entry id -> attempt count
	Error       string         `json:"error,omitempty"`
}

// SyncState is the client sync manager's coarse state.
type SyncState string

const (
	SyncStateIdle    SyncState = "idle"
	SyncStateSyncing SyncState = "syncing"
	SyncStateOffline SyncState = "offline"
)

// SyncStatus is the in-memory status snapshot broadcast to subscribers.
// It is never persisted.
type SyncStatus struct {
	State        SyncState `json:"state"`
	IsOnline     bool      `json:"is_online"`
	IsSyncing    bool      `json:"is_syncing"`
	QueueCount   int       `json:"queue_count"`
	LastSyncTime time.Time `json:"last_sync_time,omitzero"`
	SyncError    string    `json:"sync_error,omitempty"`
}
