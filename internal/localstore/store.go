// Package localstore is the durable, transactional persistence layer on the
// client host. It survives process restarts and holds three independent
// collections: the sync queue, the read cache, and the offline action log.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/golang/snappy"
	_ "modernc.org/sqlite"

	"github.com/crewbuild/sitesync/internal/domain"
)

// schemaSQL creates the three collections. Every collection is indexed by
// timestamp and business id; the cache additionally by table name so a
// whole-table replace is a single indexed delete.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS sync_queue (
	id           TEXT PRIMARY KEY,
	table_name   TEXT NOT NULL,
	operation    TEXT NOT NULL,
	data         BLOB NOT NULL,
	business_id  TEXT NOT NULL,
	user_id      TEXT NOT NULL DEFAULT '',
	timestamp_ms INTEGER NOT NULL,
	retry_count  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sync_queue_timestamp ON sync_queue (timestamp_ms);
CREATE INDEX IF NOT EXISTS idx_sync_queue_business ON sync_queue (business_id);

CREATE TABLE IF NOT EXISTS record_cache (
	id           TEXT PRIMARY KEY,
	table_name   TEXT NOT NULL,
	business_id  TEXT NOT NULL,
	data         BLOB NOT NULL,
	timestamp_ms INTEGER NOT NULL,
	version      INTEGER NOT NULL DEFAULT 0,
	checksum     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_record_cache_timestamp ON record_cache (timestamp_ms);
CREATE INDEX IF NOT EXISTS idx_record_cache_business ON record_cache (business_id);
CREATE INDEX IF NOT EXISTS idx_record_cache_table ON record_cache (table_name);

CREATE TABLE IF NOT EXISTS action_log (
	id           TEXT PRIMARY KEY,
	table_name   TEXT NOT NULL,
	operation    TEXT NOT NULL,
	digest       INTEGER NOT NULL DEFAULT 0,
	business_id  TEXT NOT NULL,
	user_id      TEXT NOT NULL DEFAULT '',
	timestamp_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_action_log_timestamp ON action_log (timestamp_ms);
CREATE INDEX IF NOT EXISTS idx_action_log_business ON action_log (business_id);
`

// Store is a handle to the local SQLite file.
type Store struct {
	db     *sql.DB
	path   string
	mu     sync.Mutex
	closed bool
}

var (
	openMu     sync.Mutex
	openStores = map[string]*Store{}
)

// Open opens (or creates) the store at path and applies the schema. Open is
// idempotent and memoized: opening the same path twice returns the same live
// handle rather than reopening the file.
func Open(path string) (*Store, error) {
	openMu.Lock()
	defer openMu.Unlock()

	if s, ok := openStores[path]; ok && !s.isClosed() {
		return s, nil
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	// SQLite allows a single writer; serialize access at the pool level so
	// concurrent goroutines queue instead of hitting SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: apply schema: %v", domain.ErrStoreUnavailable, err)
	}

	s := &Store{db: db, path: path}
	openStores[path] = s
	return s, nil
}

// Close closes the underlying database and removes the handle from the
// memoization registry so a later Open reopens the file.
func (s *Store) Close() error {
	openMu.Lock()
	defer openMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	delete(openStores, s.path)
	return s.db.Close()
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) guard() error {
	if s.isClosed() {
		return domain.ErrStoreClosed
	}
	return nil
}

// encodePayload marshals a record payload and snappy-compresses it. The
// compression is transparent to callers; blobs written before compression was
// introduced are still readable because decodePayload falls back to raw JSON.
func encodePayload(data map[string]interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return snappy.Encode(nil, raw), nil
}

func decodePayload(blob []byte) (map[string]interface{}, error) {
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		// Not snappy-framed; assume plain JSON.
		raw = blob
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return data, nil
}

// --- Sync queue collection ---

// InsertQueueEntry persists a queue entry.
func (s *Store) InsertQueueEntry(ctx context.Context, e domain.QueueEntry) error {
	if err := s.guard(); err != nil {
		return err
	}
	blob, err := encodePayload(e.Data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sync_queue (id, table_name, operation, data, business_id, user_id, timestamp_ms, retry_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Table, string(e.Operation), blob, e.BusinessID, e.UserID, e.Timestamp, e.RetryCount)
	if err != nil {
		return fmt.Errorf("%w: insert queue entry: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// QueueEntries returns all pending entries for a tenant in insertion order:
// timestamp index, rowid as tiebreak within the same millisecond. Entry ids
// carry a random fragment, so they cannot serve as an ordering tiebreak; the
// rowid is surfaced as Seq so downstream consumers preserve the same order.
func (s *Store) QueueEntries(ctx context.Context, businessID string) ([]domain.QueueEntry, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, table_name, operation, data, business_id, user_id, timestamp_ms, retry_count, rowid
		FROM sync_queue
		WHERE business_id = ?
		ORDER BY timestamp_ms, rowid`, businessID)
	if err != nil {
		return nil, fmt.Errorf("%w: list queue: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var entries []domain.QueueEntry
	for rows.Next() {
		var e domain.QueueEntry
		var op string
		var blob []byte
		if err := rows.Scan(&e.ID, &e.Table, &op, &blob, &e.BusinessID, &e.UserID, &e.Timestamp, &e.RetryCount, &e.Seq); err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		e.Operation = domain.Operation(op)
		if e.Data, err = decodePayload(blob); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteQueueEntry removes a single entry. Removing a non-existent id is not
// an error.
func (s *Store) DeleteQueueEntry(ctx context.Context, id string) error {
	if err := s.guard(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: delete queue entry: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// IncrementQueueRetry bumps the retry counter, the only in-place mutation a
// queue entry permits, and returns the new count.
func (s *Store) IncrementQueueRetry(ctx context.Context, id string) (int, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE sync_queue SET retry_count = retry_count + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("%w: increment retry: %v", domain.ErrStoreUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, domain.ErrEntryNotFound
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT retry_count FROM sync_queue WHERE id = ?`, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: read retry count: %v", domain.ErrStoreUnavailable, err)
	}
	return count, nil
}

// QueueCount returns the number of pending entries for a tenant.
func (s *Store) QueueCount(ctx context.Context, businessID string) (int, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue WHERE business_id = ?`, businessID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count queue: %v", domain.ErrStoreUnavailable, err)
	}
	return count, nil
}

// --- Record cache collection ---

// ReplaceTableCache atomically replaces every cached row for a table with the
// supplied set. Running the delete and inserts in one transaction means a
// crash mid-refresh can never leave half of a table stale and half fresh.
func (s *Store) ReplaceTableCache(ctx context.Context, table string, entries []domain.CacheEntry) error {
	if err := s.guard(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin cache replace: %v", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM record_cache WHERE table_name = ?`, table); err != nil {
		return fmt.Errorf("%w: clear table cache: %v", domain.ErrStoreUnavailable, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO record_cache (id, table_name, business_id, data, timestamp_ms, version, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare cache insert: %v", domain.ErrStoreUnavailable, err)
	}
	defer stmt.Close()

	for _, e := range entries {
		blob, err := encodePayload(e.Data)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.Table, e.BusinessID, blob, e.Timestamp, e.Version, int64(e.Checksum)); err != nil {
			return fmt.Errorf("%w: insert cache entry: %v", domain.ErrStoreUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit cache replace: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// CacheEntries returns cached rows for a table, filtered by tenant.
func (s *Store) CacheEntries(ctx context.Context, table, businessID string) ([]domain.CacheEntry, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, table_name, business_id, data, timestamp_ms, version, checksum
		FROM record_cache
		WHERE table_name = ? AND business_id = ?
		ORDER BY id`, table, businessID)
	if err != nil {
		return nil, fmt.Errorf("%w: read cache: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var entries []domain.CacheEntry
	for rows.Next() {
		var e domain.CacheEntry
		var blob []byte
		var checksum int64
		if err := rows.Scan(&e.ID, &e.Table, &e.BusinessID, &blob, &e.Timestamp, &e.Version, &checksum); err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		e.Checksum = uint64(checksum)
		if e.Data, err = decodePayload(blob); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteCacheOlderThan sweeps cache rows older than the cutoff (epoch millis)
// across all tables and tenants, returning the number removed.
func (s *Store) DeleteCacheOlderThan(ctx context.Context, cutoffMs int64) (int64, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM record_cache WHERE timestamp_ms < ?`, cutoffMs)
	if err != nil {
		return 0, fmt.Errorf("%w: evict cache: %v", domain.ErrStoreUnavailable, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// --- Offline action log collection ---

// AppendActionLog records an offline action.
func (s *Store) AppendActionLog(ctx context.Context, e domain.ActionLogEntry) error {
	if err := s.guard(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO action_log (id, table_name, operation, digest, business_id, user_id, timestamp_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Table, string(e.Operation), int64(e.Digest), e.BusinessID, e.UserID, e.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: append action log: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// ActionLog returns the most recent offline actions for a tenant, newest
// first. limit <= 0 means no limit.
func (s *Store) ActionLog(ctx context.Context, businessID string, limit int) ([]domain.ActionLogEntry, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, table_name, operation, digest, business_id, user_id, timestamp_ms
		FROM action_log
		WHERE business_id = ?
		ORDER BY timestamp_ms DESC, id DESC
		LIMIT ?`, businessID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: read action log: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var entries []domain.ActionLogEntry
	for rows.Next() {
		var e domain.ActionLogEntry
		var op string
		var digest int64
		if err := rows.Scan(&e.ID, &e.Table, &op, &digest, &e.BusinessID, &e.UserID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan action log entry: %w", err)
		}
		e.Operation = domain.Operation(op)
		e.Digest = uint64(digest)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteActionLogOlderThan sweeps action log rows older than the cutoff.
func (s *Store) DeleteActionLogOlderThan(ctx context.Context, cutoffMs int64) (int64, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM action_log WHERE timestamp_ms < ?`, cutoffMs)
	if err != nil {
		return 0, fmt.Errorf("%w: evict action log: %v", domain.ErrStoreUnavailable, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
