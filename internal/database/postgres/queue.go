package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewbuild/sitesync/internal/domain"
	"github.com/crewbuild/sitesync/internal/repository"
)

type syncQueueStore struct {
	db *pgxpool.Pool
}

// NewSyncQueueStore creates a new PostgreSQL sync queue store
func NewSyncQueueStore(db *pgxpool.Pool) repository.SyncQueueStore {
	return &syncQueueStore{db: db}
}

// UpsertEntries stores uploaded entries in a single transaction. Entry ids
// are client-generated and globally unique, so a re-uploaded entry hits the
// primary key and is skipped rather than duplicated.
func (r *syncQueueStore) UpsertEntries(ctx context.Context, entries []domain.QueueEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToBeginTransaction, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Warn(ErrMsgFailedToRollbackTransaction, "error", err)
		}
	}()

	query := `
		INSERT INTO sync_queue (id, business_id, user_id, table_name, operation, data, timestamp_ms, seq, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	for _, entry := range entries {
		dataJSON, err := json.Marshal(entry.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal entry %s: %w", entry.ID, err)
		}

		if _, err := tx.Exec(ctx, query,
			entry.ID,
			entry.BusinessID,
			entry.UserID,
			entry.Table,
			string(entry.Operation),
			dataJSON,
			entry.Timestamp,
			entry.Seq,
			entry.RetryCount,
		); err != nil {
			return fmt.Errorf("failed to upsert entry %s: %w", entry.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// PendingEntries returns a tenant's entries ordered by enqueue time, with
// the client's insertion sequence breaking same-millisecond ties and the
// entry id last so the order stays total.
func (r *syncQueueStore) PendingEntries(ctx context.Context, businessID string) ([]domain.QueueEntry, error) {
	query := `
		SELECT id, business_id, user_id, table_name, operation, data, timestamp_ms, seq, retry_count
		FROM sync_queue
		WHERE business_id = $1
		ORDER BY timestamp_ms, seq, id
	`

	rows, err := r.db.Query(ctx, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.QueueEntry
	for rows.Next() {
		var (
			entry    domain.QueueEntry
			op       string
			dataJSON []byte
		)
		if err := rows.Scan(&entry.ID, &entry.BusinessID, &entry.UserID, &entry.Table, &op, &dataJSON, &entry.Timestamp, &entry.Seq, &entry.RetryCount); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}

		entry.Operation = domain.Operation(op)
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &entry.Data); err != nil {
				return nil, fmt.Errorf("failed to unmarshal entry %s data: %w", entry.ID, err)
			}
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending entries: %w", err)
	}

	return entries, nil
}

// IncrementRetries bumps the retry counter on the given entries
func (r *syncQueueStore) IncrementRetries(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE sync_queue SET retry_count = retry_count + 1 WHERE id = ANY($1)`

	if _, err := r.db.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("failed to increment retry counts: %w", err)
	}

	return nil
}

// DeleteEntries removes applied entries by id
func (r *syncQueueStore) DeleteEntries(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `DELETE FROM sync_queue WHERE id = ANY($1)`

	if _, err := r.db.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("failed to delete queue entries: %w", err)
	}

	return nil
}
