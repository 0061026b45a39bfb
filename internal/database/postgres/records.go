package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewbuild/sitesync/internal/domain"
	"github.com/crewbuild/sitesync/internal/repository"
)

type recordStore struct {
	db *pgxpool.Pool
}

// NewRecordStore creates a new PostgreSQL record store
func NewRecordStore(db *pgxpool.Pool) repository.RecordStore {
	return &recordStore{db: db}
}

// InsertRecord creates a record. The payload must carry its own id; inserting
// an id that already exists within the tenant and table yields
// domain.ErrDuplicateRecord.
func (r *recordStore) InsertRecord(ctx context.Context, businessID, table string, data map[string]interface{}) error {
	recordID, ok := data["id"].(string)
	if !ok || recordID == "" {
		return domain.ErrMissingRecordID
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal record data: %w", err)
	}

	query := `
		INSERT INTO business_records (business_id, table_name, record_id, data)
		VALUES ($1, $2, $3, $4)
	`

	_, err = r.db.Exec(ctx, query, businessID, table, recordID, dataJSON)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == PgErrorCodeUniqueViolation {
			return fmt.Errorf("record %s/%s: %w", table, recordID, domain.ErrDuplicateRecord)
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

// UpdateRecord replaces the payload of an existing record. A record that does
// not exist or belongs to another tenant yields domain.ErrRecordNotFound.
func (r *recordStore) UpdateRecord(ctx context.Context, businessID, table, recordID string, data map[string]interface{}) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal record data: %w", err)
	}

	query := `
		UPDATE business_records
		SET data = $4, updated_at = NOW()
		WHERE business_id = $1 AND table_name = $2 AND record_id = $3
	`

	tag, err := r.db.Exec(ctx, query, businessID, table, recordID, dataJSON)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %s/%s: %w", table, recordID, domain.ErrRecordNotFound)
	}

	return nil
}

// DeleteRecord removes a record. Deleting an already-absent record succeeds:
// deletes are idempotent by tenant and id.
func (r *recordStore) DeleteRecord(ctx context.Context, businessID, table, recordID string) error {
	query := `
		DELETE FROM business_records
		WHERE business_id = $1 AND table_name = $2 AND record_id = $3
	`

	if _, err := r.db.Exec(ctx, query, businessID, table, recordID); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	return nil
}
