package repository

import "context"

// RecordStore is the authoritative, tenant-scoped store of business records.
// Entities are opaque: a record is a JSON document keyed by id within a
// logical table. Implementations enforce tenant isolation themselves and
// return errors as values, never panics.
type RecordStore interface {
	// InsertRecord creates a record. The payload must carry the record id;
	// a duplicate id within the tenant and table is a constraint violation.
	InsertRecord(ctx context.Context, businessID, table string, data map[string]interface{}) error

	// UpdateRecord applies the payload to an existing record. A record that
	// does not exist or belongs to another tenant yields
	// domain.ErrRecordNotFound.
	UpdateRecord(ctx context.Context, businessID, table, recordID string, data map[string]interface{}) error

	// DeleteRecord removes a record. Deleting an already-absent record is
	// success: deletes are idempotent by tenant and id.
	DeleteRecord(ctx context.Context, businessID, table, recordID string) error
}
