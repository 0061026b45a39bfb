package domain

import "errors"

// Error message string constants - single source of truth for error messages
// Use these in assert.Contains() checks when testing error messages
const (
	// Local store errors
	ErrMsgStoreUnavailable = "local store unavailable"
	ErrMsgStoreClosed      = "local store is closed"

	// Tenant errors
	ErrMsgNoTenant       = "no active tenant"
	ErrMsgTenantMismatch = "tenant mismatch"

	// Record errors
	ErrMsgRecordNotFound  = "record not found"
	ErrMsgDuplicateRecord = "record already exists"
	ErrMsgMissingRecordID = "payload missing record id"

	// Queue errors
	ErrMsgInvalidOperation = "invalid queue operation"
	ErrMsgEntryNotFound    = "queue entry not found"

	// Sync errors
	ErrMsgSyncInFlight = "reconciliation already in flight"
	ErrMsgOffline      = "client is offline"
)

// Common domain errors
// These errors should be used consistently across all layers of the application.
// Wrap with fmt.Errorf("...: %w", domain.ErrXxx) for additional context.
var (
	// ErrStoreUnavailable means the durable local store could not be opened
	// or written. New offline writes must fail loudly with this error rather
	// than silently dropping data.
	ErrStoreUnavailable = errors.New(ErrMsgStoreUnavailable)
	ErrStoreClosed      = errors.New(ErrMsgStoreClosed)

	// ErrNoTenant means no business id could be resolved for the caller.
	ErrNoTenant = errors.New(ErrMsgNoTenant)

	// ErrTenantMismatch means the requested business id does not match the
	// tenant derived from the caller's session. Always fatal to the whole
	// reconciliation pass.
	ErrTenantMismatch = errors.New(ErrMsgTenantMismatch)

	ErrRecordNotFound  = errors.New(ErrMsgRecordNotFound)
	ErrDuplicateRecord = errors.New(ErrMsgDuplicateRecord)
	ErrMissingRecordID = errors.New(ErrMsgMissingRecordID)

	ErrInvalidOperation = errors.New(ErrMsgInvalidOperation)
	ErrEntryNotFound    = errors.New(ErrMsgEntryNotFound)

	ErrSyncInFlight = errors.New(ErrMsgSyncInFlight)
	ErrOffline      = errors.New(ErrMsgOffline)
)
