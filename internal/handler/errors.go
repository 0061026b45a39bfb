package handler

// Generic HTTP error messages for client responses.
// These messages intentionally do not expose internal error details for security reasons.
// Both handlers and tests should reference these constants to maintain consistency.
const (
	// HTTP status messages
	ErrMsgMethodNotAllowed      = "Method not allowed"
	ErrMsgInvalidRequest        = "Invalid request body"
	ErrMsgInvalidRequestSummary = "Invalid request"

	// Query parameter error messages
	ErrMsgMissingQueryParam = "Missing %s query parameter"

	// Sync operation error messages
	ErrMsgUploadQueueFailed = "Failed to upload queue entries"
	ErrMsgReconcileFailed   = "Failed to run reconciliation pass"
	ErrMsgEmptyUpload       = "No queue entries provided"
)

// Success messages for API responses
const (
	MsgQueueUploadedSuccess = "Queue entries uploaded successfully"
)
