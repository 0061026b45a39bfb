package sse

// SyncCompletedPayload represents the SSE payload for a finished reconciliation pass
type SyncCompletedPayload struct {
	BusinessID string `json:"business_id"`
	Synced     int    `json:"synced"`
	Failed     int    `json:"failed"`
}

// SyncFailedPayload represents the SSE payload for a pass-level failure
type SyncFailedPayload struct {
	BusinessID string `json:"business_id"`
	Reason     string `json:"reason"`
}

// EntryDroppedPayload represents the SSE payload for an entry dropped at the
// retry ceiling
type EntryDroppedPayload struct {
	EntryID   string `json:"entry_id"`
	Table     string `json:"table"`
	Operation string `json:"operation"`
	Attempts  int    `json:"attempts"`
}

// QueueUploadedPayload represents the SSE payload for a client queue upload
type QueueUploadedPayload struct {
	BusinessID string `json:"business_id"`
	Entries    int    `json:"entries"`
}
