package metrics

// ============================================================================
// Metric Names
// ============================================================================

// HTTP metric names
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"
)

// Sync metric names
const (
	MetricNameSyncPassesTotal    = "sync_passes_total"
	MetricNameSyncPassDuration   = "sync_pass_duration_seconds"
	MetricNameSyncEntriesApplied = "sync_entries_applied_total"
	MetricNameSyncEntryFailures  = "sync_entry_failures_total"
	MetricNameSyncEntriesDropped = "sync_entries_dropped_total"
	MetricNameSyncQueueDepth     = "sync_queue_depth"
	MetricNameSyncQueueUploads   = "sync_queue_uploads_total"
	MetricNameCacheEvictions     = "cache_entries_evicted_total"
)

// Event metric names
const (
	MetricNameEventsPublished    = "events_published_total"
	MetricNameEventHandlerErrors = "event_handler_errors_total"
)

// ============================================================================
// Metric Help Text
// ============================================================================

// HTTP metric help text
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"
)

// Sync metric help text
const (
	HelpTextSyncPassesTotal    = "Total number of reconciliation passes by result"
	HelpTextSyncPassDuration   = "Reconciliation pass latency in seconds"
	HelpTextSyncEntriesApplied = "Total number of queue entries applied"
	HelpTextSyncEntryFailures  = "Total number of per-entry application failures"
	HelpTextSyncEntriesDropped = "Total number of entries dropped at the retry ceiling"
	HelpTextSyncQueueDepth     = "Pending queue entries after the last pass"
	HelpTextSyncQueueUploads   = "Total number of queue entries uploaded by clients"
	HelpTextCacheEvictions     = "Total number of cache entries removed by age-based eviction"
)

// Event metric help text
const (
	HelpTextEventsPublished    = "Total number of events published"
	HelpTextEventHandlerErrors = "Total number of event handler errors"
)

// ============================================================================
// Metric Label Names
// ============================================================================

// Common label names used across metrics
const (
	LabelMethod    = "method"
	LabelPath      = "path"
	LabelStatus    = "status"
	LabelType      = "type"
	LabelResult    = "result"
	LabelOperation = "operation"
)

// Values for the result label on sync passes
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultEmpty   = "empty"
)

// HTTPLatencyBuckets are the histogram buckets for HTTP request duration
var HTTPLatencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// SyncLatencyBuckets are wider: a pass can drain a long queue
var SyncLatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
