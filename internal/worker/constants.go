package worker

// ============================================================================
// Log Messages - Worker Pool
// ============================================================================

// LogMsgWorkerJobFailed is logged when a worker fails to process a job
const LogMsgWorkerJobFailed = "Worker job failed"

// Default pool sizing for background maintenance jobs
const (
	DefaultWorkerCount = 2
	DefaultQueueSize   = 16
)

// ============================================================================
// Log Messages - Cache Eviction Job
// ============================================================================

// Log messages for cache eviction runs
const (
	LogMsgCacheEvictionStarting  = "Cache eviction starting"
	LogMsgCacheEvictionCompleted = "Cache eviction completed"
	LogMsgCacheEvictionFailed    = "Cache eviction failed"
)

// ============================================================================
// Log Messages - Session Cleanup Job
// ============================================================================

// Log messages for session cleanup runs
const (
	LogMsgSessionCleanupCompleted = "Session cleanup completed"
	LogMsgSessionCleanupFailed    = "Session cleanup failed"
)

// ============================================================================
// Test Configuration
// ============================================================================

// Test pool configuration values used in pool_test.go
const (
	TestWorkerCount           = 2
	TestQueueSize             = 10
	TestExpectedJobCount      = 2
	TestWorkerProcessWaitTime = 100 // milliseconds
)
