package sse

import "time"

// Buffer sizes
const (
	// BroadcastBufferSize is the buffer size for the broadcast channel
	BroadcastBufferSize = 100

	// ClientEventBuffer is the buffer size for each client's event channel
	ClientEventBuffer = 50

	// ClientChannelBuffer is the buffer size for register/unregister channels
	ClientChannelBuffer = 10
)

// SSE connection settings
const (
	// KeepaliveInterval is how often to send keepalive pings
	KeepaliveInterval = 30 * time.Second

	// WriteTimeout is the timeout for writing to client connections
	WriteTimeout = 10 * time.Second
)

// Event types for SSE
const (
	// EventTypeSyncCompleted is sent when a reconciliation pass finishes
	EventTypeSyncCompleted = "sync.completed"

	// EventTypeSyncFailed is sent when a reconciliation pass fails outright
	EventTypeSyncFailed = "sync.failed"

	// EventTypeEntryDropped is sent when a queue entry hits the retry ceiling
	EventTypeEntryDropped = "sync.entry_dropped"

	// EventTypeQueueUploaded is sent when a client uploads pending entries
	EventTypeQueueUploaded = "sync.queue_uploaded"

	// EventTypeKeepalive is the keepalive ping event type
	EventTypeKeepalive = "keepalive"
)

// Log messages
const (
	LogMsgClientConnected    = "SSE client connected"
	LogMsgClientDisconnected = "SSE client disconnected"
	LogMsgEventBroadcast     = "Broadcasting SSE event"
	LogMsgWriteError         = "Failed to write SSE event"
	LogMsgFlushError         = "Failed to flush SSE response"
)
