package handler

import (
	"bytes"
	"sync"
)

// bufferPool recycles the scratch buffers respondJSON encodes into. Sync
// results are small but frequent, so pooling keeps the hot path allocation
// free.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512)) // enough for a typical SyncResult
	},
}

// getBuffer takes a scratch buffer from the pool
func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

// putBuffer resets a buffer and hands it back
func putBuffer(buf *bytes.Buffer) {
	buf.Reset()
	bufferPool.Put(buf)
}
