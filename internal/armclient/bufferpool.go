package armclient

import (
	"bytes"
	"sync"
)

// bufferPool recycles the byte buffers used to drain ARM response bodies.
// Managed-API Swagger documents (office365, teams, sql, ...) routinely run
// several megabytes; pooling the scratch buffer avoids reallocating one per
// request during a startup scan over a resource group with many
// connections.
//
// Adapted from the teacher's pkg/memory.BufferPool; the size-based cutoff on
// Put keeps a single oversized managed-API document from pinning a large
// buffer in the pool forever.
type bufferPool struct {
	pool sync.Pool
}

func newBufferPool() *bufferPool {
	return &bufferPool{
		pool: sync.Pool{
			New: func() interface{} {
				return &bytes.Buffer{}
			},
		},
	}
}

func (bp *bufferPool) get() *bytes.Buffer {
	buf := bp.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func (bp *bufferPool) put(buf *bytes.Buffer) {
	if buf.Cap() <= 8*1024*1024 { // 8MB ceiling
		bp.pool.Put(buf)
	}
}
