// Package pool reuses render buffers across requests and live events.
package pool

import (
	"bytes"
	"sync"
)

// maxPooled is the largest buffer kept for reuse. A results page with many
// analyses can exceed it; such buffers are left to the GC.
const maxPooled = 64 * 1024

var buffers = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// GetBuffer returns an empty buffer.
func GetBuffer() *bytes.Buffer {
	buf := buffers.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns buf to the pool. The caller must not use buf, or any
// slice obtained from buf.Bytes, afterwards.
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooled {
		return
	}
	buffers.Put(buf)
}
