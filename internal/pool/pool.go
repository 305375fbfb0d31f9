// Package pool provides small sync.Pool wrappers used to cut down on
// allocation churn in the upstream connector, which issues two HTTP round
// trips per query and would otherwise allocate a fresh read buffer for each.
package pool

import (
	"bytes"
	"sync"
)

// Pool is a generic wrapper around sync.Pool.
type Pool[T any] struct {
	internal sync.Pool
}

// New creates a new Pool with the given constructor.
func New[T any](newFn func() T) *Pool[T] {
	return &Pool[T]{
		internal: sync.Pool{
			New: func() any {
				return newFn()
			},
		},
	}
}

// Get retrieves an item from the pool.
func (p *Pool[T]) Get() T {
	return p.internal.Get().(T)
}

// Put returns an item to the pool.
func (p *Pool[T]) Put(item T) {
	p.internal.Put(item)
}

// maxPooledBufferBytes bounds how large a *bytes.Buffer BufferPool will
// retain. The provider's timeline and geomap responses are ordinarily a
// few KB; a buffer that grew far past that was sized for an unusual
// response and should be released to the GC instead of pinned in the pool
// for the life of the process.
const maxPooledBufferBytes = 1 << 20 // 1 MiB

// BufferPool is a Pool specialized for the byte buffers getJSON reads
// upstream response bodies into.
type BufferPool struct {
	pool *Pool[*bytes.Buffer]
}

// NewBufferPool constructs a BufferPool.
func NewBufferPool() *BufferPool {
	return &BufferPool{pool: New(func() *bytes.Buffer { return new(bytes.Buffer) })}
}

// Get returns an empty, ready-to-write buffer.
func (b *BufferPool) Get() *bytes.Buffer {
	buf := b.pool.Get()
	buf.Reset()
	return buf
}

// Put returns buf to the pool, unless it grew beyond maxPooledBufferBytes.
func (b *BufferPool) Put(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBufferBytes {
		return
	}
	b.pool.Put(buf)
}
