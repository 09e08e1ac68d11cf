package parallel

import (
	"sync"
	"sync/atomic"
)

// BufferPool provides reuse of tile output buffers via sync.Pool.
//
// Workers take a buffer sized to their tile, the coordinator returns it once
// the tile has been painted. Buffers are pooled per length, so near-equal
// grids reuse memory across tiles of the same size.
//
// Thread safety: BufferPool is safe for concurrent use.
type BufferPool struct {
	// pools holds a *sync.Pool of *[]int32 per buffer length.
	pools sync.Map

	// outstanding counts buffers handed out by Get and not yet returned.
	outstanding atomic.Int64
}

// NewBufferPool creates a new buffer pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{}
}

// Get retrieves a zeroed buffer of exactly n elements.
// Returns nil if n is not positive.
func (p *BufferPool) Get(n int) []int32 {
	if n <= 0 {
		return nil
	}

	bp := p.getOrCreatePool(n).Get().(*[]int32)
	buf := *bp
	clear(buf)
	p.outstanding.Add(1)
	return buf
}

// Put returns a buffer to the pool for reuse.
// The caller must not read or write buf afterwards.
// If buf is empty, this is a no-op.
func (p *BufferPool) Put(buf []int32) {
	if len(buf) == 0 {
		return
	}
	p.outstanding.Add(-1)

	if pool, ok := p.pools.Load(len(buf)); ok {
		pool.(*sync.Pool).Put(&buf)
	}
	// If pool doesn't exist, let GC reclaim the buffer
}

// Outstanding returns the number of buffers currently checked out.
func (p *BufferPool) Outstanding() int {
	return int(p.outstanding.Load())
}

// getOrCreatePool gets or creates a sync.Pool for buffers of length n.
func (p *BufferPool) getOrCreatePool(n int) *sync.Pool {
	if pool, ok := p.pools.Load(n); ok {
		return pool.(*sync.Pool)
	}

	newPool := &sync.Pool{
		New: func() any {
			buf := make([]int32, n)
			return &buf
		},
	}

	// Try to store; if another goroutine beat us, use theirs
	actual, _ := p.pools.LoadOrStore(n, newPool)
	return actual.(*sync.Pool)
}
