// Package chunkring provides a lock-free single-producer single-consumer
// ring of PCM chunks, used by the playback engine as its pending-chunk
// queue between the decode channel and the real-time render step.
package chunkring

import (
	"errors"
	"sync/atomic"
)

// ErrFull indicates the ring has no space for another chunk.
var ErrFull = errors.New("chunkring: no space available")

// Ring is a lock-free SPSC ring buffer of interleaved float32 chunks.
//
// Thread safety:
//   - Push() must only be called by the producer
//   - Peek()/Pop() must only be called by the consumer
//
// Chunks are shared immutable buffers, so the ring stores the slices
// directly without copying. The capacity is rounded up to the next power
// of 2 so the position masks stay a bitwise AND.
type Ring struct {
	buffer   [][]float32
	size     uint64 // must be power of 2
	mask     uint64 // size - 1, for efficient modulo
	writePos atomic.Uint64
	readPos  atomic.Uint64
}

// New creates a ring holding up to capacity chunks (rounded up to the next
// power of 2).
func New(capacity uint64) *Ring {
	capacity = nextPowerOf2(capacity)

	return &Ring{
		buffer: make([][]float32, capacity),
		size:   capacity,
		mask:   capacity - 1,
	}
}

// Push appends one chunk. Returns ErrFull when no slot is free.
func (r *Ring) Push(chunk []float32) error {
	if r.Free() == 0 {
		return ErrFull
	}

	writePos := r.writePos.Load()
	r.buffer[writePos&r.mask] = chunk
	r.writePos.Store(writePos + 1)

	return nil
}

// Peek returns the oldest chunk without removing it, and whether one exists.
func (r *Ring) Peek() ([]float32, bool) {
	if r.Len() == 0 {
		return nil, false
	}
	return r.buffer[r.readPos.Load()&r.mask], true
}

// Pop removes the oldest chunk. A no-op on an empty ring.
func (r *Ring) Pop() {
	if r.Len() == 0 {
		return
	}

	readPos := r.readPos.Load()
	// Release the chunk so its memory is reclaimable once the consumer
	// is done with it.
	r.buffer[readPos&r.mask] = nil
	r.readPos.Store(readPos + 1)
}

// Len returns the number of chunks available to the consumer.
func (r *Ring) Len() uint64 {
	return r.writePos.Load() - r.readPos.Load()
}

// Free returns the number of empty slots available to the producer.
func (r *Ring) Free() uint64 {
	return r.size - r.Len()
}

// Size returns the total capacity of the ring.
func (r *Ring) Size() uint64 {
	return r.size
}

// Reset drops all queued chunks and rewinds both positions.
func (r *Ring) Reset() {
	clear(r.buffer)
	r.readPos.Store(0)
	r.writePos.Store(0)
}

// nextPowerOf2 rounds up to the next power of 2
func nextPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
