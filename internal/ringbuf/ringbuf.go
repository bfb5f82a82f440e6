// Package ringbuf provides a lock-free single-producer single-consumer
// ring of float32 samples for moving audio between the real-time thread
// and ordinary goroutines.
package ringbuf

import "sync/atomic"

// Float32 is a bounded SPSC ring. Exactly one goroutine may call Write and
// exactly one may call Read; Len, Cap and Dropped are safe from anywhere.
type Float32 struct {
	buf  []float32
	mask uint64

	head    atomic.Uint64 // next read
	tail    atomic.Uint64 // next write
	dropped atomic.Uint64
}

// New creates a ring holding at least capacity samples. The capacity is
// rounded up to a power of two.
func New(capacity int) *Float32 {
	n := 1
	for n < capacity {
		n <<= 1
	}
	return &Float32{buf: make([]float32, n), mask: uint64(n - 1)}
}

// Cap returns the number of samples the ring can hold.
func (r *Float32) Cap() int { return len(r.buf) }

// Len returns the number of unread samples.
func (r *Float32) Len() int { return int(r.tail.Load() - r.head.Load()) }

// Dropped returns the number of samples rejected because the ring was full.
func (r *Float32) Dropped() uint64 { return r.dropped.Load() }

// Write appends as much of p as fits and returns the count written. The
// rest is counted as dropped. It never blocks or allocates.
func (r *Float32) Write(p []float32) int {
	tail := r.tail.Load()
	free := uint64(len(r.buf)) - (tail - r.head.Load())
	n := uint64(len(p))
	if n > free {
		r.dropped.Add(n - free)
		n = free
	}
	for i := range n {
		r.buf[(tail+i)&r.mask] = p[i]
	}
	r.tail.Store(tail + n)
	return int(n)
}

// Read moves up to len(p) samples into p and returns the count read.
func (r *Float32) Read(p []float32) int {
	head := r.head.Load()
	avail := r.tail.Load() - head
	n := min(uint64(len(p)), avail)
	for i := range n {
		p[i] = r.buf[(head+i)&r.mask]
	}
	r.head.Store(head + n)
	return int(n)
}

// Discard drops all unread samples. It must be called by the reader.
func (r *Float32) Discard() {
	r.head.Store(r.tail.Load())
}
