package main

import "sync"

// defaultHistorySize is how much recent display output a watcher receives
// on connect.
const defaultHistorySize = 256 * 1024

// RingBuffer is a fixed-size circular buffer holding the most recent
// display output, escape sequences included. New writes overwrite the
// oldest data once it is full. Safe for concurrent use.
type RingBuffer struct {
	mu       sync.Mutex
	data     []byte
	capacity int
	// next write position within data
	pos int
	// stored is min(total bytes written, capacity)
	stored int
}

// NewRingBuffer creates a ring buffer with the given capacity in bytes.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{
		data:     make([]byte, capacity),
		capacity: capacity,
	}
}

// Write appends p, overwriting the oldest bytes if needed.
func (r *RingBuffer) Write(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(p) >= r.capacity {
		copy(r.data, p[len(p)-r.capacity:])
		r.pos = 0
		r.stored = r.capacity
		return
	}

	for off := 0; off < len(p); {
		n := copy(r.data[r.pos:], p[off:])
		r.pos = (r.pos + n) % r.capacity
		off += n
	}
	r.stored += len(p)
	if r.stored > r.capacity {
		r.stored = r.capacity
	}
}

// Bytes returns a copy of the retained output, oldest first.
func (r *RingBuffer) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]byte, 0, r.stored)
	start := (r.pos - r.stored + r.capacity) % r.capacity
	if start+r.stored <= r.capacity {
		return append(out, r.data[start:start+r.stored]...)
	}
	out = append(out, r.data[start:]...)
	return append(out, r.data[:r.pos]...)
}
