// Package ring implements the bounded single-producer/single-consumer queue
// shared between the sampling callback and the main loop.
//
// Push never blocks. When the ring already holds its capacity of unread
// values, Push overwrites the oldest unread value and counts an overflow.
// Push and Pop are lock-free and do not allocate.
package ring

import "sync/atomic"

// Value is the set of element types a Ring can carry. Elements are stored
// in atomic 64-bit slots so a reader never observes a torn write.
type Value interface {
	~int8 | ~int16 | ~int32 | ~uint8 | ~uint16 | ~uint32
}

// Ring is a lock-free SPSC ring buffer with an overwrite-oldest policy.
//
// Exactly one goroutine may call Push and exactly one goroutine may call Pop,
// Drain and Reset. Len, Cap and Overflows are safe from either side.
type Ring[T Value] struct {
	// One spare slot: the slot being overwritten by an in-flight Push never
	// belongs to the readable range.
	slots    []atomic.Uint64
	capacity uint64

	head      atomic.Uint64 // next sequence to write, producer-owned
	tail      atomic.Uint64 // next sequence to read, consumer-owned
	overflows atomic.Uint64
}

// New creates a ring holding at most capacity unread values.
func New[T Value](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}

	return &Ring[T]{
		slots:    make([]atomic.Uint64, capacity+1),
		capacity: uint64(capacity),
	}
}

// Push appends v. If the ring is full the oldest unread value is discarded.
// It reports false when an unread value was overwritten.
func (r *Ring[T]) Push(v T) bool {
	h := r.head.Load()
	r.slots[h%uint64(len(r.slots))].Store(uint64(v))
	r.head.Store(h + 1)

	if h-r.tail.Load() >= r.capacity {
		r.overflows.Add(1)
		return false
	}

	return true
}

// Pop removes and returns the oldest unread value.
func (r *Ring[T]) Pop() (T, bool) {
	for {
		h := r.head.Load()
		t := r.tail.Load()
		if h == t {
			var zero T
			return zero, false
		}

		// Skip whatever the producer has lapped.
		if h-t > r.capacity {
			t = h - r.capacity
		}

		v := r.slots[t%uint64(len(r.slots))].Load()

		// The slot of sequence t is rewritten once the producer publishes
		// sequence t+capacity+1; if that happened during the read, retry.
		if r.head.Load()-t > r.capacity {
			continue
		}

		r.tail.Store(t + 1)

		return T(v), true
	}
}

// Drain pops every unread value into fn, in insertion order, and returns how
// many were delivered.
func (r *Ring[T]) Drain(fn func(T)) int {
	n := 0
	for {
		v, ok := r.Pop()
		if !ok {
			return n
		}
		fn(v)
		n++
	}
}

// Reset discards all unread values. Consumer side only.
func (r *Ring[T]) Reset() {
	r.tail.Store(r.head.Load())
}

// Len returns the number of unread values.
func (r *Ring[T]) Len() int {
	n := r.head.Load() - r.tail.Load()
	if n > r.capacity {
		n = r.capacity
	}

	return int(n)
}

// Empty reports whether there is nothing to read.
func (r *Ring[T]) Empty() bool {
	return r.head.Load() == r.tail.Load()
}

// Cap returns the maximum number of unread values.
func (r *Ring[T]) Cap() int {
	return int(r.capacity)
}

// Overflows returns how many unread values have been overwritten.
func (r *Ring[T]) Overflows() uint64 {
	return r.overflows.Load()
}
