// Package queue provides the fixed-capacity FIFO used by the upper
// feedback tiers.
package queue

import "errors"

// ErrFull is returned by Push when accepting the value would overwrite an
// unconsumed slot.
var ErrFull = errors.New("ring queue full")

// Ring is a circular buffer with start/end cursors taken modulo its
// capacity. One slot is kept free to tell a full ring from an empty one,
// so at most Cap()-1 values can be queued.
type Ring[T any] struct {
	buf   []T
	start int
	end   int
}

// NewRing creates a ring with the given capacity. Capacity must be at least 2.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 2 {
		panic("queue: ring capacity must be at least 2")
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v at the end of the ring.
func (r *Ring[T]) Push(v T) error {
	next := (r.end + 1) % len(r.buf)
	if next == r.start {
		return ErrFull
	}
	r.buf[r.end] = v
	r.end = next
	return nil
}

// Pop removes and returns the value at the start of the ring. ok is false
// when the ring is empty.
func (r *Ring[T]) Pop() (v T, ok bool) {
	if r.start == r.end {
		return v, false
	}
	var zero T
	v = r.buf[r.start]
	r.buf[r.start] = zero
	r.start = (r.start + 1) % len(r.buf)
	return v, true
}

// Peek returns the value Pop would return without removing it.
func (r *Ring[T]) Peek() (v T, ok bool) {
	if r.start == r.end {
		return v, false
	}
	return r.buf[r.start], true
}

// Len returns the number of queued values.
func (r *Ring[T]) Len() int {
	return (r.end - r.start + len(r.buf)) % len(r.buf)
}

// Cap returns the capacity the ring was created with.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Empty reports whether the ring holds no values.
func (r *Ring[T]) Empty() bool {
	return r.start == r.end
}

// Each calls fn for every queued value in FIFO order.
func (r *Ring[T]) Each(fn func(T)) {
	for i := r.start; i != r.end; i = (i + 1) % len(r.buf) {
		fn(r.buf[i])
	}
}
