// Package heap implements the bounded priority heap behind the lowest
// feedback tier.
//
// Entries are ordered by (Priority, EntryTime) ascending: the root is the
// process with the lowest priority value, and among equal priorities the one
// that entered the tier first. The backing array is 1-indexed so that the
// parent of i is i/2 and its children are 2i and 2i+1.
package heap

import (
	"errors"

	"github.com/me/mlfq/pkg/model"
)

// NotFound is the index returned by Find when no entry matches.
const NotFound = 0

// ErrFull is returned by Insert when the heap is at capacity.
var ErrFull = errors.New("priority heap full")

// Better reports whether x should be scheduled before y.
func Better(x, y *model.Process) bool {
	if x.Priority != y.Priority {
		return x.Priority < y.Priority
	}
	return x.EntryTime < y.EntryTime
}

// Heap is a fixed-capacity binary min-heap of processes.
type Heap struct {
	items []*model.Process // items[0] is unused
	size  int
}

// New creates a heap holding at most capacity processes.
func New(capacity int) *Heap {
	return &Heap{items: make([]*model.Process, capacity+1)}
}

// Len returns the number of entries.
func (h *Heap) Len() int { return h.size }

// Cap returns the maximum number of entries.
func (h *Heap) Cap() int { return len(h.items) - 1 }

// Insert adds p and restores heap order.
func (h *Heap) Insert(p *model.Process) error {
	if h.size == h.Cap() {
		return ErrFull
	}
	h.size++
	h.items[h.size] = p
	h.SiftUp(h.size)
	return nil
}

// ExtractMin removes and returns the best entry. ok is false when the heap
// is empty.
func (h *Heap) ExtractMin() (p *model.Process, ok bool) {
	if h.size == 0 {
		return nil, false
	}
	p = h.items[1]
	h.items[1] = h.items[h.size]
	h.items[h.size] = nil
	h.size--
	if h.size > 0 {
		h.SiftDown(1)
	}
	return p, true
}

// Peek returns the best entry without removing it.
func (h *Heap) Peek() (*model.Process, bool) {
	if h.size == 0 {
		return nil, false
	}
	return h.items[1], true
}

// At returns the entry at index i (1-based).
func (h *Heap) At(i int) *model.Process {
	if i < 1 || i > h.size {
		return nil
	}
	return h.items[i]
}

// SiftUp moves the entry at i towards the root while it is better than its
// parent, and returns its final index.
func (h *Heap) SiftUp(i int) int {
	for i > 1 {
		parent := i / 2
		if !Better(h.items[i], h.items[parent]) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
	return i
}

// SiftDown moves the entry at i towards the leaves while one of its children
// is better, and returns its final index.
func (h *Heap) SiftDown(i int) int {
	for {
		best := i
		left, right := 2*i, 2*i+1
		if left <= h.size && Better(h.items[left], h.items[best]) {
			best = left
		}
		if right <= h.size && Better(h.items[right], h.items[best]) {
			best = right
		}
		if best == i {
			return i
		}
		h.items[i], h.items[best] = h.items[best], h.items[i]
		i = best
	}
}

// Fix restores heap order after the entry at i had its priority or entry
// time changed in place.
func (h *Heap) Fix(i int) {
	if i < 1 || i > h.size {
		return
	}
	if h.SiftUp(i) == i {
		h.SiftDown(i)
	}
}

// Find returns the index of the entry with the given pid, or NotFound.
// Subtrees are pushed on an explicit stack so the walk never recurses.
func (h *Heap) Find(pid int) int {
	if h.size == 0 {
		return NotFound
	}
	stack := []int{1}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if h.items[i].PID == pid {
			return i
		}
		if r := 2*i + 1; r <= h.size {
			stack = append(stack, r)
		}
		if l := 2 * i; l <= h.size {
			stack = append(stack, l)
		}
	}
	return NotFound
}

// Snapshot returns the entries in array order.
func (h *Heap) Snapshot() []*model.Process {
	out := make([]*model.Process, h.size)
	copy(out, h.items[1:h.size+1])
	return out
}
