package model

import "time"

// Process is a process control block. The kernel's process table owns it;
// the scheduler only holds references while the process is queued or running.
type Process struct {
	PID        int       `json:"pid"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	State      ProcState `json:"state"`
	StackPages int       `json:"stack_pages"`
	Size       int64     `json:"size"`
	MemLimit   int64     `json:"mem_limit"` // 0 means unlimited
	Killed     bool      `json:"killed"`
	CreatedAt  time.Time `json:"created_at"`

	// Scheduler bookkeeping, mutated only by the enqueue policy.
	Tier        int    `json:"tier"`
	QuantumUsed int    `json:"quantum_used"`
	Priority    int    `json:"priority"`
	EntryTime   uint64 `json:"entry_time"`

	// WakeTick is the clock tick at which a SLEEPING process becomes runnable.
	WakeTick uint64 `json:"-"`
	// Ticks counts every tick the process has run for.
	Ticks uint64 `json:"ticks"`
}

// Info returns a read-only snapshot for listing.
func (p *Process) Info() ProcessInfo {
	return ProcessInfo{
		PID:         p.PID,
		Name:        p.Name,
		State:       p.State,
		StackPages:  p.StackPages,
		Size:        p.Size,
		MemLimit:    p.MemLimit,
		Tier:        p.Tier,
		Priority:    p.Priority,
		QuantumUsed: p.QuantumUsed,
		Ticks:       p.Ticks,
	}
}

// ProcessInfo is the listing view of a Process returned by the process manager.
type ProcessInfo struct {
	PID         int       `json:"pid"`
	Name        string    `json:"name"`
	State       ProcState `json:"state"`
	StackPages  int       `json:"stack_pages"`
	Size        int64     `json:"size"`
	MemLimit    int64     `json:"mem_limit"`
	Tier        int       `json:"tier"`
	Priority    int       `json:"priority"`
	QuantumUsed int       `json:"quantum_used"`
	Ticks       uint64    `json:"ticks"`
}

// Event is a process lifecycle record written to the journal.
type Event struct {
	ID        string    `json:"id"`
	PID       int       `json:"pid"`
	Kind      EventKind `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	Tick      uint64    `json:"tick"`
	CreatedAt time.Time `json:"created_at"`
}

// Round summarises one pass of a CPU over the three tiers.
type Round struct {
	ID        string    `json:"id"`
	CPU       int       `json:"cpu"`
	Tick      uint64    `json:"tick"`
	Tier0     int       `json:"tier0"`
	Tier1     int       `json:"tier1"`
	Tier2     int       `json:"tier2"`
	CreatedAt time.Time `json:"created_at"`
}

// Total returns the number of processes run across all tiers.
func (r Round) Total() int {
	return r.Tier0 + r.Tier1 + r.Tier2
}
