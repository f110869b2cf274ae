package model

// ProcState represents the lifecycle state of a Process.
type ProcState string

const (
	ProcStateUnused   ProcState = "UNUSED"
	ProcStateEmbryo   ProcState = "EMBRYO"
	ProcStateSleeping ProcState = "SLEEPING"
	ProcStateRunnable ProcState = "RUNNABLE"
	ProcStateRunning  ProcState = "RUNNING"
	ProcStateZombie   ProcState = "ZOMBIE"
)

// String returns the string representation of the process state.
func (s ProcState) String() string {
	return string(s)
}

// IsTerminal returns true if the process will never run again.
func (s ProcState) IsTerminal() bool {
	switch s {
	case ProcStateZombie, ProcStateUnused:
		return true
	}
	return false
}

// ValidProcTransitions defines the allowed state transitions for Processes.
// Only RUNNABLE -> RUNNING is made by the scheduler; the rest belong to the kernel.
var ValidProcTransitions = map[ProcState][]ProcState{
	ProcStateUnused:   {ProcStateEmbryo},
	ProcStateEmbryo:   {ProcStateRunnable, ProcStateZombie},
	ProcStateRunnable: {ProcStateRunning, ProcStateZombie},
	ProcStateRunning:  {ProcStateRunnable, ProcStateSleeping, ProcStateZombie},
	ProcStateSleeping: {ProcStateRunnable, ProcStateZombie},
	ProcStateZombie:   {ProcStateUnused},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s ProcState) CanTransitionTo(next ProcState) bool {
	for _, allowed := range ValidProcTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// EventKind identifies a process lifecycle event recorded in the journal.
type EventKind string

const (
	EventExec     EventKind = "exec"
	EventKill     EventKind = "kill"
	EventExit     EventKind = "exit"
	EventMemLimit EventKind = "memlim"
	EventPromote  EventKind = "promote"
	EventPriority EventKind = "priority"
	EventOverflow EventKind = "overflow"
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	return string(k)
}
