package model

// Kernel-wide limits. Queue capacity must exceed the process count so a
// ring buffer never has to hold more than Cap()-1 entries.
const (
	NProc         = 64  // maximum number of processes
	QueueCapacity = 128 // capacity of each scheduler queue
	NCPU          = 8   // maximum number of CPUs
	PageSize      = 4096
	MaxStackPages = 100

	// HighestTier is the last feedback level; it is backed by the priority heap.
	HighestTier = 2

	// NoLevel is returned by GetLevel when no process is running on the CPU.
	// Tier 0 is a real answer, so callers must compare against NoLevel.
	NoLevel = -1

	DefaultPriority = 5
	MaxPriority     = 10
)

// MaxQuantum returns the number of ticks a process may consume at level
// before it is promoted: 4 at tier 0, 6 at tier 1, 8 at tier 2.
func MaxQuantum(level int) int {
	return 2*level + 4
}
