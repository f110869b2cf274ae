// Package mlfq holds the multi-level feedback queue: two FIFO tiers, one
// priority tier, the policy that moves processes between them, and the
// per-tier dispatch loops.
//
// All queue mutation happens with the State's lock held. The dispatch loops
// release it for the duration of Runner.Run so the running process (or
// another CPU) can re-enter Enqueue.
package mlfq

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/me/mlfq/internal/heap"
	"github.com/me/mlfq/internal/logging"
	"github.com/me/mlfq/internal/queue"
	"github.com/me/mlfq/pkg/model"
)

// ErrQueueFull is returned by Enqueue when the target tier is at capacity.
var ErrQueueFull = errors.New("scheduler queue full")

// ErrBadPriority is returned by SetPriority for values outside 0..MaxPriority.
var ErrBadPriority = errors.New("priority out of range")

// Clock supplies the monotonic tick count used to stamp tier-2 entry times.
type Clock interface {
	Now() uint64
}

// Runner performs the context switch into p on cpu and returns once p gives
// the CPU back, whether by yielding, sleeping, exiting or exhausting its tick.
type Runner interface {
	Run(cpu *CPU, p *model.Process)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(cpu *CPU, p *model.Process)

// Run calls f(cpu, p).
func (f RunnerFunc) Run(cpu *CPU, p *model.Process) { f(cpu, p) }

// CPU is the per-CPU dispatch context.
type CPU struct {
	ID      int
	current *model.Process
}

// Current returns the process running on the CPU, or nil. The caller must
// hold the scheduler lock; GetLevel is the locked query.
func (c *CPU) Current() *model.Process {
	return c.current
}

// Config sizes the queues.
type Config struct {
	Capacity int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Capacity: model.QueueCapacity}
}

// tierCounters are diagnostic counters, never used for control flow.
type tierCounters struct {
	dispatched uint64
	discarded  uint64
	promoted   uint64
}

// State is the scheduler's single long-lived instance. It owns the three
// tier structures and the lock that guards them.
type State struct {
	mu     sync.Mutex
	l0     *queue.Ring[*model.Process]
	l1     *queue.Ring[*model.Process]
	l2     *heap.Heap
	clock  Clock
	runner Runner
	logger *slog.Logger

	counters [model.HighestTier + 1]tierCounters
}

// New creates the scheduler state.
func New(cfg Config, clock Clock, runner Runner, logger *slog.Logger) *State {
	if cfg.Capacity <= 0 {
		cfg.Capacity = model.QueueCapacity
	}
	return &State{
		l0:     queue.NewRing[*model.Process](cfg.Capacity),
		l1:     queue.NewRing[*model.Process](cfg.Capacity),
		l2:     heap.New(cfg.Capacity),
		clock:  clock,
		runner: runner,
		logger: logging.Component(logger, "mlfq"),
	}
}

// SetRunner replaces the context-switch runner. It exists because the
// kernel that implements Runner needs the State to be built first.
func (s *State) SetRunner(r Runner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runner = r
}

// Lock acquires the scheduler lock. Process state owned by the kernel is
// guarded by the same lock.
func (s *State) Lock() { s.mu.Lock() }

// Unlock releases the scheduler lock.
func (s *State) Unlock() { s.mu.Unlock() }

// Len returns the number of entries queued at tier.
func (s *State) Len(tier int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lenLocked(tier)
}

func (s *State) lenLocked(tier int) int {
	switch tier {
	case 0:
		return s.l0.Len()
	case 1:
		return s.l1.Len()
	default:
		return s.l2.Len()
	}
}

// Stats returns per-tier queue lengths and dispatch counters.
func (s *State) Stats() []model.TierStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.TierStats, 0, len(s.counters))
	for tier, c := range s.counters {
		out = append(out, model.TierStats{
			Tier:       tier,
			Queued:     s.lenLocked(tier),
			Dispatched: c.dispatched,
			Discarded:  c.discarded,
			Promoted:   c.promoted,
		})
	}
	return out
}

// Snapshot returns the PIDs queued at each tier: FIFO order for the rings,
// array order for the heap.
func (s *State) Snapshot() [][]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]int, model.HighestTier+1)
	for i := range out {
		out[i] = []int{}
	}
	s.l0.Each(func(p *model.Process) { out[0] = append(out[0], p.PID) })
	s.l1.Each(func(p *model.Process) { out[1] = append(out[1], p.PID) })
	for _, p := range s.l2.Snapshot() {
		out[2] = append(out[2], p.PID)
	}
	return out
}

// SetPriority changes a process's tier-2 priority. A process already queued
// in the heap is located and re-sifted in place.
func (s *State) SetPriority(p *model.Process, priority int) error {
	if priority < 0 || priority > model.MaxPriority {
		return fmt.Errorf("set priority %d for pid %d: %w", priority, p.PID, ErrBadPriority)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Priority = priority
	if i := s.l2.Find(p.PID); i != heap.NotFound && s.l2.At(i) == p {
		s.l2.Fix(i)
	}
	return nil
}
