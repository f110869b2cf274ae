package mlfq

import (
	"fmt"

	"github.com/me/mlfq/pkg/model"
)

// Enqueue places a process that became runnable into exactly one tier,
// promoting it first if it used up the quantum of its current tier.
func (s *State) Enqueue(p *model.Process) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.EnqueueLocked(p)
}

// EnqueueLocked is Enqueue for callers that already hold the lock, such as
// the trap path returning from Runner.Run.
func (s *State) EnqueueLocked(p *model.Process) error {
	level := p.Tier
	if p.QuantumUsed == model.MaxQuantum(level) {
		from := level
		level++
		p.QuantumUsed = 0
		if level >= model.HighestTier {
			p.EntryTime = s.clock.Now()
			if level > model.HighestTier {
				// Aging: a tier-2 process that keeps burning full quanta
				// stays at tier 2 but moves up among its peers.
				if p.Priority > 0 {
					p.Priority--
				}
				level = model.HighestTier
			}
		}
		s.counters[from].promoted++
		s.logger.Debug("quantum exhausted", "pid", p.PID, "from", from, "to", level, "priority", p.Priority)
	}
	p.Tier = level

	err := s.pushLocked(level, p)
	if err != nil && s.compactLocked(level) > 0 {
		err = s.pushLocked(level, p)
	}
	if err != nil {
		return fmt.Errorf("%w: tier %d, pid %d: %v", ErrQueueFull, level, p.PID, err)
	}
	return nil
}

func (s *State) pushLocked(tier int, p *model.Process) error {
	switch tier {
	case 0:
		return s.l0.Push(p)
	case 1:
		return s.l1.Push(p)
	default:
		return s.l2.Insert(p)
	}
}

func (s *State) popLocked(tier int) (*model.Process, bool) {
	switch tier {
	case 0:
		return s.l0.Pop()
	case 1:
		return s.l1.Pop()
	default:
		return s.l2.ExtractMin()
	}
}

// compactLocked removes the entries of a full tier that a drain would
// discard and returns how many went. Rings keep their FIFO order and heap
// entries keep their keys.
func (s *State) compactLocked(tier int) int {
	var keep []*model.Process
	dropped := 0
	for {
		p, ok := s.popLocked(tier)
		if !ok {
			break
		}
		if p.State != model.ProcStateRunnable {
			dropped++
			continue
		}
		keep = append(keep, p)
	}
	for _, p := range keep {
		// Every kept entry came out of this structure, so it fits.
		_ = s.pushLocked(tier, p)
	}
	if dropped > 0 {
		s.counters[tier].discarded += uint64(dropped)
		s.logger.Debug("compacted", "tier", tier, "dropped", dropped, "kept", len(keep))
	}
	return dropped
}

// GetLevel returns the tier of the process running on cpu, or model.NoLevel
// when the CPU is idle.
func (s *State) GetLevel(cpu *CPU) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cpu == nil || cpu.current == nil {
		return model.NoLevel
	}
	return cpu.current.Tier
}
