package mlfq

import (
	"github.com/me/mlfq/pkg/model"
)

// DispatchTier0 drains tier 0 and returns how many processes ran.
func (s *State) DispatchTier0(cpu *CPU) int {
	return s.drain(cpu, 0, s.l0.Pop)
}

// DispatchTier1 drains tier 1 and returns how many processes ran.
func (s *State) DispatchTier1(cpu *CPU) int {
	return s.drain(cpu, 1, s.l1.Pop)
}

// DispatchTier2 drains the priority heap and returns how many processes ran.
func (s *State) DispatchTier2(cpu *CPU) int {
	return s.drain(cpu, 2, s.l2.ExtractMin)
}

// drain pops until the structure is empty. The emptiness check runs on every
// iteration, so entries pushed into this tier while a process was running
// are serviced before drain returns. Entries that are no longer RUNNABLE
// were killed or put to sleep while queued and are dropped.
func (s *State) drain(cpu *CPU, tier int, pop func() (*model.Process, bool)) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ran := 0
	cpu.current = nil
	for {
		p, ok := pop()
		if !ok {
			break
		}
		if p.State != model.ProcStateRunnable {
			s.counters[tier].discarded++
			s.logger.Debug("discard", "cpu", cpu.ID, "tier", tier, "pid", p.PID, "state", p.State)
			continue
		}

		ran++
		s.counters[tier].dispatched++
		cpu.current = p
		p.State = model.ProcStateRunning
		s.logger.Debug("dispatch", "cpu", cpu.ID, "tier", tier, "pid", p.PID, "quantum", p.QuantumUsed)

		runner := s.runner
		s.mu.Unlock()
		runner.Run(cpu, p)
		s.mu.Lock()

		cpu.current = nil
	}
	return ran
}
