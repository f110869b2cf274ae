package model

import "testing"

func TestProcState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    ProcState
		terminal bool
	}{
		{ProcStateUnused, true},
		{ProcStateEmbryo, false},
		{ProcStateSleeping, false},
		{ProcStateRunnable, false},
		{ProcStateRunning, false},
		{ProcStateZombie, true},
	}
	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.terminal {
			t.Errorf("ProcState(%q).IsTerminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}

func TestProcState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from  ProcState
		to    ProcState
		valid bool
	}{
		{ProcStateEmbryo, ProcStateRunnable, true},
		{ProcStateEmbryo, ProcStateZombie, true},
		{ProcStateRunnable, ProcStateRunning, true},
		{ProcStateRunning, ProcStateRunnable, true},
		{ProcStateRunning, ProcStateSleeping, true},
		{ProcStateRunning, ProcStateZombie, true},
		{ProcStateSleeping, ProcStateRunnable, true},
		{ProcStateSleeping, ProcStateZombie, true},
		{ProcStateZombie, ProcStateUnused, true},

		{ProcStateSleeping, ProcStateRunning, false},
		{ProcStateZombie, ProcStateRunning, false},
		{ProcStateUnused, ProcStateRunnable, false},
		{ProcStateRunnable, ProcStateSleeping, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.valid {
			t.Errorf("%s.CanTransitionTo(%s) = %v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}

func TestProcess_Info(t *testing.T) {
	p := &Process{PID: 4, Name: "cpu", State: ProcStateRunnable, Tier: 1, Priority: 3, QuantumUsed: 2, StackPages: 2}
	info := p.Info()
	if info.PID != 4 || info.Tier != 1 || info.Priority != 3 || info.QuantumUsed != 2 {
		t.Errorf("Info() = %+v, unexpected fields", info)
	}
	if info.State != ProcStateRunnable {
		t.Errorf("State = %s, want RUNNABLE", info.State)
	}
}
