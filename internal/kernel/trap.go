package kernel

import (
	"fmt"
	"time"

	"github.com/me/mlfq/internal/mlfq"
	"github.com/me/mlfq/internal/program"
	"github.com/me/mlfq/pkg/model"
)

// Run executes one tick of p on cpu. It is the context switch seen by the
// dispatcher: it returns once the tick is over and p has been put back in a
// ready queue, put to sleep, or terminated.
func (k *Kernel) Run(cpu *mlfq.CPU, p *model.Process) {
	k.sched.Lock()
	idx := k.findLocked(p.PID)
	var behavior program.Behavior
	ctx, cancel := k.stepContext()
	defer cancel(nil)
	if idx >= 0 {
		behavior = k.table[idx].behavior
		k.table[idx].interrupt = cancel
		if p.Killed {
			// Killed between dispatch and switch.
			cancel(ErrKilled)
		}
	} else {
		// Slot vanished between dispatch and switch; nothing to run.
		if !p.State.IsTerminal() {
			k.setStateLocked(p, model.ProcStateZombie)
		}
	}
	tick := p.Ticks
	k.sched.Unlock()

	if behavior == nil {
		return
	}

	action, stepErr := behavior.Next(ctx, tick)
	if k.config.TickDelay > 0 {
		time.Sleep(k.config.TickDelay)
	}
	now := k.clock.Advance()

	var events []*model.Event
	k.sched.Lock()
	k.table[idx].interrupt = nil
	p.Ticks++
	p.QuantumUsed++

	switch {
	case p.Killed:
		k.exitLocked(idx)
		events = append(events, k.event(p.PID, model.EventExit, "killed"))
	case stepErr != nil:
		k.logger.Error("program fault", "pid", p.PID, "error", stepErr)
		k.exitLocked(idx)
		events = append(events, k.event(p.PID, model.EventExit, "fault: "+stepErr.Error()))
	case action.Kind == program.ActionExit:
		k.exitLocked(idx)
		events = append(events, k.event(p.PID, model.EventExit, "exit"))
	case action.Kind == program.ActionSleep:
		k.setStateLocked(p, model.ProcStateSleeping)
		p.WakeTick = now + uint64(action.N)
	case action.Kind == program.ActionGrow && p.MemLimit > 0 && p.Size+int64(action.N) > p.MemLimit:
		k.exitLocked(idx)
		events = append(events, k.event(p.PID, model.EventExit,
			fmt.Sprintf("memory limit exceeded: %d + %d > %d", p.Size, action.N, p.MemLimit)))
	default:
		if action.Kind == program.ActionGrow {
			p.Size += int64(action.N)
		}
		k.setStateLocked(p, model.ProcStateRunnable)
		if ev := k.enqueueLocked(idx); ev != nil {
			events = append(events, ev)
		}
	}
	state := p.State
	k.sched.Unlock()

	k.logger.Debug("tick", "cpu", cpu.ID, "pid", p.PID, "action", action.String(), "state", state, "tick", now)
	k.emit(events...)
}
