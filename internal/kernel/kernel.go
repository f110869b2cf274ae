// Package kernel simulates the parts of a teaching kernel the scheduler
// depends on: the process table, the trap path that returns a process to
// the ready queues after each tick, and the timer that wakes sleepers.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/me/mlfq/internal/logging"
	"github.com/me/mlfq/internal/mlfq"
	"github.com/me/mlfq/internal/program"
	"github.com/me/mlfq/pkg/model"
)

var (
	ErrNoSlot       = errors.New("process table full")
	ErrNoProcess    = errors.New("no such process")
	ErrBadStackSize = errors.New("stack size out of range")
	ErrMemLimit     = errors.New("invalid memory limit")

	// ErrStepTimeout and ErrKilled are the causes a running program step
	// is interrupted with.
	ErrStepTimeout = errors.New("step exceeded its time budget")
	ErrKilled      = errors.New("process killed")
)

// EventSink receives process lifecycle events. The store implements it.
type EventSink interface {
	RecordEvent(ctx context.Context, ev *model.Event) error
}

// Config holds kernel configuration.
type Config struct {
	MaxProcs    int
	TickDelay   time.Duration // wall time spent per simulated tick
	StepTimeout time.Duration // wall-time budget of one program step; 0 disables it
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxProcs: model.NProc, StepTimeout: time.Second}
}

type slot struct {
	proc     *model.Process
	behavior program.Behavior
	// interrupt cancels the step in progress; set only while RUNNING.
	interrupt context.CancelCauseFunc
}

// Kernel owns the process table and implements mlfq.Runner. The table is
// guarded by the scheduler lock, so a process's state and its queue
// membership always change together.
type Kernel struct {
	sched    *mlfq.State
	clock    *Clock
	programs *program.Registry
	sink     EventSink
	config   Config
	logger   *slog.Logger

	table   []*slot
	nextPID int
}

// New creates a kernel and installs it as the scheduler's runner.
func New(sched *mlfq.State, clock *Clock, programs *program.Registry, cfg Config, logger *slog.Logger) *Kernel {
	if cfg.MaxProcs <= 0 {
		cfg.MaxProcs = model.NProc
	}
	k := &Kernel{
		sched:    sched,
		clock:    clock,
		programs: programs,
		config:   cfg,
		logger:   logging.Component(logger, "kernel"),
		table:    make([]*slot, cfg.MaxProcs),
		nextPID:  1,
	}
	sched.SetRunner(k)
	return k
}

// SetEventSink attaches the journal. It must be called before any process
// is created.
func (k *Kernel) SetEventSink(sink EventSink) {
	k.sink = sink
}

// Clock returns the kernel clock.
func (k *Kernel) Clock() *Clock {
	return k.clock
}

// Exec creates a process running the program at path with a stack of
// stackPages pages, and makes it runnable at tier 0.
func (k *Kernel) Exec(path string, stackPages int) (*model.ProcessInfo, error) {
	if stackPages < 1 || stackPages > model.MaxStackPages {
		return nil, fmt.Errorf("exec %s: %w: %d (want 1..%d)", path, ErrBadStackSize, stackPages, model.MaxStackPages)
	}
	prog, err := k.programs.Lookup(path)
	if err != nil {
		return nil, fmt.Errorf("exec: %w", err)
	}

	// Reserve a slot first so a full table fails before any script runs.
	k.sched.Lock()
	idx := k.freeSlotLocked()
	if idx < 0 {
		k.sched.Unlock()
		return nil, fmt.Errorf("exec %s: %w", path, ErrNoSlot)
	}
	p := &model.Process{
		PID:        k.nextPID,
		Name:       prog.Name,
		Path:       path,
		State:      model.ProcStateEmbryo,
		StackPages: stackPages,
		Size:       prog.ImageSize + int64(stackPages+1)*model.PageSize,
		Priority:   model.DefaultPriority,
		CreatedAt:  time.Now().UTC(),
	}
	k.nextPID++
	k.table[idx] = &slot{proc: p}
	ctx, cancel := k.stepContext()
	k.table[idx].interrupt = cancel
	k.sched.Unlock()

	behavior, err := prog.Start(ctx, p.PID)
	cancel(nil)

	k.sched.Lock()
	if k.table[idx] == nil || k.table[idx].proc != p {
		// Killed while the program was being loaded.
		k.sched.Unlock()
		return nil, fmt.Errorf("exec %s: pid %d: %w", path, p.PID, ErrNoProcess)
	}
	if err != nil {
		k.table[idx] = nil
		k.sched.Unlock()
		return nil, fmt.Errorf("exec %s: %w", path, err)
	}
	k.table[idx].behavior = behavior
	k.table[idx].interrupt = nil
	k.setStateLocked(p, model.ProcStateRunnable)
	if err := k.sched.EnqueueLocked(p); err != nil {
		k.table[idx] = nil
		k.setStateLocked(p, model.ProcStateZombie)
		k.sched.Unlock()
		return nil, fmt.Errorf("exec %s: %w", path, err)
	}
	info := p.Info()
	k.sched.Unlock()

	k.logger.Info("process created", "pid", p.PID, "name", p.Name, "stack_pages", stackPages)
	k.emit(k.event(p.PID, model.EventExec, fmt.Sprintf("%s stack=%d", path, stackPages)))
	return &info, nil
}

// Kill terminates a process. A running process is flagged, its step is
// interrupted, and it exits when it returns from its tick; any other process exits immediately. Entries still
// sitting in a ready queue are dropped by the dispatcher.
func (k *Kernel) Kill(pid int) error {
	k.sched.Lock()
	idx := k.findLocked(pid)
	if idx < 0 {
		k.sched.Unlock()
		return fmt.Errorf("kill %d: %w", pid, ErrNoProcess)
	}
	p := k.table[idx].proc
	if p.State == model.ProcStateRunning {
		p.Killed = true
		k.interruptLocked(idx)
	} else {
		k.exitLocked(idx)
	}
	k.sched.Unlock()

	k.logger.Info("process killed", "pid", pid)
	k.emit(k.event(pid, model.EventKill, ""))
	return nil
}

// Halt kills every process. Running processes have their step interrupted,
// so once Halt returns every CPU's drain ends after at most one more tick.
func (k *Kernel) Halt() int {
	var events []*model.Event
	k.sched.Lock()
	for i, s := range k.table {
		if s == nil {
			continue
		}
		if s.proc.State == model.ProcStateRunning {
			s.proc.Killed = true
			k.interruptLocked(i)
		} else {
			k.exitLocked(i)
		}
		events = append(events, k.event(s.proc.PID, model.EventKill, "halt"))
	}
	k.sched.Unlock()

	if len(events) > 0 {
		k.logger.Info("halted", "killed", len(events))
	}
	k.emit(events...)
	return len(events)
}

// SetMemoryLimit caps the memory of pid at limit bytes; 0 removes the cap.
// The limit may not be below the process's current size.
func (k *Kernel) SetMemoryLimit(pid int, limit int64) error {
	if limit < 0 {
		return fmt.Errorf("memlim %d: %w: negative limit", pid, ErrMemLimit)
	}
	k.sched.Lock()
	idx := k.findLocked(pid)
	if idx < 0 {
		k.sched.Unlock()
		return fmt.Errorf("memlim %d: %w", pid, ErrNoProcess)
	}
	p := k.table[idx].proc
	if limit > 0 && limit < p.Size {
		k.sched.Unlock()
		return fmt.Errorf("memlim %d: %w: %d below current size %d", pid, ErrMemLimit, limit, p.Size)
	}
	p.MemLimit = limit
	k.sched.Unlock()

	k.logger.Info("memory limit set", "pid", pid, "limit", limit)
	k.emit(k.event(pid, model.EventMemLimit, fmt.Sprintf("%d", limit)))
	return nil
}

// SetPriority changes the tier-2 priority of pid.
func (k *Kernel) SetPriority(pid, priority int) error {
	k.sched.Lock()
	idx := k.findLocked(pid)
	var p *model.Process
	if idx >= 0 {
		p = k.table[idx].proc
	}
	k.sched.Unlock()
	if p == nil {
		return fmt.Errorf("priority %d: %w", pid, ErrNoProcess)
	}
	if err := k.sched.SetPriority(p, priority); err != nil {
		return err
	}
	k.emit(k.event(pid, model.EventPriority, fmt.Sprintf("%d", priority)))
	return nil
}

// List returns a snapshot of the live processes ordered by pid.
func (k *Kernel) List() []model.ProcessInfo {
	k.sched.Lock()
	out := make([]model.ProcessInfo, 0, len(k.table))
	for _, s := range k.table {
		if s != nil {
			out = append(out, s.proc.Info())
		}
	}
	k.sched.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

// Get returns a snapshot of one process.
func (k *Kernel) Get(pid int) (*model.ProcessInfo, error) {
	k.sched.Lock()
	defer k.sched.Unlock()
	idx := k.findLocked(pid)
	if idx < 0 {
		return nil, fmt.Errorf("get %d: %w", pid, ErrNoProcess)
	}
	info := k.table[idx].proc.Info()
	return &info, nil
}

// Live returns the number of processes in the table.
func (k *Kernel) Live() int {
	k.sched.Lock()
	defer k.sched.Unlock()
	n := 0
	for _, s := range k.table {
		if s != nil {
			n++
		}
	}
	return n
}

// Wake is the timer-side half of sleep: every sleeper whose wake tick has
// passed becomes runnable and re-enters the ready queues with its partial
// quantum intact. It returns how many processes were woken.
func (k *Kernel) Wake() int {
	now := k.clock.Now()
	var events []*model.Event
	woken := 0

	k.sched.Lock()
	for i, s := range k.table {
		if s == nil || s.proc.State != model.ProcStateSleeping || s.proc.WakeTick > now {
			continue
		}
		k.setStateLocked(s.proc, model.ProcStateRunnable)
		if ev := k.enqueueLocked(i); ev != nil {
			events = append(events, ev)
		}
		woken++
	}
	k.sched.Unlock()

	k.emit(events...)
	return woken
}

func (k *Kernel) freeSlotLocked() int {
	for i, s := range k.table {
		if s == nil {
			return i
		}
	}
	return -1
}

func (k *Kernel) findLocked(pid int) int {
	for i, s := range k.table {
		if s != nil && s.proc.PID == pid {
			return i
		}
	}
	return -1
}

// exitLocked turns the process into a zombie and releases its slot. The
// process struct itself stays ZOMBIE forever, which is what lets stale
// queue entries be recognised and skipped.
func (k *Kernel) exitLocked(idx int) {
	k.interruptLocked(idx)
	k.setStateLocked(k.table[idx].proc, model.ProcStateZombie)
	k.table[idx] = nil
}

func (k *Kernel) interruptLocked(idx int) {
	if stop := k.table[idx].interrupt; stop != nil {
		stop(ErrKilled)
		k.table[idx].interrupt = nil
	}
}

// stepContext bounds one program step by StepTimeout. The returned cancel
// also serves Kill, which interrupts with ErrKilled.
func (k *Kernel) stepContext() (context.Context, context.CancelCauseFunc) {
	ctx, cancel := context.WithCancelCause(context.Background())
	if k.config.StepTimeout <= 0 {
		return ctx, cancel
	}
	tctx, stop := context.WithTimeoutCause(ctx, k.config.StepTimeout, ErrStepTimeout)
	return tctx, func(cause error) {
		cancel(cause)
		stop()
	}
}

// enqueueLocked re-queues the process in slot idx and reports promotions
// and overflows as events. A process that cannot be queued is terminated
// rather than left unreachable.
func (k *Kernel) enqueueLocked(idx int) *model.Event {
	p := k.table[idx].proc
	tier, priority := p.Tier, p.Priority
	if err := k.sched.EnqueueLocked(p); err != nil {
		k.logger.Error("enqueue failed", "pid", p.PID, "error", err)
		k.exitLocked(idx)
		return k.event(p.PID, model.EventOverflow, err.Error())
	}
	if p.Tier != tier || p.Priority != priority {
		return k.event(p.PID, model.EventPromote, fmt.Sprintf("tier %d->%d priority %d->%d", tier, p.Tier, priority, p.Priority))
	}
	return nil
}

// setStateLocked moves p to next. Transitions outside the process
// lifecycle are logged but still applied: the table must reflect what the
// kernel did.
func (k *Kernel) setStateLocked(p *model.Process, next model.ProcState) {
	if !p.State.CanTransitionTo(next) {
		k.logger.Error("unexpected state transition",
			"error", &model.InvalidTransitionError{PID: p.PID, From: p.State, To: next})
	}
	p.State = next
}

func (k *Kernel) event(pid int, kind model.EventKind, detail string) *model.Event {
	return &model.Event{
		ID:        "evt_" + uuid.New().String(),
		PID:       pid,
		Kind:      kind,
		Detail:    detail,
		Tick:      k.clock.Now(),
		CreatedAt: time.Now().UTC(),
	}
}

// emit must be called without the scheduler lock held.
func (k *Kernel) emit(events ...*model.Event) {
	if k.sink == nil {
		return
	}
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if err := k.sink.RecordEvent(context.Background(), ev); err != nil {
			k.logger.Warn("record event", "pid", ev.PID, "kind", ev.Kind, "error", err)
		}
	}
}
