// Package program defines the workloads the simulated kernel can execute.
//
// A program is either a list of steps ("run:20", "sleep:3", "grow:4096",
// "exit") or a JavaScript function step(tick, pid) evaluated with goja that
// returns one such step per tick.
package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"
	"github.com/me/mlfq/pkg/model"
)

// Program is a named workload definition.
type Program struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	ImageSize   int64    `yaml:"image_size,omitempty" json:"image_size,omitempty"`
	Steps       []string `yaml:"steps,omitempty" json:"steps,omitempty"`
	Repeat      int      `yaml:"repeat,omitempty" json:"repeat,omitempty"` // extra passes over Steps; -1 loops forever
	Script      string   `yaml:"script,omitempty" json:"script,omitempty"`

	actions []Action
	code    *goja.Program
}

// Behavior yields the next action of a running process, one tick at a time.
// A Behavior is used by one process and is never called concurrently.
// Next returns promptly with ctx's cause once ctx is done.
type Behavior interface {
	Next(ctx context.Context, tick uint64) (Action, error)
}

// Compile validates the program and prepares it for Start.
func (p *Program) Compile() error {
	if p.Name == "" {
		return fmt.Errorf("program: name is required")
	}
	if p.ImageSize <= 0 {
		p.ImageSize = model.PageSize
	}
	if p.Script != "" {
		code, err := goja.Compile(p.Name, p.Script, false)
		if err != nil {
			return fmt.Errorf("program %s: compile script: %w", p.Name, err)
		}
		p.code = code
		return nil
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("program %s: steps or script is required", p.Name)
	}
	p.actions = p.actions[:0]
	for i, s := range p.Steps {
		a, err := ParseAction(s)
		if err != nil {
			return fmt.Errorf("program %s: steps[%d]: %w", p.Name, i, err)
		}
		p.actions = append(p.actions, a)
	}
	return nil
}

// Start creates the per-process behavior. A script's top level runs until
// it returns or ctx is done.
func (p *Program) Start(ctx context.Context, pid int) (Behavior, error) {
	if p.code != nil {
		return newScriptBehavior(ctx, p, pid)
	}
	if p.actions == nil {
		return nil, fmt.Errorf("program %s: not compiled", p.Name)
	}
	return &stepBehavior{actions: p.actions, passes: p.Repeat}, nil
}

// stepBehavior walks the step list; run:N and sleep:N count down before the
// cursor advances.
type stepBehavior struct {
	actions []Action
	passes  int
	cursor  int
	left    int
}

func (b *stepBehavior) Next(context.Context, uint64) (Action, error) {
	for {
		if b.cursor >= len(b.actions) {
			if b.passes == 0 {
				return Action{Kind: ActionExit}, nil
			}
			if b.passes > 0 {
				b.passes--
			}
			b.cursor = 0
		}
		a := b.actions[b.cursor]
		switch a.Kind {
		case ActionRun:
			if b.left == 0 {
				b.left = a.N
			}
			b.left--
			if b.left == 0 {
				b.cursor++
			}
			return Action{Kind: ActionRun, N: 1}, nil
		case ActionExit:
			return a, nil
		default:
			b.cursor++
			return a, nil
		}
	}
}

// scriptBehavior calls the script's step function once per tick.
type scriptBehavior struct {
	vm   *goja.Runtime
	step goja.Callable
	pid  int
}

func newScriptBehavior(ctx context.Context, p *Program, pid int) (*scriptBehavior, error) {
	vm := goja.New()
	if _, err := interruptible(ctx, vm, func() (goja.Value, error) { return vm.RunProgram(p.code) }); err != nil {
		return nil, fmt.Errorf("program %s: run script: %w", p.Name, err)
	}
	step, ok := goja.AssertFunction(vm.Get("step"))
	if !ok {
		return nil, fmt.Errorf("program %s: script must define function step(tick, pid)", p.Name)
	}
	return &scriptBehavior{vm: vm, step: step, pid: pid}, nil
}

func (b *scriptBehavior) Next(ctx context.Context, tick uint64) (Action, error) {
	v, err := interruptible(ctx, b.vm, func() (goja.Value, error) {
		return b.step(goja.Undefined(), b.vm.ToValue(tick), b.vm.ToValue(b.pid))
	})
	if err != nil {
		return Action{}, fmt.Errorf("step(%d): %w", tick, err)
	}
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return Action{Kind: ActionExit}, nil
	}
	return ParseAction(v.String())
}

// interruptible runs fn on vm and interrupts it when ctx is done. An
// interrupted run reports ctx's cause.
func interruptible(ctx context.Context, vm *goja.Runtime, fn func() (goja.Value, error)) (goja.Value, error) {
	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}
	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(done)
		vm.Interrupt(context.Cause(ctx))
	})
	v, err := fn()
	if !stop() {
		// Let a late interrupt land before clearing it so the next call
		// starts clean.
		<-done
		vm.ClearInterrupt()
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) && ctx.Err() != nil {
		return nil, fmt.Errorf("interrupted: %w", context.Cause(ctx))
	}
	return v, err
}
