package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/me/mlfq/internal/logging"
	"github.com/me/mlfq/internal/mlfq"
)

// Group runs one Loop per CPU against the same scheduler state.
type Group struct {
	loops  []*Loop
	logger *slog.Logger
}

// NewGroup creates cpus loops. CPU 0 doubles as the timer.
func NewGroup(cpus int, sched *mlfq.State, waker Waker, clock Ticker, journal Journal, cfg Config, logger *slog.Logger) *Group {
	if cpus < 1 {
		cpus = 1
	}
	g := &Group{logger: logging.Component(logger, "scheduler")}
	for i := 0; i < cpus; i++ {
		g.loops = append(g.loops, NewLoop(i, sched, waker, clock, journal, cfg, logger))
	}
	return g
}

// Loops returns the per-CPU loops.
func (g *Group) Loops() []*Loop {
	return g.loops
}

// CPUs returns the dispatch context of every loop, in CPU order.
func (g *Group) CPUs() []*mlfq.CPU {
	cpus := make([]*mlfq.CPU, len(g.loops))
	for i, l := range g.loops {
		cpus[i] = l.CPU()
	}
	return cpus
}

// Start runs every loop on its own goroutine and blocks until all return.
func (g *Group) Start(ctx context.Context) error {
	g.logger.Info("starting cpus", "count", len(g.loops))

	var wg sync.WaitGroup
	errs := make([]error, len(g.loops))
	for i, l := range g.loops {
		wg.Add(1)
		go func(i int, l *Loop) {
			defer wg.Done()
			errs[i] = l.Start(ctx)
		}(i, l)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Stop stops every loop. Start must be running.
func (g *Group) Stop() error {
	for _, l := range g.loops {
		l.Stop()
	}
	return nil
}

// Tick runs one round on each CPU in turn.
func (g *Group) Tick(ctx context.Context) error {
	var errs []error
	for _, l := range g.loops {
		if err := l.Tick(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
