package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/me/mlfq/internal/logging"
	"github.com/me/mlfq/internal/mlfq"
	"github.com/me/mlfq/pkg/model"
)

// Config holds scheduler configuration.
type Config struct {
	// IdleInterval is how long a CPU waits after a round that ran nothing.
	IdleInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{IdleInterval: 10 * time.Millisecond}
}

// Waker moves sleepers whose wake tick has passed back onto the ready queues.
type Waker interface {
	Wake() int
}

// Ticker is the clock shared with the kernel.
type Ticker interface {
	Now() uint64
	Advance() uint64
}

// Journal records dispatch rounds. The store implements it.
type Journal interface {
	RecordRound(ctx context.Context, r *model.Round) error
}

// Loop implements the Scheduler interface for one CPU.
type Loop struct {
	sched   *mlfq.State
	waker   Waker
	clock   Ticker
	journal Journal
	cpu     *mlfq.CPU
	timer   bool
	config  Config
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewLoop creates the scheduler loop for CPU id. journal may be nil.
func NewLoop(id int, sched *mlfq.State, waker Waker, clock Ticker, journal Journal, cfg Config, logger *slog.Logger) *Loop {
	return &Loop{
		sched:   sched,
		waker:   waker,
		clock:   clock,
		journal: journal,
		cpu:     &mlfq.CPU{ID: id},
		timer:   id == 0,
		config:  cfg,
		logger:  logging.Component(logger, "scheduler").With("cpu", id),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// CPU returns the loop's dispatch context.
func (l *Loop) CPU() *mlfq.CPU {
	return l.cpu
}

// Start runs rounds back to back until ctx is cancelled or Stop is called.
// A round that dispatched nothing is followed by IdleInterval of waiting.
func (l *Loop) Start(ctx context.Context) error {
	l.logger.Info("scheduler started", "idle_interval", l.config.IdleInterval)
	defer close(l.doneCh)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("scheduler stopping (context cancelled)")
			return ctx.Err()
		case <-l.stopCh:
			l.logger.Info("scheduler stopping (stop called)")
			return nil
		case <-timer.C:
		}

		r, err := l.Round(ctx)
		if err != nil {
			l.logger.Error("tick error", "error", err)
		}
		wait := time.Duration(0)
		if r.Total() == 0 {
			wait = l.config.IdleInterval
		}
		timer.Reset(wait)
	}
}

// Stop gracefully shuts down the loop and waits for the current round to finish.
func (l *Loop) Stop() error {
	close(l.stopCh)
	<-l.doneCh
	return nil
}

// Tick runs a single scheduling round.
func (l *Loop) Tick(ctx context.Context) error {
	_, err := l.Round(ctx)
	return err
}

// Round wakes sleepers, drains tiers 0, 1 and 2 in that order and returns
// how many processes ran from each. Busy rounds are written to the journal.
// On CPU 0 an idle round also advances the clock, standing in for the timer
// interrupt that would otherwise only fire while something runs.
func (l *Loop) Round(ctx context.Context) (model.Round, error) {
	if l.waker != nil {
		l.waker.Wake()
	}

	r := model.Round{CPU: l.cpu.ID}
	r.Tier0 = l.sched.DispatchTier0(l.cpu)
	r.Tier1 = l.sched.DispatchTier1(l.cpu)
	r.Tier2 = l.sched.DispatchTier2(l.cpu)
	r.Tick = l.clock.Now()

	if r.Total() == 0 {
		if l.timer {
			l.clock.Advance()
		}
		return r, nil
	}

	l.logger.Debug("round", "tick", r.Tick, "tier0", r.Tier0, "tier1", r.Tier1, "tier2", r.Tier2)
	if l.journal == nil {
		return r, nil
	}
	r.ID = "rnd_" + uuid.New().String()
	r.CreatedAt = time.Now().UTC()
	if err := l.journal.RecordRound(ctx, &r); err != nil {
		return r, err
	}
	return r, nil
}
