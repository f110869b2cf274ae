package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/me/mlfq/internal/kernel"
	"github.com/me/mlfq/internal/mlfq"
	"github.com/me/mlfq/internal/program"
	"github.com/me/mlfq/internal/store"
	"github.com/me/mlfq/pkg/model"
)

type testEnv struct {
	sched  *mlfq.State
	kernel *kernel.Kernel
	clock  *kernel.Clock
	store  store.Store
	logger *slog.Logger
}

// testSetup wires an in-memory journal, the scheduler state and a kernel
// the same way mlfqd does.
func testSetup(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	clock := &kernel.Clock{}
	sched := mlfq.New(mlfq.DefaultConfig(), clock, nil, logger)
	k := kernel.New(sched, clock, program.NewRegistry(), kernel.DefaultConfig(), logger)
	k.SetEventSink(st)

	return &testEnv{sched: sched, kernel: k, clock: clock, store: st, logger: logger}
}

func (e *testEnv) loop(id int) *Loop {
	return NewLoop(id, e.sched, e.kernel, e.clock, e.store, Config{IdleInterval: time.Millisecond}, e.logger)
}

func (e *testEnv) exec(t *testing.T, path string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := e.kernel.Exec(path, 1); err != nil {
			t.Fatalf("Exec(%s): %v", path, err)
		}
	}
}

func waitIdle(t *testing.T, k *kernel.Kernel) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for k.Live() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("%d processes still live after deadline", k.Live())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRound_DrainsTiersInOrder(t *testing.T) {
	env := testSetup(t)
	env.exec(t, "cpu", 3)
	l := env.loop(0)

	r, err := l.Round(context.Background())
	if err != nil {
		t.Fatalf("Round: %v", err)
	}

	// 4 ticks each at tier 0, 6 each at tier 1, then the remaining 51
	// (50 runs plus the exit step) at tier 2.
	if r.Tier0 != 12 || r.Tier1 != 18 || r.Tier2 != 153 {
		t.Errorf("round = %d/%d/%d, want 12/18/153", r.Tier0, r.Tier1, r.Tier2)
	}
	if r.Tick != 183 {
		t.Errorf("round tick = %d, want 183", r.Tick)
	}
	if env.kernel.Live() != 0 {
		t.Errorf("live = %d, want 0", env.kernel.Live())
	}

	rounds, total, err := env.store.ListRounds(context.Background(), model.DefaultListOptions())
	if err != nil {
		t.Fatalf("ListRounds: %v", err)
	}
	if total != 1 || rounds[0].Total() != 183 || rounds[0].CPU != 0 {
		t.Errorf("journal = %d rounds, first %+v", total, rounds)
	}
}

func TestRound_IdleAdvancesClockOnlyOnCPU0(t *testing.T) {
	env := testSetup(t)
	ctx := context.Background()

	if _, err := env.loop(1).Round(ctx); err != nil {
		t.Fatalf("Round(cpu 1): %v", err)
	}
	if env.clock.Now() != 0 {
		t.Errorf("clock = %d after idle round on cpu 1, want 0", env.clock.Now())
	}

	r, err := env.loop(0).Round(ctx)
	if err != nil {
		t.Fatalf("Round(cpu 0): %v", err)
	}
	if r.Total() != 0 {
		t.Errorf("idle round ran %d", r.Total())
	}
	if env.clock.Now() != 1 {
		t.Errorf("clock = %d after idle round on cpu 0, want 1", env.clock.Now())
	}

	_, total, _ := env.store.ListRounds(ctx, model.DefaultListOptions())
	if total != 0 {
		t.Errorf("idle rounds journaled: %d", total)
	}
}

func TestTick_SleepersWakeAcrossRounds(t *testing.T) {
	env := testSetup(t)
	env.exec(t, "io", 1)
	l := env.loop(0)
	ctx := context.Background()

	for i := 0; env.kernel.Live() > 0; i++ {
		if i > 1000 {
			t.Fatal("io program never finished")
		}
		if err := l.Tick(ctx); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}

	events, _, err := env.store.ListEvents(ctx, model.ListOptions{Limit: 100, PID: 1, Kind: string(model.EventExit)})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("exit events = %d, want 1", len(events))
	}
}

func TestLoop_StartStop(t *testing.T) {
	env := testSetup(t)
	l := env.loop(0)

	errCh := make(chan error, 1)
	go func() { errCh <- l.Start(context.Background()) }()

	env.exec(t, "short", 5)
	waitIdle(t, env.kernel)

	if err := l.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Errorf("Start returned %v, want nil", err)
	}

	_, total, err := env.store.ListRounds(context.Background(), model.DefaultListOptions())
	if err != nil {
		t.Fatalf("ListRounds: %v", err)
	}
	if total == 0 {
		t.Error("no rounds journaled")
	}
}

func TestLoop_ContextCancel(t *testing.T) {
	env := testSetup(t)
	l := env.loop(0)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- l.Start(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop on cancel")
	}
}

func TestGroup_RunsEveryProcessToCompletion(t *testing.T) {
	env := testSetup(t)
	g := NewGroup(4, env.sched, env.kernel, env.clock, env.store, Config{IdleInterval: time.Millisecond}, env.logger)
	if len(g.Loops()) != 4 {
		t.Fatalf("loops = %d, want 4", len(g.Loops()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- g.Start(ctx) }()

	env.exec(t, "cpu", 20)
	waitIdle(t, env.kernel)
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Start returned %v, want context.Canceled", err)
	}

	// Every process runs exactly 61 ticks no matter which CPU picks it up.
	var dispatched uint64
	for _, ts := range env.sched.Stats() {
		dispatched += ts.Dispatched
		if ts.Queued != 0 {
			t.Errorf("tier %d still has %d queued", ts.Tier, ts.Queued)
		}
	}
	if dispatched != 20*61 {
		t.Errorf("dispatched = %d, want %d", dispatched, 20*61)
	}

	_, exits, err := env.store.ListEvents(context.Background(), model.ListOptions{Kind: string(model.EventExit)})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if exits != 20 {
		t.Errorf("exit events = %d, want 20", exits)
	}
}

func TestGroup_Tick(t *testing.T) {
	env := testSetup(t)
	g := NewGroup(0, env.sched, env.kernel, env.clock, nil, DefaultConfig(), env.logger)
	if len(g.Loops()) != 1 {
		t.Fatalf("loops = %d, want 1", len(g.Loops()))
	}
	env.exec(t, "short", 2)
	if err := g.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if env.kernel.Live() != 0 {
		t.Errorf("live = %d, want 0", env.kernel.Live())
	}
}

func TestGroup_NilLogger(t *testing.T) {
	env := testSetup(t)
	g := NewGroup(2, env.sched, env.kernel, env.clock, nil, DefaultConfig(), nil)
	env.exec(t, "short", 1)
	if err := g.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if env.kernel.Live() != 0 {
		t.Errorf("live = %d, want 0", env.kernel.Live())
	}
}
