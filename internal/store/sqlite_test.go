package store

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/me/mlfq/pkg/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleEvent(i, pid int, kind model.EventKind) *model.Event {
	return &model.Event{
		ID:        fmt.Sprintf("evt_%03d", i),
		PID:       pid,
		Kind:      kind,
		Detail:    fmt.Sprintf("detail %d", i),
		Tick:      uint64(i),
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	st := testStore(t)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestRecordAndListEvents(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	want := sampleEvent(1, 3, model.EventExec)
	if err := st.RecordEvent(ctx, want); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	events, total, err := st.ListEvents(ctx, model.DefaultListOptions())
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if total != 1 || len(events) != 1 {
		t.Fatalf("total=%d len=%d, want 1/1", total, len(events))
	}
	got := events[0]
	if got.ID != want.ID || got.PID != 3 || got.Kind != model.EventExec || got.Tick != 1 {
		t.Errorf("event = %+v, want %+v", got, want)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

func TestRecordEvent_DuplicateID(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	ev := sampleEvent(1, 1, model.EventExec)
	if err := st.RecordEvent(ctx, ev); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := st.RecordEvent(ctx, ev); err == nil {
		t.Error("expected error on duplicate id")
	}
}

func TestListEvents_FiltersAndPagination(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	for i := 1; i <= 30; i++ {
		kind := model.EventPromote
		if i%10 == 0 {
			kind = model.EventExit
		}
		if err := st.RecordEvent(ctx, sampleEvent(i, i%3, kind)); err != nil {
			t.Fatalf("RecordEvent(%d): %v", i, err)
		}
	}

	events, total, err := st.ListEvents(ctx, model.ListOptions{Limit: 5})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if total != 30 || len(events) != 5 {
		t.Errorf("total=%d len=%d, want 30/5", total, len(events))
	}
	if events[0].Tick != 30 {
		t.Errorf("newest first: tick = %d, want 30", events[0].Tick)
	}

	events, total, err = st.ListEvents(ctx, model.ListOptions{Limit: 100, Kind: string(model.EventExit)})
	if err != nil {
		t.Fatalf("ListEvents(kind): %v", err)
	}
	if total != 3 || len(events) != 3 {
		t.Errorf("exit events total=%d len=%d, want 3/3", total, len(events))
	}

	events, total, err = st.ListEvents(ctx, model.ListOptions{Limit: 100, PID: 1})
	if err != nil {
		t.Fatalf("ListEvents(pid): %v", err)
	}
	if total != 10 {
		t.Errorf("pid 1 total = %d, want 10", total)
	}
	for _, ev := range events {
		if ev.PID != 1 {
			t.Errorf("unexpected pid %d in filtered list", ev.PID)
		}
	}

	events, _, err = st.ListEvents(ctx, model.ListOptions{Limit: 10, Offset: 25})
	if err != nil {
		t.Fatalf("ListEvents(offset): %v", err)
	}
	if len(events) != 5 {
		t.Errorf("offset page len = %d, want 5", len(events))
	}
}

func TestRecordAndListRounds(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	for i := 1; i <= 3; i++ {
		r := &model.Round{ID: fmt.Sprintf("rnd_%d", i), CPU: i % 2, Tick: uint64(i * 10), Tier0: i, Tier1: 1, Tier2: 0, CreatedAt: now}
		if err := st.RecordRound(ctx, r); err != nil {
			t.Fatalf("RecordRound: %v", err)
		}
	}

	rounds, total, err := st.ListRounds(ctx, model.DefaultListOptions())
	if err != nil {
		t.Fatalf("ListRounds: %v", err)
	}
	if total != 3 || len(rounds) != 3 {
		t.Fatalf("total=%d len=%d, want 3/3", total, len(rounds))
	}
	if rounds[0].Tick != 30 || rounds[0].Tier0 != 3 || rounds[0].Total() != 4 {
		t.Errorf("newest round = %+v", rounds[0])
	}
}
