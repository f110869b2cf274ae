package store

import (
	"context"

	"github.com/me/mlfq/pkg/model"
)

// Store is the scheduler journal: process lifecycle events and per-CPU
// dispatch rounds. It is write-mostly and never read back into scheduler
// state.
type Store interface {
	// Events
	RecordEvent(ctx context.Context, ev *model.Event) error
	ListEvents(ctx context.Context, opts model.ListOptions) ([]*model.Event, int, error)

	// Dispatch rounds
	RecordRound(ctx context.Context, r *model.Round) error
	ListRounds(ctx context.Context, opts model.ListOptions) ([]*model.Round, int, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
