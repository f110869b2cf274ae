package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/me/mlfq/internal/logging"
	"github.com/me/mlfq/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// Every CPU writes to the journal; one connection serializes them and
	// keeps an in-memory database from splitting across connections.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logging.Component(logger, "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Events ---

func (s *SQLiteStore) RecordEvent(ctx context.Context, ev *model.Event) error {
	s.logger.Debug("sql", "op", "insert", "table", "events", "id", ev.ID, "kind", ev.Kind)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, pid, kind, detail, tick, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.PID, string(ev.Kind), ev.Detail, int64(ev.Tick), ev.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", ev.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListEvents(ctx context.Context, opts model.ListOptions) ([]*model.Event, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "events", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	// Build WHERE clause dynamically based on filters.
	var whereClauses []string
	var countArgs []any

	if opts.PID > 0 {
		whereClauses = append(whereClauses, "pid = ?")
		countArgs = append(countArgs, opts.PID)
	}
	if opts.Kind != "" {
		whereClauses = append(whereClauses, "kind = ?")
		countArgs = append(countArgs, opts.Kind)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+whereSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT id, pid, kind, detail, tick, created_at FROM events` + whereSQL +
		` ORDER BY tick DESC, created_at DESC LIMIT ? OFFSET ?`
	listArgs := append(countArgs, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		var ev model.Event
		var kind, createdAt string
		var tick int64
		if err := rows.Scan(&ev.ID, &ev.PID, &kind, &ev.Detail, &tick, &createdAt); err != nil {
			return nil, 0, err
		}
		ev.Kind = model.EventKind(kind)
		ev.Tick = uint64(tick)
		ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		events = append(events, &ev)
	}
	return events, total, rows.Err()
}

// --- Rounds ---

func (s *SQLiteStore) RecordRound(ctx context.Context, r *model.Round) error {
	s.logger.Debug("sql", "op", "insert", "table", "rounds", "id", r.ID, "cpu", r.CPU)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rounds (id, cpu, tick, tier0, tier1, tier2, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CPU, int64(r.Tick), r.Tier0, r.Tier1, r.Tier2, r.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert round %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListRounds(ctx context.Context, opts model.ListOptions) ([]*model.Round, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "rounds", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rounds`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cpu, tick, tier0, tier1, tier2, created_at FROM rounds
		 ORDER BY tick DESC, created_at DESC LIMIT ? OFFSET ?`, opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var rounds []*model.Round
	for rows.Next() {
		var r model.Round
		var createdAt string
		var tick int64
		if err := rows.Scan(&r.ID, &r.CPU, &tick, &r.Tier0, &r.Tier1, &r.Tier2, &createdAt); err != nil {
			return nil, 0, err
		}
		r.Tick = uint64(tick)
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		rounds = append(rounds, &r)
	}
	return rounds, total, rows.Err()
}
