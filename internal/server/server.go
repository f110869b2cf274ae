package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/mlfq/internal/config"
	"github.com/me/mlfq/internal/logging"
	"github.com/me/mlfq/internal/mlfq"
	"github.com/me/mlfq/internal/program"
	"github.com/me/mlfq/internal/scheduler"
	"github.com/me/mlfq/internal/store"
	"github.com/me/mlfq/pkg/model"
)

// ProcessManager is the process-table surface the API exposes. The kernel
// implements it.
type ProcessManager interface {
	Exec(path string, stackPages int) (*model.ProcessInfo, error)
	Kill(pid int) error
	SetMemoryLimit(pid int, limit int64) error
	SetPriority(pid, priority int) error
	List() []model.ProcessInfo
	Get(pid int) (*model.ProcessInfo, error)
}

// QueueInspector reports ready-queue occupancy. The mlfq state implements it.
type QueueInspector interface {
	Stats() []model.TierStats
	Snapshot() [][]int
	GetLevel(cpu *mlfq.CPU) int
}

// Clock reports the current simulated tick.
type Clock interface {
	Now() uint64
}

// Server is the process manager REST API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	procs     ProcessManager
	store     store.Store
	scheduler scheduler.Scheduler // optional; nil in tests that drive rounds by hand
	queues    QueueInspector      // optional; /scheduler reports empty tiers without it
	clock     Clock               // optional
	cpus      []*mlfq.CPU         // optional; reported as cpu_levels
	programs  *program.Registry   // optional; /programs lists nothing without it
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithScheduler sets the CPU loops started by StartScheduler.
func WithScheduler(sched scheduler.Scheduler) Option {
	return func(s *Server) {
		s.scheduler = sched
	}
}

// WithQueues sets the ready queues and clock reported by /scheduler.
func WithQueues(q QueueInspector, clock Clock) Option {
	return func(s *Server) {
		s.queues = q
		s.clock = clock
	}
}

// WithCPUs sets the CPUs whose running tier /scheduler reports.
func WithCPUs(cpus ...*mlfq.CPU) Option {
	return func(s *Server) {
		s.cpus = cpus
	}
}

// WithPrograms sets the program registry listed by /programs.
func WithPrograms(reg *program.Registry) Option {
	return func(s *Server) {
		s.programs = reg
	}
}

// New creates a new Server with all routes registered.
// st may be nil, in which case the journal endpoints report empty lists.
func New(cfg config.ServerConfig, procs ProcessManager, st store.Store, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logging.Component(logger, "server"),
		config:    cfg,
		startTime: time.Now(),
		procs:     procs,
		store:     st,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// StartScheduler begins the scheduling loop in a background goroutine.
func (s *Server) StartScheduler(ctx context.Context) {
	if s.scheduler == nil {
		return
	}
	go func() {
		if err := s.scheduler.Start(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("scheduler stopped", "error", err)
		}
	}()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Route("/api/v1", func(r chi.Router) {
		// Discovery
		r.Get("/", s.handleDiscovery)

		// Health
		r.Get("/health", s.handleHealth)

		// Process table
		r.Route("/processes", func(r chi.Router) {
			r.Get("/", s.handleListProcesses)
			r.Post("/", s.handleExec)
			r.Route("/{pid}", func(r chi.Router) {
				r.Get("/", s.handleGetProcess)
				r.Delete("/", s.handleKill)
				r.Put("/memlimit", s.handleSetMemLimit)
				r.Put("/priority", s.handleSetPriority)
			})
		})

		r.Get("/programs", s.handleListPrograms)

		// Scheduler state and journal
		r.Get("/scheduler", s.handleSchedulerStatus)
		r.Get("/events", s.handleListEvents)
		r.Get("/rounds", s.handleListRounds)
	})
}
