package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/me/mlfq/internal/config"
	"github.com/me/mlfq/internal/kernel"
	"github.com/me/mlfq/internal/logging"
	"github.com/me/mlfq/internal/mlfq"
	"github.com/me/mlfq/internal/program"
	"github.com/me/mlfq/internal/scheduler"
	"github.com/me/mlfq/internal/server"
	"github.com/me/mlfq/internal/store"
)

func main() {
	cfg := config.DefaultServerConfig()

	configFile := flag.String("config", "", "Path to a YAML config file")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Journal database path (\":memory:\" for none on disk)")
	flag.IntVar(&cfg.CPUs, "cpus", cfg.CPUs, "Number of CPUs")
	flag.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "Wall time per simulated tick")
	flag.DurationVar(&cfg.IdleInterval, "idle", cfg.IdleInterval, "Wait after an idle round")
	flag.DurationVar(&cfg.StepTimeout, "step-timeout", cfg.StepTimeout, "Wall-time budget of one program step (0 disables)")
	flag.StringVar(&cfg.ProgramsDir, "programs", cfg.ProgramsDir, "Directory of *.yaml program definitions")
	flag.IntVar(&cfg.QueueCapacity, "queue-capacity", cfg.QueueCapacity, "Slots per scheduler tier")
	flag.IntVar(&cfg.MaxProcs, "max-procs", cfg.MaxProcs, "Process table size")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")

	flag.Parse()

	// Flags point into cfg, so parsing again after the file is loaded lets
	// explicit flags win over file values.
	if *configFile != "" {
		if err := config.LoadFile(*configFile, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		flag.Parse()
	}

	if *debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	// Open journal and run migrations.
	st, err := store.NewSQLiteStore(cfg.DBPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate database: %v\n", err)
		os.Exit(1)
	}
	logger.Info("database ready", "path", cfg.DBPath)

	// Programs: built-ins plus an optional directory.
	programs := program.NewRegistry()
	if cfg.ProgramsDir != "" {
		n, err := programs.LoadDir(cfg.ProgramsDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load programs: %v\n", err)
			os.Exit(1)
		}
		logger.Info("programs loaded", "dir", cfg.ProgramsDir, "count", n)
	}

	clock := &kernel.Clock{}
	queues := mlfq.New(mlfq.Config{Capacity: cfg.QueueCapacity}, clock, nil, logger)
	k := kernel.New(queues, clock, programs, kernel.Config{
		MaxProcs:    cfg.MaxProcs,
		TickDelay:   cfg.TickInterval,
		StepTimeout: cfg.StepTimeout,
	}, logger)
	k.SetEventSink(st)

	cpus := scheduler.NewGroup(cfg.CPUs, queues, k, clock, st, scheduler.Config{IdleInterval: cfg.IdleInterval}, logger)

	srv := server.New(cfg, k, st, logger,
		server.WithScheduler(cpus),
		server.WithQueues(queues, clock),
		server.WithCPUs(cpus.CPUs()...),
		server.WithPrograms(programs),
	)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The CPU loops get their own context so they can be stopped after the
	// process table is emptied.
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	srv.StartScheduler(schedCtx)

	go func() {
		logger.Info("server starting", "addr", cfg.Addr, "cpus", cfg.CPUs)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
	}

	// Kill everything so no CPU is left draining a process that never exits,
	// then stop the loops.
	k.Halt()
	if err := cpus.Stop(); err != nil {
		logger.Error("scheduler stop error", "error", err)
	}
	logger.Info("server stopped")
}
