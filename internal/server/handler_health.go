package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
)

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Started   string `json:"started"`
	Scheduler string `json:"scheduler"`
	Store     string `json:"store"`
	CPUs      int    `json:"cpus"`
	Processes int    `json:"processes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	sched := "not_started"
	if s.scheduler != nil {
		sched = "running"
	}
	st := "none"
	if s.store != nil {
		st = "sqlite"
	}

	respondOK(w, reqID, healthResponse{
		Status:    "healthy",
		Version:   "0.1.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Started:   humanize.Time(s.startTime),
		Scheduler: sched,
		Store:     st,
		CPUs:      s.config.CPUs,
		Processes: len(s.procs.List()),
	})
}
