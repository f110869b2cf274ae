package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "mlfq process manager",
		Version:     "v1",
		Description: "Simulated kernel with a three-tier multi-level feedback queue scheduler",
		Endpoints: []endpointInfo{
			{"/api/v1/processes", []string{"GET", "POST"}, "List processes, or execute a program (path, stack_pages)"},
			{"/api/v1/processes/{pid}", []string{"GET", "DELETE"}, "Single process detail, or kill it"},
			{"/api/v1/processes/{pid}/memlimit", []string{"PUT"}, "Set a memory limit in bytes (0 = unlimited)"},
			{"/api/v1/processes/{pid}/priority", []string{"PUT"}, "Set the tier-2 priority (0 runs first)"},
			{"/api/v1/programs", []string{"GET"}, "Executable program names"},
			{"/api/v1/scheduler", []string{"GET"}, "Ready-queue occupancy and dispatch counters"},
			{"/api/v1/events", []string{"GET"}, "Process lifecycle journal (?pid=, ?kind=)"},
			{"/api/v1/rounds", []string{"GET"}, "Per-CPU dispatch round journal"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
		},
	})
}
