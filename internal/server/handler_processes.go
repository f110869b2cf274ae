package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/me/mlfq/pkg/model"
)

// pidParam parses the {pid} URL parameter, writing a validation error on failure.
func pidParam(w http.ResponseWriter, r *http.Request, reqID string) (int, bool) {
	raw := chi.URLParam(r, "pid")
	pid, err := strconv.Atoi(raw)
	if err != nil || pid <= 0 {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid pid",
				model.FieldError{Field: "pid", Message: "pid must be a positive integer, got " + strconv.Quote(raw)}))
		return 0, false
	}
	return pid, true
}

// decodeBody decodes a JSON request body, writing a validation error on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, reqID string, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrValidation,
			Message: "Invalid JSON body: " + err.Error(),
		})
		return false
	}
	return true
}

func (s *Server) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	procs := s.procs.List()
	respondList(w, reqID, procs, &model.Pagination{
		Total: len(procs),
		Limit: len(procs),
	})
}

func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req model.ExecRequest
	if !decodeBody(w, r, reqID, &req) {
		return
	}
	if req.Path == "" {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("missing required field",
				model.FieldError{Field: "path", Message: "path is required"}))
		return
	}

	info, err := s.procs.Exec(req.Path, req.StackPages)
	if err != nil {
		respondKernelError(w, reqID, 0, err)
		return
	}
	respondCreated(w, reqID, info)
}

func (s *Server) handleGetProcess(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	pid, ok := pidParam(w, r, reqID)
	if !ok {
		return
	}
	info, err := s.procs.Get(pid)
	if err != nil {
		respondKernelError(w, reqID, pid, err)
		return
	}
	respondOK(w, reqID, info)
}

func (s *Server) handleKill(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	pid, ok := pidParam(w, r, reqID)
	if !ok {
		return
	}
	if err := s.procs.Kill(pid); err != nil {
		respondKernelError(w, reqID, pid, err)
		return
	}
	respondOK(w, reqID, map[string]any{"pid": pid, "killed": true})
}

func (s *Server) handleSetMemLimit(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	pid, ok := pidParam(w, r, reqID)
	if !ok {
		return
	}
	var req model.MemLimitRequest
	if !decodeBody(w, r, reqID, &req) {
		return
	}
	if err := s.procs.SetMemoryLimit(pid, req.Limit); err != nil {
		respondKernelError(w, reqID, pid, err)
		return
	}
	respondOK(w, reqID, map[string]any{"pid": pid, "mem_limit": req.Limit})
}

func (s *Server) handleSetPriority(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	pid, ok := pidParam(w, r, reqID)
	if !ok {
		return
	}
	var req model.PriorityRequest
	if !decodeBody(w, r, reqID, &req) {
		return
	}
	if err := s.procs.SetPriority(pid, req.Priority); err != nil {
		respondKernelError(w, reqID, pid, err)
		return
	}
	respondOK(w, reqID, map[string]any{"pid": pid, "priority": req.Priority})
}

func (s *Server) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	names := []string{}
	if s.programs != nil {
		names = s.programs.Names()
	}
	respondOK(w, reqID, names)
}
