package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/me/mlfq/internal/kernel"
	"github.com/me/mlfq/internal/mlfq"
	"github.com/me/mlfq/internal/program"
	"github.com/me/mlfq/pkg/model"
)

// requestID generates a unique request identifier.
func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

// respondOK writes a success response with the standard envelope.
func respondOK(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusOK, reqID, data, nil, nil)
}

// respondCreated writes a 201 response with the standard envelope.
func respondCreated(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusCreated, reqID, data, nil, nil)
}

// respondList writes a success response with pagination.
func respondList(w http.ResponseWriter, reqID string, data any, pg *model.Pagination) {
	respondJSON(w, http.StatusOK, reqID, data, pg, nil)
}

// respondError writes an error response with the standard envelope.
func respondError(w http.ResponseWriter, reqID string, status int, apiErr *model.APIError) {
	respondJSON(w, status, reqID, nil, nil, apiErr)
}

// respondKernelError maps process-manager errors onto API errors.
func respondKernelError(w http.ResponseWriter, reqID string, pid int, err error) {
	switch {
	case errors.Is(err, kernel.ErrNoProcess):
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("process", pid))
	case errors.Is(err, kernel.ErrBadStackSize),
		errors.Is(err, kernel.ErrMemLimit),
		errors.Is(err, mlfq.ErrBadPriority),
		errors.Is(err, program.ErrUnknownProgram),
		errors.Is(err, kernel.ErrStepTimeout):
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError(err.Error()))
	case errors.Is(err, kernel.ErrNoSlot), errors.Is(err, mlfq.ErrQueueFull):
		respondError(w, reqID, http.StatusConflict, model.NewConflictError(err.Error()))
	default:
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
	}
}

func respondJSON(w http.ResponseWriter, status int, reqID string, data any, pg *model.Pagination, apiErr *model.APIError) {
	resp := model.Response{
		RequestID:  reqID,
		Timestamp:  time.Now().UTC(),
		Data:       data,
		Pagination: pg,
		Error:      apiErr,
	}
	if apiErr != nil {
		resp.Status = "error"
	} else {
		resp.Status = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
