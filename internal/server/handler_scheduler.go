package server

import (
	"net/http"
	"strconv"

	"github.com/me/mlfq/pkg/model"
)

func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	status := model.SchedulerStatus{Tiers: []model.TierStats{}, Queued: [][]int{}, CPULevels: []int{}}
	if s.clock != nil {
		status.Tick = s.clock.Now()
	}
	if s.queues != nil {
		status.Tiers = s.queues.Stats()
		status.Queued = s.queues.Snapshot()
		for _, cpu := range s.cpus {
			status.CPULevels = append(status.CPULevels, s.queues.GetLevel(cpu))
		}
	}
	respondOK(w, reqID, status)
}

// listOptions reads limit, offset, pid and kind query parameters.
func listOptions(r *http.Request) (model.ListOptions, *model.APIError) {
	opts := model.DefaultListOptions()
	q := r.URL.Query()

	var details []model.FieldError
	intParam := func(name string, dst *int) {
		raw := q.Get(name)
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			details = append(details, model.FieldError{Field: name, Message: name + " must be an integer"})
			return
		}
		*dst = n
	}
	intParam("limit", &opts.Limit)
	intParam("offset", &opts.Offset)
	intParam("pid", &opts.PID)
	opts.Kind = q.Get("kind")

	if len(details) > 0 {
		return opts, model.NewValidationError("invalid query parameters", details...)
	}
	opts.Clamp()
	return opts, nil
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	opts, apiErr := listOptions(r)
	if apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}
	if s.store == nil {
		respondList(w, reqID, []*model.Event{}, &model.Pagination{Limit: opts.Limit, Offset: opts.Offset})
		return
	}

	events, total, err := s.store.ListEvents(r.Context(), opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if events == nil {
		events = []*model.Event{}
	}
	respondList(w, reqID, events, &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+opts.Limit < total,
	})
}

func (s *Server) handleListRounds(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	opts, apiErr := listOptions(r)
	if apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}
	if s.store == nil {
		respondList(w, reqID, []*model.Round{}, &model.Pagination{Limit: opts.Limit, Offset: opts.Offset})
		return
	}

	rounds, total, err := s.store.ListRounds(r.Context(), opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if rounds == nil {
		rounds = []*model.Round{}
	}
	respondList(w, reqID, rounds, &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+opts.Limit < total,
	})
}
