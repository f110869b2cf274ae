package model

import "time"

// Response is the standard API response envelope.
type Response struct {
	Status     string      `json:"status"`
	RequestID  string      `json:"request_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      *APIError   `json:"error"`
}

// Pagination holds pagination metadata for list endpoints.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ListOptions configures journal queries with pagination and filtering.
type ListOptions struct {
	Limit  int
	Offset int
	PID    int    // Optional pid filter (0 = all)
	Kind   string // Optional event kind filter
}

// DefaultListOptions returns sensible defaults.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 20, Offset: 0}
}

// Clamp enforces limits (max 100, min 1).
func (o *ListOptions) Clamp() {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// ExecRequest is the body of POST /processes.
type ExecRequest struct {
	Path       string `json:"path"`
	StackPages int    `json:"stack_pages"`
}

// MemLimitRequest is the body of PUT /processes/{pid}/memlimit.
type MemLimitRequest struct {
	Limit int64 `json:"limit"`
}

// PriorityRequest is the body of PUT /processes/{pid}/priority.
type PriorityRequest struct {
	Priority int `json:"priority"`
}

// SchedulerStatus reports queue occupancy and dispatch counters.
type SchedulerStatus struct {
	Tick   uint64      `json:"tick"`
	Tiers  []TierStats `json:"tiers"`
	Queued [][]int     `json:"queued"`
	// CPULevels holds, per CPU, the tier of the running process or -1 when idle.
	CPULevels []int `json:"cpu_levels"`
}

// TierStats holds per-tier diagnostics.
type TierStats struct {
	Tier       int    `json:"tier"`
	Queued     int    `json:"queued"`
	Dispatched uint64 `json:"dispatched"`
	Discarded  uint64 `json:"discarded"`
	Promoted   uint64 `json:"promoted"`
}
