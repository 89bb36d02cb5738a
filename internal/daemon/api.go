// Package daemon exposes the trace engine's command surface over a Unix
// socket: a small JSON HTTP API plus a typed client.
package daemon

// EnableRequest is sent to POST /v1/traces.
type EnableRequest struct {
	Pid    uint32 `json:"pid"`
	Filter uint64 `json:"filter,omitempty"`
}

// FilterRequest is sent to PUT /v1/traces/{pid}/filter.
type FilterRequest struct {
	Filter uint64 `json:"filter"`
}

// TraceInfo is an element of the list returned by GET /v1/traces.
type TraceInfo struct {
	Pid uint32 `json:"pid"`
}

// HealthResponse is returned from GET /v1/health.
type HealthResponse struct {
	PID       int    `json:"pid"`
	Capacity  int    `json:"capacity"`
	CPUs      int    `json:"cpus"`
	Traced    int    `json:"traced"`
	StartedAt string `json:"started_at"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
