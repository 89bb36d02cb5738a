package engine

import (
	"errors"

	"github.com/branchtrace/lbrd/internal/registry"
)

// Code identifies a command on the control transport.
type Code uint32

const (
	CodeEnable Code = iota + 1
	CodeDisable
	CodeSelect
	CodeDump
)

// Status is the result of a dispatched command. Zero is success; the
// negative values distinguish the failure kinds the transport reports.
type Status int

const (
	StatusOK              Status = 0
	StatusNotFound        Status = -1
	StatusInvalidArgument Status = -2
	StatusBadRequest      Status = -3
)

// String renders a status for logs and error bodies.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not found"
	case StatusInvalidArgument:
		return "invalid argument"
	case StatusBadRequest:
		return "bad request"
	default:
		return "unknown status"
	}
}

// Request is the fixed-shape command payload delivered by the transport.
type Request struct {
	Code   Code   `json:"code"`
	Pid    uint32 `json:"pid"`
	Filter uint64 `json:"filter,omitempty"`
}

// Response carries the status of a dispatched command, plus the snapshot
// for dumps.
type Response struct {
	Status   Status    `json:"status"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

// Dispatch validates and executes one command. Malformed requests (nil,
// or missing pid) are rejected before any registry access; a failed
// command leaves the registry exactly as it was.
func (e *Engine) Dispatch(req *Request) Response {
	if req == nil || req.Pid == 0 {
		return Response{Status: StatusBadRequest}
	}
	switch req.Code {
	case CodeEnable:
		return statusOf(e.Enable(req.Pid, req.Filter))
	case CodeDisable:
		return statusOf(e.Disable(req.Pid))
	case CodeSelect:
		return statusOf(e.Select(req.Pid, req.Filter))
	case CodeDump:
		snap, err := e.Dump(req.Pid)
		resp := statusOf(err)
		resp.Snapshot = snap
		return resp
	default:
		return Response{Status: StatusInvalidArgument}
	}
}

// statusOf maps engine errors onto wire statuses.
func statusOf(err error) Response {
	switch {
	case err == nil:
		return Response{Status: StatusOK}
	case errors.Is(err, registry.ErrNotFound):
		return Response{Status: StatusNotFound}
	case errors.Is(err, registry.ErrAlreadyTraced):
		return Response{Status: StatusInvalidArgument}
	default:
		return Response{Status: StatusInvalidArgument}
	}
}
