package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/branchtrace/lbrd/internal/engine"
	"github.com/branchtrace/lbrd/internal/store"
)

// Server is the daemon's HTTP API over a Unix socket. Every handler is a
// thin translation layer: decode, dispatch to the engine, map the status
// back onto HTTP. Malformed payloads are rejected before the engine sees
// them.
type Server struct {
	sockPath   string
	engine     *engine.Engine
	snapshots  *store.Store // optional dump history
	ncpu       int
	server     *http.Server
	listener   net.Listener
	startedAt  time.Time
	onShutdown func()
}

// NewServer creates a daemon API server listening on the given Unix
// socket path. snapshots may be nil to disable dump persistence.
func NewServer(sockPath string, eng *engine.Engine, snapshots *store.Store, ncpu int) *Server {
	s := &Server{
		sockPath:  sockPath,
		engine:    eng,
		snapshots: snapshots,
		ncpu:      ncpu,
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/traces", s.handleList)
	mux.HandleFunc("POST /v1/traces", s.handleEnable)
	mux.HandleFunc("DELETE /v1/traces/{pid}", s.handleDisable)
	mux.HandleFunc("PUT /v1/traces/{pid}/filter", s.handleSelect)
	mux.HandleFunc("GET /v1/traces/{pid}/dump", s.handleDump)
	mux.HandleFunc("POST /v1/dispatch", s.handleDispatch)
	mux.HandleFunc("POST /v1/shutdown", s.handleShutdown)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// SetOnShutdown sets a callback invoked when shutdown is requested via
// the API. It should signal the main daemon loop to exit.
func (s *Server) SetOnShutdown(fn func()) { s.onShutdown = fn }

// Start begins listening on the Unix socket. Any stale socket file is
// removed first.
func (s *Server) Start() error {
	os.Remove(s.sockPath) // remove stale socket
	listener, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return err
	}
	s.listener = listener
	go func() { _ = s.server.Serve(listener) }()
	return nil
}

// Stop gracefully shuts down the server and removes the socket file.
func (s *Server) Stop(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	os.Remove(s.sockPath)
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		PID:       os.Getpid(),
		Capacity:  s.engine.Capacity(),
		CPUs:      s.ncpu,
		Traced:    len(s.engine.Pids()),
		StartedAt: s.startedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	pids := s.engine.Pids()
	infos := make([]TraceInfo, len(pids))
	for i, pid := range pids {
		infos[i] = TraceInfo{Pid: pid}
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	var req EnableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	resp := s.engine.Dispatch(&engine.Request{
		Code: engine.CodeEnable, Pid: req.Pid, Filter: req.Filter,
	})
	if resp.Status != engine.StatusOK {
		writeStatus(w, resp.Status)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	pid, ok := pathPid(w, r)
	if !ok {
		return
	}
	resp := s.engine.Dispatch(&engine.Request{Code: engine.CodeDisable, Pid: pid})
	if resp.Status != engine.StatusOK {
		writeStatus(w, resp.Status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	pid, ok := pathPid(w, r)
	if !ok {
		return
	}
	var req FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	resp := s.engine.Dispatch(&engine.Request{
		Code: engine.CodeSelect, Pid: pid, Filter: req.Filter,
	})
	if resp.Status != engine.StatusOK {
		writeStatus(w, resp.Status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	pid, ok := pathPid(w, r)
	if !ok {
		return
	}
	resp := s.engine.Dispatch(&engine.Request{Code: engine.CodeDump, Pid: pid})
	if resp.Status != engine.StatusOK {
		writeStatus(w, resp.Status)
		return
	}
	if s.snapshots != nil {
		if err := s.snapshots.Append(resp.Snapshot); err != nil {
			slog.Warn("persisting snapshot failed", "pid", pid, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, resp.Snapshot)
}

// handleDispatch accepts the raw fixed-shape command payload and returns
// the raw status, for callers that speak the wire protocol directly.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, engine.Response{Status: engine.StatusBadRequest})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Dispatch(&req))
}

func (s *Server) handleShutdown(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "shutting down"})
	if s.onShutdown != nil {
		go s.onShutdown()
	}
}

// pathPid parses the {pid} path segment, rejecting non-numeric and zero
// values before the engine is involved.
func pathPid(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	n, err := strconv.ParseUint(r.PathValue("pid"), 10, 32)
	if err != nil || n == 0 {
		writeError(w, http.StatusBadRequest, "invalid pid")
		return 0, false
	}
	return uint32(n), true
}

// writeStatus maps engine statuses onto HTTP error responses.
func writeStatus(w http.ResponseWriter, status engine.Status) {
	code := http.StatusBadRequest
	if status == engine.StatusNotFound {
		code = http.StatusNotFound
	}
	writeError(w, code, status.String())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}

// writeJSON marshals v as JSON and writes it to w with the given status
// code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
