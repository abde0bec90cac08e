// Package api exposes the blocking simulator over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/CSroseX/blocking-api-server/internal/blocking"
)

const (
	PathSimple   = "/simple"
	PathBlocking = "/blocking"
	PathPrefix   = "/rest"

	LatencyHeader   = "X-Simulated-Latency"
	OperationHeader = "X-Blocking-Operation"
)

// Blocker performs one simulated blocking operation.
type Blocker interface {
	Perform(ctx context.Context, req blocking.Request) blocking.Outcome
}

type Handlers struct {
	blocker   Blocker
	logString func() string
	host      string
	logger    *slog.Logger
}

// NewHandlers builds the REST handlers. logString is read per request;
// when it returns a non-empty string, every handler logs it.
func NewHandlers(b Blocker, logString func() string, logger *slog.Logger) *Handlers {
	if logString == nil {
		logString = func() string { return "" }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{blocker: b, logString: logString, host: hostname(), logger: logger}
}

// Register mounts the REST and health routes on r.
func (h *Handlers) Register(r *Router) {
	r.HandleFunc(PathPrefix+PathSimple, h.Simple)
	r.HandleFunc(PathPrefix+PathBlocking, h.Blocking)
	r.HandleFunc("/health", Health)
}

// Simple handles GET /rest/simple.
func (h *Handlers) Simple(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s := h.logString(); s != "" {
		h.logger.InfoContext(r.Context(), "in simple handler", "log_string", s)
	}
	writeJSON(w, http.StatusOK, newSimpleResponse(h.host, PathSimple))
}

// Blocking handles GET /rest/blocking. The optional query parameters
// operation-type, min-block-period-ms and max-block-period-ms override the
// configured defaults for this request only.
func (h *Handlers) Blocking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s := h.logString(); s != "" {
		h.logger.InfoContext(r.Context(), "in blocking handler", "log_string", s)
	}

	q := r.URL.Query()
	var req blocking.Request
	if q.Has("operation-type") {
		op := q.Get("operation-type")
		req.OperationType = &op
	}
	var err error
	if req.MinBlockPeriodMs, err = queryMillis(q.Get("min-block-period-ms")); err != nil {
		http.Error(w, "min-block-period-ms: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.MaxBlockPeriodMs, err = queryMillis(q.Get("max-block-period-ms")); err != nil {
		http.Error(w, "max-block-period-ms: "+err.Error(), http.StatusBadRequest)
		return
	}

	out := h.blocker.Perform(r.Context(), req)
	if r.Context().Err() != nil {
		// Client went away; nobody is left to answer.
		return
	}

	w.Header().Set(LatencyHeader, fmt.Sprintf("%dms", out.Duration.Milliseconds()))
	w.Header().Set(OperationHeader, out.Executed.String())
	writeJSON(w, http.StatusOK, newSimpleResponse(h.host, PathBlocking))
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// queryMillis parses an optional millisecond count in
// [0, blocking.MaxBlockPeriodMs]. An empty value means absent.
func queryMillis(v string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("not an integer: %q", v)
	}
	if n < 0 {
		return nil, fmt.Errorf("must not be negative: %d", n)
	}
	if n > blocking.MaxBlockPeriodMs {
		return nil, fmt.Errorf("must not exceed %d: %d", blocking.MaxBlockPeriodMs, n)
	}
	return &n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
