// Package health exposes liveness and readiness probe endpoints.
//
// Checks are evaluated inline on each probe request. The engine has a small,
// fixed set of cheap checks (store ping, sync state), so running them on
// demand keeps the package free of background goroutines and always reports
// the current state rather than a cached one.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports on a single component. It returns nil when the component
// is healthy.
type CheckFunc func(ctx context.Context) error

// check pairs a registered CheckFunc with its name and per-probe timeout.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Health evaluates liveness and readiness checks for a service.
type Health struct {
	ready atomic.Bool

	// mu guards the check slices. Registration happens during startup, before
	// the HTTP server is listening, so probe handlers only ever read.
	mu        sync.RWMutex
	liveness  []check
	readiness []check
}

// New returns a Health in the not-ready state. Call SetReady(true) once
// initialization has finished.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check that decides whether the process is
// alive. A failing liveness check signals the process should be restarted.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, check{name: name, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a check that decides whether the service can
// serve traffic, such as store connectivity or catalog sync state.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, check{name: name, timeout: timeout, fn: fn})
}

// SetReady flips the manual readiness gate. Pass true after startup completes
// and false during graceful shutdown to drain traffic.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady(ctx context.Context) bool {
	if !h.ready.Load() {
		return false
	}
	h.mu.RLock()
	checks := h.readiness
	h.mu.RUnlock()
	return len(evaluate(ctx, checks)) == 0
}

// LiveEndpoint serves the /livez probe.
// It returns 200 with {"status":"ok"} when all liveness checks pass, or 503
// with {"status":"unhealthy","checks":{...}} naming the failures.
func (h *Health) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := h.liveness
	h.mu.RUnlock()

	writeResponse(w, evaluate(r.Context(), checks))
}

// ReadyEndpoint serves the /readyz probe.
// It returns 200 only when the service has been marked ready and all
// readiness checks pass.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := h.readiness
	h.mu.RUnlock()

	failures := evaluate(r.Context(), checks)
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeResponse(w, failures)
}

// evaluate runs each check with its timeout and returns a name to error
// message map for the ones that failed.
func evaluate(ctx context.Context, checks []check) map[string]string {
	failures := make(map[string]string)
	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.fn(checkCtx)
		cancel()
		if err != nil {
			failures[c.name] = err.Error()
		}
	}
	return failures
}

// statusResponse is the JSON body for probe endpoints.
type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func writeResponse(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	status := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		status = http.StatusServiceUnavailable
	}

	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
