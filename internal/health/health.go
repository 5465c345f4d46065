// Package health answers the orchestrator's liveness and readiness probes.
//
//   - /healthz — liveness; always 200 for a process that can serve HTTP.
//   - /readyz  — readiness; runs the registered [Checker] probes.
//
// Docviet deliberately keeps serving with some dependencies missing: without
// a model credential grading degrades to canned verdicts, without the local
// TTS engine narration loses its fallback channel. Checks for those
// dependencies are marked [Checker.Optional]; when only optional checks fail
// /readyz reports "degraded" with 200 so the pod stays in rotation, and the
// per-check breakdown tells the operator what to fix. A failing required
// check (the progress database) reports "unavailable" with 503.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// checkTimeout bounds one probe. Kubelet probes default to short periods, so
// a hung dependency must not hold /readyz for longer than this.
const checkTimeout = 5 * time.Second

// Statuses reported in the JSON body.
const (
	StatusOK          = "ok"
	StatusDegraded    = "degraded"
	StatusUnavailable = "unavailable"
)

// Checker is one named readiness probe.
type Checker struct {
	// Name keys the check in the JSON response (e.g., "database", "gemini").
	Name string

	// Optional marks a dependency the server can serve without. A failing
	// optional check degrades readiness instead of failing it.
	Optional bool

	// Check probes the dependency. It must respect context cancellation and
	// return nil when healthy.
	Check func(ctx context.Context) error
}

// report is the JSON response body for both probe endpoints.
type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves /healthz and /readyz. Safe for concurrent use; the checker
// list is fixed at construction.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] over the given checkers.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always answers 200. Restarting the process would not fix anything
// a failing dependency probe reports, so liveness stays unconditional.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report{Status: StatusOK})
}

// Readyz runs every checker concurrently, each under its own
// [checkTimeout], and folds the results into one status.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	results := make([]error, len(h.checkers))
	var g errgroup.Group
	for i, c := range h.checkers {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()
			results[i] = c.Check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	checks := make(map[string]string, len(h.checkers))
	status := StatusOK
	for i, c := range h.checkers {
		err := results[i]
		switch {
		case err == nil:
			checks[c.Name] = StatusOK
		case c.Optional:
			checks[c.Name] = StatusDegraded + ": " + err.Error()
			if status == StatusOK {
				status = StatusDegraded
			}
		default:
			checks[c.Name] = "fail: " + err.Error()
			status = StatusUnavailable
		}
	}

	code := http.StatusOK
	if status == StatusUnavailable {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, report{Status: status, Checks: checks})
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
