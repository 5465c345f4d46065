// Package api exposes the HTTP surface the browser UI talks to: grading,
// narration, the chat tutor, answer checking, and progress records, plus the
// operational endpoints (health, readiness, metrics).
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nmtri/docviet/internal/chat"
	"github.com/nmtri/docviet/internal/creative"
	"github.com/nmtri/docviet/internal/exercise"
	"github.com/nmtri/docviet/internal/grading"
	"github.com/nmtri/docviet/internal/health"
	"github.com/nmtri/docviet/internal/narrate"
	"github.com/nmtri/docviet/internal/observe"
	"github.com/nmtri/docviet/internal/progress"
)

// minAudioBytes rejects recordings that are almost certainly silence: the
// capture layer produces around 16 kB per second of audio, so anything under
// a kilobyte holds no usable speech.
const minAudioBytes = 1000

// maxBodyBytes caps request bodies. Audio evidence for a short reading is
// well under a megabyte; handwriting PNGs can be larger.
const maxBodyBytes = 16 << 20

// Deps are the collaborators a [Server] routes requests to.
type Deps struct {
	Grader      *grading.Service
	Narrator    *narrate.Narrator
	Assistant   *chat.Assistant
	Illustrator *creative.Illustrator
	Checker     *exercise.Checker
	Store       progress.Store
	Health      *health.Handler
	Metrics     *observe.Metrics
}

// Server is the HTTP API. Construct with [New]; serve via [Server.Handler].
type Server struct {
	deps Deps
	mux  *http.ServeMux
}

// New creates a [Server] and registers all routes.
func New(deps Deps) *Server {
	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}
	if deps.Checker == nil {
		deps.Checker = exercise.New()
	}
	if deps.Illustrator == nil {
		deps.Illustrator = creative.New(nil, creative.WithMetrics(deps.Metrics))
	}

	s := &Server{deps: deps, mux: http.NewServeMux()}

	s.mux.HandleFunc("POST /api/grade/reading", s.handleGradeReading)
	s.mux.HandleFunc("POST /api/grade/exercise", s.handleGradeExercise)
	s.mux.HandleFunc("POST /api/grade/handwriting", s.handleGradeHandwriting)
	s.mux.HandleFunc("POST /api/narrate", s.handleNarrate)
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("POST /api/creative/image", s.handleCreativeImage)
	s.mux.HandleFunc("POST /api/exercise/check", s.handleExerciseCheck)
	s.mux.HandleFunc("POST /api/progress", s.handleProgressAdd)
	s.mux.HandleFunc("GET /api/progress/{student}", s.handleProgressList)

	if deps.Health != nil {
		deps.Health.Register(s.mux)
	}
	s.mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Handler returns the routed handler wrapped in the observability
// middleware.
func (s *Server) Handler() http.Handler {
	return observe.Middleware(s.deps.Metrics)(s.mux)
}
