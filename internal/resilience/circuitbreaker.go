// Package resilience keeps the lesson flowing when a model backend dies.
//
// Two things in docviet talk to flaky remote services: the narration
// channels (Gemini Live, the local TTS engine) and the chat tutor's model
// backends. [CircuitBreaker] guards one such backend each. A classroom UI
// replays narration constantly, so a dead backend would otherwise be
// re-dialled on every tap; the breaker trips after a few consecutive
// failures and lets the caller skip straight to its fallback until a probe
// shows the backend recovered.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] when the guarded
// backend is considered down and the call was not attempted.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// errAbandoned marks a call that panicked instead of returning. The panic
// itself propagates to the caller; the breaker only needs to count it.
var errAbandoned = errors.New("call abandoned")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call. Normal operation.
	StateClosed State = iota

	// StateOpen rejects every call with [ErrCircuitOpen] until the cooldown
	// elapses.
	StateOpen

	// StateHalfOpen lets a single probe call through at a time to find out
	// whether the backend recovered.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes a [CircuitBreaker]. The zero value selects
// defaults sized for a child tapping the same button over and over: trip
// fast, recover fast.
type CircuitBreakerConfig struct {
	// Name labels the breaker in log messages (e.g., "narrate-generative",
	// a chat backend name).
	Name string

	// FailureThreshold is the number of consecutive failures that trips the
	// breaker. Default: 3.
	FailureThreshold int

	// Cooldown is how long a tripped breaker rejects calls before probing
	// the backend again. Default: 20s.
	Cooldown time.Duration

	// ProbeQuota is the number of consecutive successful probes required to
	// close a tripped breaker. Default: 2.
	ProbeQuota int
}

// CircuitBreaker is a three-state breaker (closed, open, half-open) guarding
// one model backend.
type CircuitBreaker struct {
	name       string
	threshold  int
	cooldown   time.Duration
	probeQuota int

	mu        sync.Mutex
	state     State
	failures  int
	openedAt  time.Time
	probing   bool
	probeWins int
}

// NewCircuitBreaker creates a breaker from cfg, substituting defaults for
// zero fields.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 20 * time.Second
	}
	if cfg.ProbeQuota <= 0 {
		cfg.ProbeQuota = 2
	}
	return &CircuitBreaker{
		name:       cfg.Name,
		threshold:  cfg.FailureThreshold,
		cooldown:   cfg.Cooldown,
		probeQuota: cfg.ProbeQuota,
	}
}

// Execute runs fn unless the breaker is rejecting calls, and folds the
// result into the breaker's failure accounting. A panicking fn counts as a
// failure; the panic still propagates to the caller.
func (b *CircuitBreaker) Execute(fn func() error) error {
	probe, err := b.admit()
	if err != nil {
		return err
	}

	settled := false
	defer func() {
		if !settled {
			b.settle(probe, errAbandoned)
		}
	}()

	err = fn()
	settled = true
	b.settle(probe, err)
	return err
}

// admit decides whether a call may proceed and whether it counts as a
// half-open probe.
func (b *CircuitBreaker) admit() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.openedAt) < b.cooldown {
			return false, ErrCircuitOpen
		}
		b.state = StateHalfOpen
		b.probeWins = 0
		b.probing = false
		slog.Info("circuit breaker probing backend", "name", b.name)
		fallthrough

	case StateHalfOpen:
		// One probe in flight at a time; everyone else keeps failing over.
		if b.probing {
			return false, ErrCircuitOpen
		}
		b.probing = true
		return true, nil
	}
	return false, nil
}

// settle records the outcome of an admitted call.
func (b *CircuitBreaker) settle(probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.probing = false
	}

	if err != nil {
		b.openedAt = time.Now()
		if probe {
			b.state = StateOpen
			b.probeWins = 0
			slog.Warn("circuit breaker re-opened, probe failed", "name", b.name)
			return
		}
		b.failures++
		if b.failures >= b.threshold && b.state == StateClosed {
			b.state = StateOpen
			slog.Warn("circuit breaker opened",
				"name", b.name, "consecutive_failures", b.failures)
		}
		return
	}

	if probe {
		b.probeWins++
		if b.probeWins >= b.probeQuota {
			b.state = StateClosed
			b.failures = 0
			b.probeWins = 0
			slog.Info("circuit breaker closed, backend recovered", "name", b.name)
		}
		return
	}
	b.failures = 0
}

// State reports the breaker's mode. An open breaker whose cooldown has
// elapsed reports [StateHalfOpen]; the transition itself happens on the
// next Execute.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && time.Since(b.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Reset forces the breaker back to closed and clears all counters.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failures = 0
	b.probeWins = 0
	b.probing = false
	slog.Info("circuit breaker manually reset", "name", b.name)
}
