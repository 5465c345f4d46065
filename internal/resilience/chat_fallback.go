package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nmtri/docviet/pkg/provider/llm"
)

// ErrAllBackendsDown is returned when every chat backend failed or had an
// open breaker. The HTTP layer turns it into "the tutor is unavailable".
var ErrAllBackendsDown = errors.New("all chat backends down")

// FallbackConfig configures the per-backend circuit breaker a
// [ChatFallback] creates for each registered backend.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// chatBackend is one entry in the failover chain.
type chatBackend struct {
	name     string
	provider llm.Provider
	breaker  *CircuitBreaker
}

// ChatFallback implements [llm.Provider] with failover across several chat
// backends, typically a hosted Gemini or OpenAI model backed by a local
// Ollama instance for offline classrooms. Backends are tried in
// registration order; one with an open breaker is skipped without a dial.
//
// ChatFallback is safe for concurrent use once all backends are registered.
type ChatFallback struct {
	backends []chatBackend
	cfg      FallbackConfig
}

// Compile-time interface assertion.
var _ llm.Provider = (*ChatFallback)(nil)

// NewChatFallback creates a [ChatFallback] with primary as the preferred
// backend.
func NewChatFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *ChatFallback {
	f := &ChatFallback{cfg: cfg}
	f.add(primaryName, primary)
	return f
}

// AddFallback registers an additional backend, tried after all earlier ones.
func (f *ChatFallback) AddFallback(name string, provider llm.Provider) {
	f.add(name, provider)
}

func (f *ChatFallback) add(name string, provider llm.Provider) {
	cbCfg := f.cfg.CircuitBreaker
	cbCfg.Name = "chat-" + name
	f.backends = append(f.backends, chatBackend{
		name:     name,
		provider: provider,
		breaker:  NewCircuitBreaker(cbCfg),
	})
}

// Complete asks the first healthy backend for a completion.
func (f *ChatFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return failover(f, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// StreamCompletion asks the first healthy backend for a completion stream.
// Failover covers the initial connection only; mid-stream errors are the
// caller's to handle.
func (f *ChatFallback) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.Chunk, error) {
	return failover(f, func(p llm.Provider) (<-chan llm.Chunk, error) {
		return p.StreamCompletion(ctx, req)
	})
}

// failover walks the chain until a backend answers. Package-level because
// methods cannot carry their own type parameters.
func failover[R any](f *ChatFallback, fn func(llm.Provider) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range f.backends {
		b := &f.backends[i]
		var result R
		err := b.breaker.Execute(func() error {
			var callErr error
			result, callErr = fn(b.provider)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping chat backend, breaker open", "backend", b.name)
		} else {
			slog.Warn("chat backend failed, trying next", "backend", b.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllBackendsDown, lastErr)
}
