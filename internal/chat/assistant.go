// Package chat implements the Vietnamese first-grade tutor assistant.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/nmtri/docviet/internal/observe"
	"github.com/nmtri/docviet/pkg/provider/llm"
)

// systemPrompt frames every exchange. Mirrors the register of the grading
// rubrics: a friendly teacher talking to a six-year-old.
const systemPrompt = "Bạn là một trợ lý giáo dục thân thiện dành cho học sinh lớp 1 tại Việt Nam. " +
	"Hãy trả lời ngắn gọn, dễ hiểu và khích lệ bé học tập."

// temperature keeps replies warm but steady; maxTokens caps answers at a
// few sentences, which is all a first grader will sit through.
const (
	temperature = 0.7
	maxTokens   = 300
)

// ErrEmptyMessage is returned when the learner's message is blank.
var ErrEmptyMessage = errors.New("chat: empty message")

// Assistant answers learner questions through a chat model provider,
// typically a resilience.ChatFallback spanning several backends.
type Assistant struct {
	provider llm.Provider
	metrics  *observe.Metrics
}

// Option configures an [Assistant].
type Option func(*Assistant)

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Assistant) { a.metrics = m }
}

// New creates an [Assistant] backed by provider.
func New(provider llm.Provider, opts ...Option) *Assistant {
	a := &Assistant{provider: provider}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	return a
}

// Reply answers message in the context of an optional prior conversation.
// history carries alternating user/assistant messages, oldest first; the
// system prompt is injected here and must not appear in history.
//
// Unlike grading, chat surfaces errors: there is no sensible degraded reply,
// and the UI shows a retry affordance instead.
func (a *Assistant) Reply(ctx context.Context, history []llm.Message, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: message})

	start := time.Now()
	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Messages:     messages,
		SystemPrompt: systemPrompt,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
	})
	a.metrics.ChatDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("status", statusOf(err))))

	if err != nil {
		return "", fmt.Errorf("chat: complete: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", errors.New("chat: model returned an empty reply")
	}
	return resp.Content, nil
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
