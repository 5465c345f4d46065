package narrate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/nmtri/docviet/internal/observe"
	"github.com/nmtri/docviet/internal/resilience"
	"github.com/nmtri/docviet/pkg/audio"
	"github.com/nmtri/docviet/pkg/provider/speech"
)

// Channel names used in logs and metrics.
const (
	channelGenerative = "generative"
	channelLocal      = "local"
)

// Outcome reports which narration channel produced audible output.
type Outcome string

const (
	// OutcomeGenerated means the generative channel synthesised and played
	// the utterance.
	OutcomeGenerated Outcome = "generated"

	// OutcomeFallback means the local engine spoke after the generative
	// channel was unavailable or failed.
	OutcomeFallback Outcome = "fallback"

	// OutcomeFailed means no channel produced audio. The lifecycle
	// callbacks still fired; the utterance was simply silent.
	OutcomeFailed Outcome = "failed"
)

// Callbacks are the narration lifecycle signals. OnStart fires exactly once,
// synchronously, before any synthesis attempt. OnEnd fires exactly once per
// Speak call, whichever channel wins or even when everything fails. Nil
// funcs are allowed.
type Callbacks struct {
	OnStart func()
	OnEnd   func()
}

// Narrator speaks text through the best available channel: generative audio
// synthesis first, a local speech engine second. Each channel sits behind
// its own circuit breaker so a repeatedly failing channel is skipped without
// paying its latency.
//
// A Narrator owns the conceptual audio output: starting a new utterance
// cancels the one still in flight.
type Narrator struct {
	generative speech.Synthesizer
	local      speech.Synthesizer
	selector   *VoiceSelector

	genBreaker   *resilience.CircuitBreaker
	localBreaker *resilience.CircuitBreaker
	metrics      *observe.Metrics

	mu         sync.Mutex
	cancelPrev context.CancelFunc
}

// Option configures a [Narrator].
type Option func(*Narrator)

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(n *Narrator) { n.metrics = m }
}

// WithBreakerConfig overrides the circuit breaker tuning shared by both
// channels.
func WithBreakerConfig(cfg resilience.CircuitBreakerConfig) Option {
	return func(n *Narrator) {
		genCfg, localCfg := cfg, cfg
		genCfg.Name = "narrate-" + channelGenerative
		localCfg.Name = "narrate-" + channelLocal
		n.genBreaker = resilience.NewCircuitBreaker(genCfg)
		n.localBreaker = resilience.NewCircuitBreaker(localCfg)
	}
}

// New creates a [Narrator]. generative may be nil when no model credential
// is configured; local may be nil when no engine is deployed. With both nil
// every Speak call is a silent no-op that still honours the callbacks.
// A nil selector sends the local engine its default voice parameters.
func New(generative, local speech.Synthesizer, selector *VoiceSelector, opts ...Option) *Narrator {
	n := &Narrator{
		generative: generative,
		local:      local,
		selector:   selector,
	}
	WithBreakerConfig(resilience.CircuitBreakerConfig{})(n)
	for _, o := range opts {
		o(n)
	}
	if n.metrics == nil {
		n.metrics = observe.DefaultMetrics()
	}
	return n
}

// Speak narrates text through p, trying the generative channel first and the
// local engine second. It blocks until playback finishes or both channels
// are exhausted and returns which channel produced audio.
//
// cb.OnStart is invoked synchronously before the first attempt; cb.OnEnd is
// invoked exactly once before Speak returns, under every failure mode
// including a panicking backend.
func (n *Narrator) Speak(ctx context.Context, text string, p audio.Player, cb Callbacks) (outcome Outcome) {
	ctx, cancel := context.WithCancel(ctx)
	n.takeOver(cancel)
	defer cancel()

	if cb.OnStart != nil {
		cb.OnStart()
	}
	end := func() {}
	if cb.OnEnd != nil {
		end = sync.OnceFunc(cb.OnEnd)
	}
	defer func() {
		if r := recover(); r != nil {
			// A panicking backend counts as a failed narration, not a
			// crashed one: the caller still gets OnEnd and a real outcome.
			slog.Error("narration backend panicked", "panic", r)
			outcome = OutcomeFailed
		}
		end()
	}()

	if n.speakGenerative(ctx, text, p) {
		return OutcomeGenerated
	}
	if n.speakLocal(ctx, text, p) {
		return OutcomeFallback
	}
	return OutcomeFailed
}

// Stop cancels the utterance currently in flight, if any.
func (n *Narrator) Stop() {
	n.takeOver(nil)
}

// takeOver cancels the previous utterance and installs the new cancel func.
func (n *Narrator) takeOver(cancel context.CancelFunc) {
	n.mu.Lock()
	prev := n.cancelPrev
	n.cancelPrev = cancel
	n.mu.Unlock()
	if prev != nil {
		prev()
	}
}

func (n *Narrator) speakGenerative(ctx context.Context, text string, p audio.Player) bool {
	if n.generative == nil {
		n.metrics.RecordNarrationOutcome(ctx, channelGenerative, "skipped")
		return false
	}
	return n.speakChannel(ctx, channelGenerative, n.genBreaker, func() error {
		// The generative backend carries its own voice configuration; no
		// selection or pitch compensation applies here.
		wav, err := n.generative.Synthesize(ctx, text, speech.Params{})
		if err != nil {
			return err
		}
		return p.Play(ctx, wav)
	})
}

func (n *Narrator) speakLocal(ctx context.Context, text string, p audio.Player) bool {
	if n.local == nil {
		n.metrics.RecordNarrationOutcome(ctx, channelLocal, "skipped")
		return false
	}
	return n.speakChannel(ctx, channelLocal, n.localBreaker, func() error {
		var params speech.Params
		if n.selector != nil {
			params = n.selector.Select(ctx)
		}
		wav, err := n.local.Synthesize(ctx, text, params)
		if err != nil {
			return err
		}
		return p.Play(ctx, wav)
	})
}

// speakChannel runs one channel attempt through its breaker, timing it and
// recording the outcome.
func (n *Narrator) speakChannel(ctx context.Context, channel string, cb *resilience.CircuitBreaker, attempt func() error) bool {
	n.metrics.ActiveNarrations.Add(ctx, 1)
	defer n.metrics.ActiveNarrations.Add(ctx, -1)

	start := time.Now()
	err := cb.Execute(attempt)
	n.metrics.NarrationDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("channel", channel)))

	if err != nil {
		observe.Logger(ctx).Warn("narration channel failed", "channel", channel, "error", err)
		n.metrics.RecordNarrationOutcome(ctx, channel, "error")
		return false
	}
	n.metrics.RecordNarrationOutcome(ctx, channel, "ok")
	return true
}
