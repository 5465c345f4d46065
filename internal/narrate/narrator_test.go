package narrate

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/nmtri/docviet/internal/observe"
	"github.com/nmtri/docviet/pkg/audio"
	"github.com/nmtri/docviet/pkg/provider/speech"
	speechmock "github.com/nmtri/docviet/pkg/provider/speech/mock"
)

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func fastSelector(engine VoiceLister) *VoiceSelector {
	return NewVoiceSelector(engine, "vi-VN", WithWaitTimeout(0))
}

// panicSynthesizer simulates a local engine that throws synchronously.
type panicSynthesizer struct{}

func (panicSynthesizer) Synthesize(context.Context, string, speech.Params) ([]byte, error) {
	panic("speech engine exploded")
}

func (panicSynthesizer) ListVoices(context.Context) ([]speech.Voice, error) {
	return nil, nil
}

func TestSpeak_GenerativeSuccess(t *testing.T) {
	t.Parallel()

	generative := &speechmock.Synthesizer{Audio: []byte("gen-wav")}
	local := &speechmock.Synthesizer{Audio: []byte("local-wav")}
	n := New(generative, local, fastSelector(local), WithMetrics(testMetrics(t)))

	var buf audio.Buffer
	var starts, ends int
	outcome := n.Speak(context.Background(), "mèo", &buf, Callbacks{
		OnStart: func() { starts++ },
		OnEnd:   func() { ends++ },
	})

	if outcome != OutcomeGenerated {
		t.Errorf("outcome = %s, want generated", outcome)
	}
	if !bytes.Equal(buf.Bytes(), []byte("gen-wav")) {
		t.Errorf("played %q, want the generative clip", buf.Bytes())
	}
	if starts != 1 || ends != 1 {
		t.Errorf("starts = %d, ends = %d, want 1 and 1", starts, ends)
	}
	if len(local.SynthesizeCalls) != 0 {
		t.Errorf("local engine called %d times, want 0", len(local.SynthesizeCalls))
	}
}

func TestSpeak_FallsBackToLocalEngine(t *testing.T) {
	t.Parallel()

	generative := &speechmock.Synthesizer{SynthesizeErr: errors.New("quota")}
	local := &speechmock.Synthesizer{
		Audio:  []byte("local-wav"),
		Voices: []speech.Voice{{Name: "Linh", Language: "vi-VN"}},
	}
	n := New(generative, local, fastSelector(local), WithMetrics(testMetrics(t)))

	var buf audio.Buffer
	outcome := n.Speak(context.Background(), "mèo", &buf, Callbacks{})

	if outcome != OutcomeFallback {
		t.Errorf("outcome = %s, want fallback", outcome)
	}
	if !bytes.Equal(buf.Bytes(), []byte("local-wav")) {
		t.Errorf("played %q, want the local clip", buf.Bytes())
	}

	// The fallback path selected a female voice, so natural pitch applies.
	call := local.SynthesizeCalls[0]
	if call.Params.Voice.Name != "Linh" {
		t.Errorf("voice = %q, want Linh", call.Params.Voice.Name)
	}
	if call.Params.Pitch != femalePitch {
		t.Errorf("pitch = %v, want %v", call.Params.Pitch, femalePitch)
	}
}

func TestSpeak_NoCredentialSkipsGenerativeChannel(t *testing.T) {
	t.Parallel()

	local := &speechmock.Synthesizer{Audio: []byte("local-wav")}
	n := New(nil, local, fastSelector(local), WithMetrics(testMetrics(t)))

	var buf audio.Buffer
	var starts, ends int
	outcome := n.Speak(context.Background(), "mèo", &buf, Callbacks{
		OnStart: func() { starts++ },
		OnEnd:   func() { ends++ },
	})

	if outcome != OutcomeFallback {
		t.Errorf("outcome = %s, want fallback", outcome)
	}
	if starts != 1 || ends != 1 {
		t.Errorf("starts = %d, ends = %d, want 1 and 1", starts, ends)
	}
}

func TestSpeak_AllChannelsFailStillSignalsEnd(t *testing.T) {
	t.Parallel()

	generative := &speechmock.Synthesizer{SynthesizeErr: errors.New("down")}
	local := &speechmock.Synthesizer{SynthesizeErr: errors.New("also down")}
	n := New(generative, local, fastSelector(local), WithMetrics(testMetrics(t)))

	var buf audio.Buffer
	var ends int
	outcome := n.Speak(context.Background(), "mèo", &buf, Callbacks{
		OnEnd: func() { ends++ },
	})

	if outcome != OutcomeFailed {
		t.Errorf("outcome = %s, want failed", outcome)
	}
	if ends != 1 {
		t.Errorf("ends = %d, want exactly 1", ends)
	}
	if buf.Bytes() != nil {
		t.Errorf("audio was produced by failing channels")
	}
}

func TestSpeak_PanickingEngineStillSignalsEnd(t *testing.T) {
	t.Parallel()

	n := New(nil, panicSynthesizer{}, fastSelector(panicSynthesizer{}),
		WithMetrics(testMetrics(t)))

	var buf audio.Buffer
	var ends int
	outcome := n.Speak(context.Background(), "mèo", &buf, Callbacks{
		OnEnd: func() { ends++ },
	})

	if ends != 1 {
		t.Errorf("ends = %d, want exactly 1 despite the panic", ends)
	}
	if outcome != OutcomeFailed {
		t.Errorf("outcome = %q, want %q", outcome, OutcomeFailed)
	}
}

func TestSpeak_NilSelectorUsesEngineDefaults(t *testing.T) {
	t.Parallel()

	local := &speechmock.Synthesizer{Audio: []byte("local-wav")}
	n := New(nil, local, nil, WithMetrics(testMetrics(t)))

	var buf audio.Buffer
	outcome := n.Speak(context.Background(), "mèo", &buf, Callbacks{})

	if outcome != OutcomeFallback {
		t.Errorf("outcome = %s, want fallback", outcome)
	}
	got := local.SynthesizeCalls[0].Params
	if got.Voice.ID != "" || got.Rate != 0 || got.Pitch != 0 {
		t.Errorf("params = %+v, want engine defaults", got)
	}
}

func TestSpeak_NilCallbacksAllowed(t *testing.T) {
	t.Parallel()

	local := &speechmock.Synthesizer{Audio: []byte("wav")}
	n := New(nil, local, fastSelector(local), WithMetrics(testMetrics(t)))

	var buf audio.Buffer
	if outcome := n.Speak(context.Background(), "mèo", &buf, Callbacks{}); outcome != OutcomeFallback {
		t.Errorf("outcome = %s, want fallback", outcome)
	}
}

// TestSpeak_LifecycleProperty runs randomized trials mixing credential
// presence (a nil generative channel) with simulated failures on either
// channel, asserting the lifecycle invariant: one OnStart, one OnEnd, every
// time.
func TestSpeak_LifecycleProperty(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))

	for trial := range 100 {
		var generative speech.Synthesizer
		if rng.Intn(2) == 0 {
			g := &speechmock.Synthesizer{Audio: []byte("gen")}
			if rng.Intn(2) == 0 {
				g.SynthesizeErr = errors.New("network failure")
			}
			generative = g
		}

		local := &speechmock.Synthesizer{Audio: []byte("local")}
		if rng.Intn(3) == 0 {
			local.SynthesizeErr = errors.New("engine failure")
		}

		n := New(generative, local, fastSelector(local), WithMetrics(testMetrics(t)))

		var buf audio.Buffer
		var starts, ends int
		n.Speak(context.Background(), "bé học chữ", &buf, Callbacks{
			OnStart: func() { starts++ },
			OnEnd:   func() { ends++ },
		})

		if starts != 1 || ends != 1 {
			t.Fatalf("trial %d: starts = %d, ends = %d, want exactly 1 each",
				trial, starts, ends)
		}
	}
}

func TestStop_CancelsInFlightUtterance(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	slow := &blockingSynthesizer{started: started, release: release}
	n := New(nil, slow, fastSelector(slow), WithMetrics(testMetrics(t)))

	done := make(chan Outcome, 1)
	go func() {
		var buf audio.Buffer
		done <- n.Speak(context.Background(), "mèo", &buf, Callbacks{})
	}()

	<-started
	n.Stop()
	close(release)

	if outcome := <-done; outcome != OutcomeFailed {
		t.Errorf("outcome = %s, want failed after Stop", outcome)
	}
}

// blockingSynthesizer blocks in Synthesize until released, then honours the
// (by now cancelled) context.
type blockingSynthesizer struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSynthesizer) Synthesize(ctx context.Context, _ string, _ speech.Params) ([]byte, error) {
	close(b.started)
	<-b.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte("wav"), nil
}

func (b *blockingSynthesizer) ListVoices(context.Context) ([]speech.Voice, error) {
	return nil, nil
}
