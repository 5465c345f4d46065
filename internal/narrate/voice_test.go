package narrate

import (
	"context"
	"testing"
	"time"

	"github.com/nmtri/docviet/pkg/provider/speech"
	speechmock "github.com/nmtri/docviet/pkg/provider/speech/mock"
)

func viVoice(name string, meta map[string]string) speech.Voice {
	return speech.Voice{ID: name, Name: name, Language: "vi-VN", Metadata: meta}
}

func TestVoiceSelector_PrefersKnownCloudFemaleVoice(t *testing.T) {
	t.Parallel()

	engine := &speechmock.Synthesizer{Voices: []speech.Voice{
		viVoice("Nam Minh", map[string]string{"gender": "male"}),
		viVoice("HoaiMy Online Natural", nil),
		viVoice("Generic vi voice", nil),
	}}
	sel := NewVoiceSelector(engine, "vi-VN")

	p := sel.Select(context.Background())
	if p.Voice.Name != "HoaiMy Online Natural" {
		t.Errorf("selected %q, want HoaiMy Online Natural", p.Voice.Name)
	}
	if p.Pitch != femalePitch || p.Rate != femaleRate {
		t.Errorf("params = rate %v pitch %v, want female compensation", p.Rate, p.Pitch)
	}
}

func TestVoiceSelector_PremiumTierBeatsPlainFemale(t *testing.T) {
	t.Parallel()

	engine := &speechmock.Synthesizer{Voices: []speech.Voice{
		viVoice("Linh", map[string]string{"gender": "female"}),
		viVoice("Vietnamese Neural Voice", nil),
	}}
	sel := NewVoiceSelector(engine, "vi-VN")

	p := sel.Select(context.Background())
	if p.Voice.Name != "Vietnamese Neural Voice" {
		t.Errorf("selected %q, want the premium-tier voice", p.Voice.Name)
	}
}

func TestVoiceSelector_FemaleFlagged(t *testing.T) {
	t.Parallel()

	engine := &speechmock.Synthesizer{Voices: []speech.Voice{
		viVoice("Voice A", map[string]string{"gender": "male"}),
		viVoice("Voice B", map[string]string{"gender": "female"}),
	}}
	sel := NewVoiceSelector(engine, "vi-VN")

	p := sel.Select(context.Background())
	if p.Voice.Name != "Voice B" {
		t.Errorf("selected %q, want the female-flagged voice", p.Voice.Name)
	}
	if p.Pitch != femalePitch {
		t.Errorf("pitch = %v, want %v", p.Pitch, femalePitch)
	}
}

func TestVoiceSelector_MaleOnlyGetsPitchCompensation(t *testing.T) {
	t.Parallel()

	engine := &speechmock.Synthesizer{Voices: []speech.Voice{
		viVoice("Nam Minh", map[string]string{"gender": "male"}),
	}}
	sel := NewVoiceSelector(engine, "vi-VN")

	p := sel.Select(context.Background())
	if p.Voice.Name != "Nam Minh" {
		t.Errorf("selected %q, want the only locale voice", p.Voice.Name)
	}
	if p.Pitch < 1.5 {
		t.Errorf("pitch = %v, want raised above 1.5 for a male voice", p.Pitch)
	}
	if p.Rate >= femaleRate {
		t.Errorf("rate = %v, want slowed below %v", p.Rate, femaleRate)
	}
}

func TestVoiceSelector_IgnoresOtherLocales(t *testing.T) {
	t.Parallel()

	engine := &speechmock.Synthesizer{Voices: []speech.Voice{
		{ID: "en", Name: "English Female Natural", Language: "en-US"},
	}}
	sel := NewVoiceSelector(engine, "vi-VN", WithWaitTimeout(20*time.Millisecond))

	p := sel.Select(context.Background())
	if p.Voice.Name != "" {
		t.Errorf("selected %q, want engine default (zero voice)", p.Voice.Name)
	}
	// No locale voice and nothing classified female: male compensation.
	if p.Pitch < 1.5 {
		t.Errorf("pitch = %v, want raised", p.Pitch)
	}
}

func TestVoiceSelector_WaitsForLatePopulation(t *testing.T) {
	t.Parallel()

	engine := &speechmock.Synthesizer{
		VoicesSequence: [][]speech.Voice{
			nil, // catalogue still warming up on the first query
			nil,
			{viVoice("Linh", nil)},
		},
	}
	sel := NewVoiceSelector(engine, "vi-VN",
		WithWaitTimeout(500*time.Millisecond),
		WithPollInterval(5*time.Millisecond))

	p := sel.Select(context.Background())
	if p.Voice.Name != "Linh" {
		t.Errorf("selected %q, want the late-arriving voice", p.Voice.Name)
	}
	if engine.ListVoicesCalls != 3 {
		t.Errorf("ListVoices called %d times, want 3", engine.ListVoicesCalls)
	}
}

func TestVoiceSelector_EmptyCatalogueCompletesWithinTimeout(t *testing.T) {
	t.Parallel()

	engine := &speechmock.Synthesizer{} // catalogue never populates
	sel := NewVoiceSelector(engine, "vi-VN",
		WithWaitTimeout(100*time.Millisecond),
		WithPollInterval(10*time.Millisecond))

	done := make(chan speech.Params, 1)
	go func() { done <- sel.Select(context.Background()) }()

	select {
	case p := <-done:
		if p.Voice.Name != "" {
			t.Errorf("selected %q from an empty catalogue", p.Voice.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Select did not complete; it must not hang on an empty catalogue")
	}
}
