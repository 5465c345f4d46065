// Package speech defines the Synthesizer interface for text-to-speech
// backends used on the narration path.
//
// A synthesizer turns one utterance of text into a complete WAV payload.
// Narration latency tolerances here are generous (a teacher reading a word
// aloud, not a live conversation), so the interface is batch rather than
// streaming: one call, one finished audio clip the browser can play.
//
// Implementations must be safe for concurrent use.
package speech

import "context"

// Voice describes one synthesis voice offered by a backend.
//
// Voices are re-queried per narration attempt rather than cached: local
// engines populate their catalogue asynchronously after startup, so the set
// may legitimately be empty early in the process lifetime.
type Voice struct {
	// ID is the backend-specific voice identifier.
	ID string

	// Name is the human-readable voice name (e.g., "HoaiMy Online Natural").
	Name string

	// Language is the BCP-47 tag the voice speaks (e.g., "vi-VN").
	Language string

	// Metadata holds backend-specific attributes. The "gender" key, when
	// present, is either "female" or "male".
	Metadata map[string]string
}

// Params configures one synthesis call.
type Params struct {
	// Voice selects the synthesis voice. A zero Voice asks the backend to
	// use its default.
	Voice Voice

	// Rate adjusts speaking speed (0.5–2.0, 1.0 = natural). Zero means 1.0.
	Rate float64

	// Pitch adjusts voice pitch (0.5–2.0, 1.0 = natural). Zero means 1.0.
	// Backends without pitch control ignore this.
	Pitch float64
}

// Synthesizer is the abstraction over any TTS backend.
type Synthesizer interface {
	// Synthesize renders text as a complete WAV payload. Returns an error
	// when the backend is unreachable, rejects the request, or produces no
	// audio — callers treat all three identically and fall through to the
	// next narration channel.
	Synthesize(ctx context.Context, text string, p Params) ([]byte, error)

	// ListVoices returns the backend's current voice catalogue. An empty
	// slice with a nil error is a valid result (catalogue still warming up).
	ListVoices(ctx context.Context) ([]Voice, error)
}
