// Package mock provides a test double for the speech.Synthesizer interface.
//
// Use Synthesizer in unit tests to drive the narration fallback chain and
// voice selector with controlled voice catalogues and synthesis outcomes.
package mock

import (
	"context"
	"sync"

	"github.com/nmtri/docviet/pkg/provider/speech"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Text is the utterance passed to Synthesize.
	Text string
	// Params is the parameter struct passed to Synthesize.
	Params speech.Params
}

// Synthesizer is a mock implementation of speech.Synthesizer.
// Zero values cause methods to return empty results and nil errors.
type Synthesizer struct {
	mu sync.Mutex

	// Audio is returned by Synthesize when SynthesizeErr is nil.
	Audio []byte

	// SynthesizeErr, if non-nil, is returned by Synthesize.
	SynthesizeErr error

	// Voices is returned by ListVoices when ListVoicesErr is nil.
	Voices []speech.Voice

	// VoicesSequence, when non-empty, is consumed one catalogue per
	// ListVoices call before falling back to Voices. Use it to simulate an
	// engine whose catalogue populates a moment after startup.
	VoicesSequence [][]speech.Voice

	// ListVoicesErr, if non-nil, is returned by ListVoices.
	ListVoicesErr error

	// SynthesizeCalls records every invocation of Synthesize in order.
	SynthesizeCalls []SynthesizeCall

	// ListVoicesCalls counts invocations of ListVoices.
	ListVoicesCalls int
}

// Synthesize implements speech.Synthesizer.
func (s *Synthesizer) Synthesize(_ context.Context, text string, p speech.Params) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.SynthesizeCalls = append(s.SynthesizeCalls, SynthesizeCall{Text: text, Params: p})
	if s.SynthesizeErr != nil {
		return nil, s.SynthesizeErr
	}
	return s.Audio, nil
}

// ListVoices implements speech.Synthesizer.
func (s *Synthesizer) ListVoices(context.Context) ([]speech.Voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ListVoicesCalls++
	if s.ListVoicesErr != nil {
		return nil, s.ListVoicesErr
	}
	if len(s.VoicesSequence) > 0 {
		voices := s.VoicesSequence[0]
		s.VoicesSequence = s.VoicesSequence[1:]
		return voices, nil
	}
	return s.Voices, nil
}
