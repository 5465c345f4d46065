package narrate

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nmtri/docviet/pkg/provider/speech"
)

// Voice ranking for the local engine. The learner is six years old and the
// target register is a warm female primary-school teacher; when only male or
// unlabeled voices are installed, pitch is raised to approximate that
// register. Crude, but the alternative is a deep male voice reading "bé ơi".
const (
	femalePitch = 1.0
	femaleRate  = 0.9
	malePitch   = 1.8
	maleRate    = 0.82
)

// preferredCloudVoice is a known high-quality cloud-delivered female voice
// for vi-VN, matched by substring against voice names.
const preferredCloudVoice = "hoaimy"

// premiumKeywords mark a premium delivery tier in a voice name.
var premiumKeywords = []string{"natural", "neural", "online", "premium", "enhanced"}

// knownFemaleVoices are voice identifiers known to be female vi-VN voices
// across common engines.
var knownFemaleVoices = []string{"hoaimy", "linh", "lan", "ngoc"}

// femaleMarkers classify a voice as female by name alone.
var femaleMarkers = []string{"female", "nữ"}

// VoiceLister supplies the current voice catalogue. speech.Synthesizer
// satisfies it.
type VoiceLister interface {
	ListVoices(ctx context.Context) ([]speech.Voice, error)
}

// VoiceSelector picks the best available voice for a language from a
// dynamically-populated catalogue and computes compensating rate/pitch.
type VoiceSelector struct {
	lister   VoiceLister
	language string

	// waitTimeout bounds how long Select waits for an empty catalogue to
	// populate before proceeding with whatever is available.
	waitTimeout  time.Duration
	pollInterval time.Duration
}

// VoiceSelectorOption configures a [VoiceSelector].
type VoiceSelectorOption func(*VoiceSelector)

// WithWaitTimeout overrides the empty-catalogue wait bound (default 300ms).
func WithWaitTimeout(d time.Duration) VoiceSelectorOption {
	return func(s *VoiceSelector) { s.waitTimeout = d }
}

// WithPollInterval overrides the catalogue re-query interval (default 50ms).
func WithPollInterval(d time.Duration) VoiceSelectorOption {
	return func(s *VoiceSelector) { s.pollInterval = d }
}

// NewVoiceSelector creates a selector over lister for the given BCP-47
// language tag (e.g., "vi-VN").
func NewVoiceSelector(lister VoiceLister, language string, opts ...VoiceSelectorOption) *VoiceSelector {
	s := &VoiceSelector{
		lister:       lister,
		language:     language,
		waitTimeout:  300 * time.Millisecond,
		pollInterval: 50 * time.Millisecond,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Select returns synthesis parameters for the best available voice. When the
// catalogue is empty it waits, bounded by the configured timeout, for the
// engine to finish initialising; after the timeout it proceeds with whatever
// is then available (possibly the engine default voice) rather than hanging.
func (s *VoiceSelector) Select(ctx context.Context) speech.Params {
	voices := s.voicesWithWait(ctx)

	voice, found := pickVoice(voices, s.language)
	if !found {
		slog.Debug("no voice matched, using engine default", "language", s.language)
	}

	if isFemale(voice) {
		return speech.Params{Voice: voice, Rate: femaleRate, Pitch: femalePitch}
	}
	return speech.Params{Voice: voice, Rate: maleRate, Pitch: malePitch}
}

// voicesWithWait queries the catalogue, polling until it is non-empty or the
// wait timeout elapses.
func (s *VoiceSelector) voicesWithWait(ctx context.Context) []speech.Voice {
	deadline := time.Now().Add(s.waitTimeout)
	for {
		voices, err := s.lister.ListVoices(ctx)
		if err != nil {
			slog.Warn("voice catalogue query failed", "error", err)
			return nil
		}
		if len(voices) > 0 {
			return voices
		}
		if !time.Now().Before(deadline) {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.pollInterval):
		}
	}
}

// pickVoice applies the ranked preference list; first match wins.
func pickVoice(voices []speech.Voice, language string) (speech.Voice, bool) {
	langMatches := func(v speech.Voice) bool {
		return strings.HasPrefix(strings.ToLower(v.Language), langBase(language))
	}

	// 1. The known high-quality cloud female voice.
	for _, v := range voices {
		if langMatches(v) && strings.Contains(strings.ToLower(v.Name), preferredCloudVoice) {
			return v, true
		}
	}
	// 2. Any premium-tier voice for the locale.
	for _, v := range voices {
		if !langMatches(v) {
			continue
		}
		name := strings.ToLower(v.Name)
		for _, kw := range premiumKeywords {
			if strings.Contains(name, kw) {
				return v, true
			}
		}
	}
	// 3. Known-good female voice identifiers.
	for _, v := range voices {
		if !langMatches(v) {
			continue
		}
		name := strings.ToLower(v.Name)
		for _, id := range knownFemaleVoices {
			if strings.Contains(name, id) {
				return v, true
			}
		}
	}
	// 4. Anything explicitly flagged female.
	for _, v := range voices {
		if langMatches(v) && isFemale(v) {
			return v, true
		}
	}
	// 5. Any voice for the locale at all.
	for _, v := range voices {
		if langMatches(v) {
			return v, true
		}
	}
	// 6. Engine default.
	return speech.Voice{}, false
}

// isFemale classifies a voice as female from its metadata or name.
func isFemale(v speech.Voice) bool {
	if v.Metadata["gender"] == "female" {
		return true
	}
	name := strings.ToLower(v.Name)
	for _, marker := range femaleMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	for _, id := range knownFemaleVoices {
		if strings.Contains(name, id) {
			return true
		}
	}
	return false
}

// langBase lowers a BCP-47 tag to its primary subtag ("vi-VN" → "vi").
func langBase(tag string) string {
	tag = strings.ToLower(tag)
	if i := strings.IndexByte(tag, '-'); i > 0 {
		return tag[:i]
	}
	return tag
}
