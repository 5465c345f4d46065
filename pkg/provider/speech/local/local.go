// Package local implements the speech.Synthesizer interface against a
// self-hosted TTS engine's REST API (a Coqui-style server running next to
// the docviet process).
//
// Synthesis is performed via GET /api/tts with URL query parameters and
// returns a complete WAV payload; the voice catalogue is retrieved from
// GET /api/voices. The engine loads its voice models asynchronously after
// startup, so /api/voices legitimately returns an empty list for the first
// seconds of the engine's life — callers must tolerate that (see the voice
// selector's bounded wait).
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nmtri/docviet/pkg/provider/speech"
)

// Compile-time interface assertion.
var _ speech.Synthesizer = (*Engine)(nil)

const (
	ttsEndpoint    = "/api/tts"
	voicesEndpoint = "/api/voices"

	defaultLanguage = "vi-VN"
	defaultTimeout  = 15 * time.Second

	// maxWAVBytes caps a single synthesis response. Narration utterances
	// are short; anything bigger than this is a misbehaving engine.
	maxWAVBytes = 16 << 20
)

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithLanguage sets the BCP-47 language tag sent with every request.
// Defaults to "vi-VN".
func WithLanguage(lang string) Option {
	return func(e *Engine) { e.language = lang }
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 15 s.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.httpClient.Timeout = d }
}

// Engine implements speech.Synthesizer backed by a local TTS server.
type Engine struct {
	serverURL  string
	language   string
	httpClient *http.Client
}

// New creates an Engine targeting the TTS server at serverURL
// (e.g., "http://localhost:5002").
func New(serverURL string, opts ...Option) (*Engine, error) {
	if serverURL == "" {
		return nil, errors.New("local tts: serverURL must not be empty")
	}
	e := &Engine{
		serverURL:  serverURL,
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Synthesize implements speech.Synthesizer via GET /api/tts. Rate and pitch
// are forwarded as "speed" and "pitch" query parameters; the engine applies
// them during vocoding.
func (e *Engine) Synthesize(ctx context.Context, text string, p speech.Params) ([]byte, error) {
	if text == "" {
		return nil, errors.New("local tts: text must not be empty")
	}

	params := url.Values{}
	params.Set("text", text)
	params.Set("language_id", e.language)
	if p.Voice.ID != "" {
		params.Set("speaker_id", p.Voice.ID)
	}
	if p.Rate != 0 {
		params.Set("speed", strconv.FormatFloat(p.Rate, 'f', 2, 64))
	}
	if p.Pitch != 0 {
		params.Set("pitch", strconv.FormatFloat(p.Pitch, 'f', 2, 64))
	}

	reqURL := e.serverURL + ttsEndpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("local tts: create request: %w", err)
	}
	req.Header.Set("Accept", "audio/wav")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("local tts: GET %s: %w", ttsEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("local tts: GET %s returned status %d", ttsEndpoint, resp.StatusCode)
	}

	wav, err := io.ReadAll(io.LimitReader(resp.Body, maxWAVBytes))
	if err != nil {
		return nil, fmt.Errorf("local tts: read WAV response: %w", err)
	}
	if len(wav) == 0 {
		return nil, errors.New("local tts: engine returned no audio")
	}
	return wav, nil
}

// voiceEntry mirrors one element of the /api/voices response.
type voiceEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Gender   string `json:"gender,omitempty"`
}

// ListVoices implements speech.Synthesizer via GET /api/voices. An engine
// that is still loading models responds with an empty array, which is
// returned as an empty slice with a nil error.
func (e *Engine) ListVoices(ctx context.Context) ([]speech.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.serverURL+voicesEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("local tts: create request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("local tts: GET %s: %w", voicesEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("local tts: GET %s returned status %d", voicesEndpoint, resp.StatusCode)
	}

	var entries []voiceEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("local tts: decode voices: %w", err)
	}

	voices := make([]speech.Voice, 0, len(entries))
	for _, v := range entries {
		voice := speech.Voice{
			ID:       v.ID,
			Name:     v.Name,
			Language: v.Language,
		}
		if v.Gender != "" {
			voice.Metadata = map[string]string{"gender": v.Gender}
		}
		voices = append(voices, voice)
	}
	return voices, nil
}
