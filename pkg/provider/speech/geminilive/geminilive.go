// Package geminilive implements the speech.Synthesizer interface using
// Google's Gemini Live API for generative narration audio.
//
// It opens a BidiGenerateContent WebSocket per utterance, sends a setup
// message requesting audio-only responses with a prebuilt voice, submits the
// narration text as a single completed turn, and collects the base64 PCM
// chunks the model streams back until the turn completes. The collected
// 24 kHz mono PCM is returned wrapped in a WAV header.
//
// A per-utterance connection costs one extra round trip but keeps the
// provider stateless, which is what the narration fallback chain wants: a
// failed connection is just a failed attempt, with nothing to tear down.
package geminilive

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/nmtri/docviet/pkg/audio"
	"github.com/nmtri/docviet/pkg/provider/speech"
)

// Compile-time interface assertion.
var _ speech.Synthesizer = (*Provider)(nil)

const (
	defaultModel   = "gemini-2.0-flash-live-001"
	defaultBaseURL = "wss://generativelanguage.googleapis.com/ws"
	defaultVoice   = "Kore"

	// outputSampleRate is the PCM rate the Live API emits.
	outputSampleRate = 24000

	// utteranceTimeout bounds one full synthesis exchange. Narration texts
	// are a handful of words; anything longer than this is a stuck stream.
	utteranceTimeout = 30 * time.Second
)

// narrationPersona instructs the model to read rather than converse. The
// register is a northern-accented Vietnamese primary school teacher reading
// to six-year-olds.
const narrationPersona = `Bạn là cô giáo tiểu học người Việt, giọng miền Bắc chuẩn, đọc mẫu cho học sinh lớp 1.
Hãy đọc to, chậm rãi và rõ ràng đúng nội dung được đưa, không thêm lời chào hay bình luận nào.`

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the Gemini Live model used for synthesis.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithBaseURL overrides the base WebSocket URL. Primarily used in tests to
// point at a local mock server.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithVoice sets the prebuilt voice used when the caller does not pick one.
func WithVoice(name string) Option {
	return func(p *Provider) { p.voice = name }
}

// Provider implements speech.Synthesizer via the Gemini Live API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	voice   string
}

// New creates a Provider with the given API key and options.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
		voice:   defaultVoice,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ListVoices returns the fixed prebuilt voice catalogue of the Live API.
func (p *Provider) ListVoices(_ context.Context) ([]speech.Voice, error) {
	return []speech.Voice{
		{ID: "Aoede", Name: "Aoede", Language: "vi-VN", Metadata: map[string]string{"gender": "female"}},
		{ID: "Charon", Name: "Charon", Language: "vi-VN", Metadata: map[string]string{"gender": "male"}},
		{ID: "Fenrir", Name: "Fenrir", Language: "vi-VN", Metadata: map[string]string{"gender": "male"}},
		{ID: "Kore", Name: "Kore", Language: "vi-VN", Metadata: map[string]string{"gender": "female"}},
		{ID: "Puck", Name: "Puck", Language: "vi-VN", Metadata: map[string]string{"gender": "male"}},
	}, nil
}

// Synthesize implements speech.Synthesizer. The voice in p defaults to Kore
// when unset; rate and pitch are not supported by the Live API and ignored.
func (p *Provider) Synthesize(ctx context.Context, text string, params speech.Params) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("geminilive: text must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, utteranceTimeout)
	defer cancel()

	wsURL := fmt.Sprintf(
		"%s/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent?key=%s",
		p.baseURL, p.apiKey,
	)
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Content-Type": []string{"application/json"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("geminilive: dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	voice := params.Voice.ID
	if voice == "" {
		voice = p.voice
	}

	if err := writeJSON(ctx, conn, setupMessage{
		Setup: setupConfig{
			Model: fmt.Sprintf("models/%s", p.model),
			GenerationConfig: generationConfig{
				ResponseModalities: []string{"audio"},
				SpeechConfig: &speechConfig{
					VoiceConfig: voiceConfig{
						PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voice},
					},
				},
			},
			SystemInstruction: &systemInstruction{
				Parts: []part{{Text: narrationPersona}},
			},
		},
	}); err != nil {
		return nil, fmt.Errorf("geminilive: setup: %w", err)
	}

	if err := writeJSON(ctx, conn, clientContentMessage{
		ClientContent: clientContent{
			Turns: []contentTurn{{
				Role:  "user",
				Parts: []part{{Text: text}},
			}},
			TurnComplete: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("geminilive: send text: %w", err)
	}

	pcm, err := collectAudio(ctx, conn)
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("geminilive: model returned no audio")
	}

	return audio.EncodeWAV(pcm, outputSampleRate, 1), nil
}

// collectAudio reads server messages and accumulates inline audio data until
// the model signals turn completion.
func collectAudio(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	var pcm []byte
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("geminilive: read: %w", ctx.Err())
			}
			return nil, fmt.Errorf("geminilive: read: %w", err)
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue // skip malformed frames
		}

		if msg.Error != nil {
			reason := msg.Error.Message
			if reason == "" {
				reason = "unknown error"
			}
			return nil, fmt.Errorf("geminilive: server error: %s", reason)
		}

		sc := msg.ServerContent
		if sc == nil {
			continue
		}
		if sc.ModelTurn != nil {
			for _, p := range sc.ModelTurn.Parts {
				if p.InlineData == nil {
					continue
				}
				chunk, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
				if err != nil || len(chunk) == 0 {
					continue
				}
				pcm = append(pcm, chunk...)
			}
		}
		if sc.TurnComplete {
			return pcm, nil
		}
	}
}

// writeJSON marshals v and writes it as a text WebSocket message.
func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// ── Protocol message types (outgoing) ─────────────────────────────────────────

type setupMessage struct {
	Setup setupConfig `json:"setup"`
}

type setupConfig struct {
	Model             string             `json:"model"`
	GenerationConfig  generationConfig   `json:"generationConfig"`
	SystemInstruction *systemInstruction `json:"systemInstruction,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type systemInstruction struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded
}

type clientContentMessage struct {
	ClientContent clientContent `json:"clientContent"`
}

type clientContent struct {
	Turns        []contentTurn `json:"turns"`
	TurnComplete bool          `json:"turnComplete"`
}

type contentTurn struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

// ── Protocol message types (incoming) ─────────────────────────────────────────

type serverMessage struct {
	SetupComplete *json.RawMessage `json:"setupComplete,omitempty"`
	ServerContent *serverContent   `json:"serverContent,omitempty"`
	Error         *liveError       `json:"error,omitempty"`
}

type liveError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

type serverContent struct {
	ModelTurn    *modelTurn `json:"modelTurn,omitempty"`
	TurnComplete bool       `json:"turnComplete,omitempty"`
	Interrupted  bool       `json:"interrupted,omitempty"`
}

type modelTurn struct {
	Parts []part `json:"parts"`
}
