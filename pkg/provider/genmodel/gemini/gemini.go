// Package gemini implements the genmodel.Client interface on top of the
// Google Gemini API via github.com/google/generative-ai-go.
//
// Evidence payloads are transmitted as inline blobs next to the instruction
// text, matching how the browser app originally submitted recordings and
// handwriting captures. One SDK client is created per Provider and reused
// across calls; the SDK's transport handles its own retries and timeouts.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/nmtri/docviet/pkg/provider/genmodel"
)

// Compile-time interface assertions.
var (
	_ genmodel.Client      = (*Provider)(nil)
	_ genmodel.ImageClient = (*Provider)(nil)
)

const defaultModel = "gemini-2.0-flash"

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the Gemini model used for generation (e.g., "gemini-2.0-flash").
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// Provider implements genmodel.Client backed by the Gemini API.
type Provider struct {
	client *genai.Client
	model  string
}

// New creates a Provider with the given API key. apiKey must be non-empty;
// the caller is expected to have run the cheap plausibility check first so
// that a known-broken key never reaches this constructor.
func New(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: apiKey must not be empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	p := &Provider{
		client: client,
		model:  defaultModel,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Generate implements genmodel.Client. The evidence blob, when present, is
// sent before the instruction text — the order the Gemini multimodal API
// expects for "look at this, then follow these directions" prompts.
func (p *Provider) Generate(ctx context.Context, req genmodel.Request) (string, error) {
	if strings.TrimSpace(req.Instruction) == "" {
		return "", errors.New("gemini: instruction must not be empty")
	}

	m := p.client.GenerativeModel(p.model)
	if req.System != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	if req.Temperature != 0 {
		t := float32(req.Temperature)
		m.GenerationConfig.Temperature = &t
	}
	if req.ForceJSON {
		m.GenerationConfig.ResponseMIMEType = "application/json"
	}

	var parts []genai.Part
	if req.Evidence != nil {
		if len(req.Evidence.Data) == 0 {
			return "", errors.New("gemini: evidence data must not be empty")
		}
		parts = append(parts, genai.Blob{
			MIMEType: req.Evidence.MIMEType,
			Data:     req.Evidence.Data,
		})
	}
	parts = append(parts, genai.Text(req.Instruction))

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	text := firstText(resp)
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

// GenerateImage implements genmodel.ImageClient. The configured model must
// be image-capable; text-only models answer with text parts, which surfaces
// here as the no-image error.
func (p *Provider) GenerateImage(ctx context.Context, prompt string) (genmodel.Image, error) {
	if strings.TrimSpace(prompt) == "" {
		return genmodel.Image{}, errors.New("gemini: prompt must not be empty")
	}

	m := p.client.GenerativeModel(p.model)
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return genmodel.Image{}, fmt.Errorf("gemini: generate image: %w", err)
	}

	img := firstImage(resp)
	if len(img.Data) == 0 {
		return genmodel.Image{}, errors.New("gemini: no image in response")
	}
	return img, nil
}

// Close releases the underlying SDK client.
func (p *Provider) Close() error {
	return p.client.Close()
}

// firstText concatenates the text parts of the first candidate. Refusals and
// safety blocks surface as candidates without text parts, which callers see
// as the empty-response error from Generate.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return strings.TrimSpace(sb.String())
}

// firstImage returns the first inline-data part of the first candidate.
// Image models interleave commentary text with the picture itself; only the
// picture matters here.
func firstImage(resp *genai.GenerateContentResponse) genmodel.Image {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return genmodel.Image{}
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if b, ok := part.(genai.Blob); ok && len(b.Data) > 0 {
			return genmodel.Image{Data: b.Data, MIMEType: b.MIMEType}
		}
	}
	return genmodel.Image{}
}
