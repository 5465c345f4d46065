// Package creative generates reward illustrations from learner prompts.
//
// The browser offers a "draw me a picture" activity after a finished lesson;
// this service turns the child's description into an image through an
// image-capable generative model. Unlike grading there is no graceful
// default to substitute, so failures surface as errors for the HTTP layer
// to translate.
package creative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/nmtri/docviet/internal/observe"
	"github.com/nmtri/docviet/pkg/provider/genmodel"
)

// kind labels illustration requests on model metrics, alongside the
// grading kinds.
const kind = "illustration"

// maxPromptLen bounds the prompt a learner can submit. First graders type
// a phrase, not an essay; anything longer is a misbehaving client.
const maxPromptLen = 500

// Errors the HTTP layer maps to status codes.
var (
	// ErrEmptyPrompt is returned when the prompt is blank.
	ErrEmptyPrompt = errors.New("creative: empty prompt")

	// ErrPromptTooLong is returned when the prompt exceeds maxPromptLen.
	ErrPromptTooLong = errors.New("creative: prompt too long")

	// ErrUnavailable is returned when no image backend is configured.
	ErrUnavailable = errors.New("creative: no image backend configured")
)

// Illustrator turns learner prompts into images. Construct with [New];
// the zero value is not usable.
type Illustrator struct {
	images  genmodel.ImageClient
	model   string
	metrics *observe.Metrics
}

// Option configures an [Illustrator].
type Option func(*Illustrator)

// WithModelName sets the model label recorded on metrics.
func WithModelName(model string) Option {
	return func(i *Illustrator) { i.model = model }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(i *Illustrator) { i.metrics = m }
}

// New creates an [Illustrator] backed by images. A nil client is allowed
// and makes every call return [ErrUnavailable], matching how the grading
// service degrades without a credential.
func New(images genmodel.ImageClient, opts ...Option) *Illustrator {
	i := &Illustrator{images: images}
	for _, o := range opts {
		o(i)
	}
	if i.metrics == nil {
		i.metrics = observe.DefaultMetrics()
	}
	return i
}

// Illustrate generates one image for prompt.
func (i *Illustrator) Illustrate(ctx context.Context, prompt string) (genmodel.Image, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return genmodel.Image{}, ErrEmptyPrompt
	}
	if len(prompt) > maxPromptLen {
		return genmodel.Image{}, ErrPromptTooLong
	}
	if i.images == nil {
		i.metrics.RecordModelError(ctx, i.model, kind, "no_credential")
		return genmodel.Image{}, ErrUnavailable
	}

	start := time.Now()
	img, err := i.images.GenerateImage(ctx, prompt)
	i.metrics.CreativeDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("kind", kind)))

	if err != nil {
		i.metrics.RecordModelRequest(ctx, i.model, kind, "error")
		i.metrics.RecordModelError(ctx, i.model, kind, "transport")
		return genmodel.Image{}, fmt.Errorf("creative: generate image: %w", err)
	}
	i.metrics.RecordModelRequest(ctx, i.model, kind, "ok")

	if img.MIMEType == "" {
		img.MIMEType = "image/png"
	}
	return img, nil
}
