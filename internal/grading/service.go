package grading

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/nmtri/docviet/internal/observe"
	"github.com/nmtri/docviet/pkg/provider/genmodel"
)

// MIME types accepted as evidence.
const (
	MIMEAudioWebM = "audio/webm"
	MIMEImagePNG  = "image/png"
)

// Service grades learner evidence through a generative model. Construct it
// with [New]; the zero value is not usable.
//
// A nil audio or handwriting client means no usable credential is configured
// for that path. Calls then short-circuit to a "service unavailable" verdict
// without a network attempt.
type Service struct {
	audio       genmodel.Client
	handwriting genmodel.Client

	audioModel       string
	handwritingModel string

	metrics *observe.Metrics
}

// Option configures a [Service].
type Option func(*Service)

// WithHandwritingClient routes handwriting grading to a separate client,
// typically a stronger vision model. Without it the audio client serves both.
func WithHandwritingClient(c genmodel.Client, model string) Option {
	return func(s *Service) {
		s.handwriting = c
		s.handwritingModel = model
	}
}

// WithModelName sets the model label recorded on metrics for the audio path.
func WithModelName(model string) Option {
	return func(s *Service) { s.audioModel = model }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates a grading [Service] backed by client. A nil client is allowed
// and produces "service unavailable" verdicts.
func New(client genmodel.Client, opts ...Option) *Service {
	s := &Service{
		audio:       client,
		handwriting: client,
	}
	for _, o := range opts {
		o(s)
	}
	if s.handwritingModel == "" {
		s.handwritingModel = s.audioModel
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// GradeReading scores a read-aloud recording against the text the learner
// was asked to read. Never returns an error; failures yield a default
// verdict.
func (s *Service) GradeReading(ctx context.Context, audio []byte, expectedText, mimeType string) Verdict {
	return s.grade(ctx, KindReading, s.audio, s.audioModel,
		&genmodel.Evidence{Data: audio, MIMEType: mimeType},
		readingRubric(expectedText))
}

// GradeSpokenExercise scores a spoken answer to a comprehension question.
// The rubric embeds both the question and the concept the answer must
// mention.
func (s *Service) GradeSpokenExercise(ctx context.Context, audio []byte, question, concept, mimeType string) Verdict {
	return s.grade(ctx, KindExercise, s.audio, s.audioModel,
		&genmodel.Evidence{Data: audio, MIMEType: mimeType},
		exerciseRubric(question, concept))
}

// GradeHandwriting scores a photo of the learner's handwriting against the
// text they were asked to write.
func (s *Service) GradeHandwriting(ctx context.Context, image []byte, expectedText string) Verdict {
	return s.grade(ctx, KindHandwriting, s.handwriting, s.handwritingModel,
		&genmodel.Evidence{Data: image, MIMEType: MIMEImagePNG},
		handwritingRubric(expectedText))
}

// DecodeImage turns browser-submitted handwriting (a base64 string,
// optionally carrying a "data:image/png;base64," prefix) into raw bytes.
func DecodeImage(s string) ([]byte, error) {
	if i := strings.IndexByte(s, ','); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return data, nil
}

// grade runs one model round trip and normalizes the outcome. This is the
// only place the never-error policy is enforced.
func (s *Service) grade(ctx context.Context, kind Kind, client genmodel.Client, model string, ev *genmodel.Evidence, rubric string) Verdict {
	if client == nil {
		s.metrics.RecordModelError(ctx, model, string(kind), "no_credential")
		return Verdict{Score: 0, Comment: unavailableComment}
	}
	if len(ev.Data) == 0 {
		observe.Logger(ctx).Warn("grading called with empty evidence", "kind", kind)
		return DefaultVerdict(kind)
	}

	start := time.Now()
	raw, err := client.Generate(ctx, genmodel.Request{
		System:      systemPersona,
		Instruction: rubric,
		Evidence:    ev,
		ForceJSON:   true,
	})
	s.metrics.GradingDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("kind", string(kind))))

	if err != nil {
		observe.Logger(ctx).Warn("model request failed, substituting default verdict",
			"kind", kind, "model", model, "error", err)
		s.metrics.RecordModelRequest(ctx, model, string(kind), "error")
		s.metrics.RecordModelError(ctx, model, string(kind), "transport")
		return DefaultVerdict(kind)
	}
	s.metrics.RecordModelRequest(ctx, model, string(kind), "ok")

	v, parsed := parseVerdict(raw, kind)
	if !parsed {
		observe.Logger(ctx).Warn("unparseable model response, substituting default verdict",
			"kind", kind, "model", model)
		s.metrics.RecordParseFallback(ctx, string(kind))
		return v
	}

	s.metrics.RecordGrade(ctx, string(kind), v.Score)
	return v
}
