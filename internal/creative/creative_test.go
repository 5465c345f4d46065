package creative

import (
	"context"
	"errors"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/nmtri/docviet/internal/observe"
	"github.com/nmtri/docviet/pkg/provider/genmodel"
	genmock "github.com/nmtri/docviet/pkg/provider/genmodel/mock"
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

func TestIllustrate_PassesPromptThrough(t *testing.T) {
	t.Parallel()

	client := &genmock.ImageClient{
		Image: genmodel.Image{Data: []byte("png-bytes"), MIMEType: "image/png"},
	}
	ill := New(client, WithMetrics(testMetrics(t)))

	img, err := ill.Illustrate(context.Background(), "  một con mèo màu cam  ")
	if err != nil {
		t.Fatalf("Illustrate: %v", err)
	}
	if string(img.Data) != "png-bytes" || img.MIMEType != "image/png" {
		t.Errorf("image = %q/%q, want png-bytes/image/png", img.Data, img.MIMEType)
	}

	if len(client.Calls) != 1 {
		t.Fatalf("model called %d times, want 1", len(client.Calls))
	}
	if got := client.Calls[0].Prompt; got != "một con mèo màu cam" {
		t.Errorf("prompt = %q, want trimmed prompt", got)
	}
}

func TestIllustrate_DefaultsMissingMIMEToPNG(t *testing.T) {
	t.Parallel()

	client := &genmock.ImageClient{Image: genmodel.Image{Data: []byte{1, 2, 3}}}
	ill := New(client, WithMetrics(testMetrics(t)))

	img, err := ill.Illustrate(context.Background(), "con voi")
	if err != nil {
		t.Fatalf("Illustrate: %v", err)
	}
	if img.MIMEType != "image/png" {
		t.Errorf("MIMEType = %q, want image/png", img.MIMEType)
	}
}

func TestIllustrate_Errors(t *testing.T) {
	t.Parallel()

	backendErr := errors.New("quota exceeded")
	tests := []struct {
		name   string
		client genmodel.ImageClient
		prompt string
		want   error
	}{
		{"empty prompt", &genmock.ImageClient{}, "   ", ErrEmptyPrompt},
		{"prompt too long", &genmock.ImageClient{}, strings.Repeat("a", 501), ErrPromptTooLong},
		{"no backend", nil, "con mèo", ErrUnavailable},
		{"backend failure", &genmock.ImageClient{Err: backendErr}, "con mèo", backendErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ill := New(tt.client, WithMetrics(testMetrics(t)))
			_, err := ill.Illustrate(context.Background(), tt.prompt)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIllustrate_ValidationSkipsModelCall(t *testing.T) {
	t.Parallel()

	client := &genmock.ImageClient{}
	ill := New(client, WithMetrics(testMetrics(t)))

	if _, err := ill.Illustrate(context.Background(), ""); err == nil {
		t.Fatal("want error for empty prompt")
	}
	if len(client.Calls) != 0 {
		t.Errorf("model called %d times, want 0", len(client.Calls))
	}
}
