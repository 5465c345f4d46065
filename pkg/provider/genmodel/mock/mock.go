// Package mock provides a test double for the genmodel.Client interface.
//
// Use Client in unit tests to verify the exact requests the grading service
// sends and to feed controlled model responses without a live backend.
//
// Example:
//
//	c := &mock.Client{Response: `{"score": 9, "comment": "Con đọc tốt lắm!"}`}
//	verdict := grading.New(c).GradeReading(ctx, audio, "ba bà", "audio/webm")
package mock

import (
	"context"
	"sync"

	"github.com/nmtri/docviet/pkg/provider/genmodel"
)

// GenerateCall records a single invocation of Generate.
type GenerateCall struct {
	// Ctx is the context passed to Generate.
	Ctx context.Context
	// Req is the request passed to Generate.
	Req genmodel.Request
}

// Client is a mock implementation of genmodel.Client.
// Set Response/Err before use; read Calls after the code under test ran.
type Client struct {
	mu sync.Mutex

	// Response is returned by Generate when Err is nil.
	Response string

	// Err, if non-nil, is returned as the error from Generate.
	Err error

	// Responses, when non-empty, is consumed one element per call before
	// falling back to Response. Useful for multi-call scenarios.
	Responses []string

	// Calls records every invocation of Generate in order.
	Calls []GenerateCall
}

// Generate implements genmodel.Client.
func (c *Client) Generate(ctx context.Context, req genmodel.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls = append(c.Calls, GenerateCall{Ctx: ctx, Req: req})
	if c.Err != nil {
		return "", c.Err
	}
	if len(c.Responses) > 0 {
		resp := c.Responses[0]
		c.Responses = c.Responses[1:]
		return resp, nil
	}
	return c.Response, nil
}

// ImageCall records a single invocation of GenerateImage.
type ImageCall struct {
	// Ctx is the context passed to GenerateImage.
	Ctx context.Context
	// Prompt is the prompt passed to GenerateImage.
	Prompt string
}

// ImageClient is a mock implementation of genmodel.ImageClient.
type ImageClient struct {
	mu sync.Mutex

	// Image is returned by GenerateImage when Err is nil.
	Image genmodel.Image

	// Err, if non-nil, is returned as the error from GenerateImage.
	Err error

	// Calls records every invocation of GenerateImage in order.
	Calls []ImageCall
}

// GenerateImage implements genmodel.ImageClient.
func (c *ImageClient) GenerateImage(ctx context.Context, prompt string) (genmodel.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls = append(c.Calls, ImageCall{Ctx: ctx, Prompt: prompt})
	if c.Err != nil {
		return genmodel.Image{}, c.Err
	}
	return c.Image, nil
}
