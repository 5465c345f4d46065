// Package genmodel defines the Client interface for multimodal generative
// model backends used to grade learner evidence.
//
// A genmodel client wraps a remote model API (e.g., Google Gemini) and exposes
// a single text-out generation call that accepts an optional binary evidence
// payload (learner audio or a handwriting photo) alongside a natural-language
// instruction. Response interpretation — extracting a score and comment from
// whatever the model returns — is the caller's concern, not the client's.
//
// Implementations must be safe for concurrent use.
package genmodel

import "context"

// Evidence is a binary payload submitted for assessment together with its
// MIME type. The only types in scope are "audio/webm" (recordings) and
// "image/png" (handwriting captures).
type Evidence struct {
	// Data is the raw payload. Must be non-empty.
	Data []byte

	// MIMEType describes Data (e.g., "audio/webm", "image/png").
	MIMEType string
}

// Request carries one generation call to the model.
type Request struct {
	// System is an optional system instruction injected ahead of the
	// user content. Providers without native system-instruction support
	// should prepend it to Instruction.
	System string

	// Instruction is the natural-language task text (the grading rubric or
	// chat prompt). Must be non-empty.
	Instruction string

	// Evidence is an optional binary payload sent alongside Instruction.
	// Nil for text-only requests.
	Evidence *Evidence

	// Temperature controls output randomness in [0.0, 2.0]. Zero requests
	// the provider default.
	Temperature float64

	// ForceJSON asks the provider to constrain output to a JSON document
	// where the backend supports response MIME type negotiation. Callers
	// must still parse defensively — models drift.
	ForceJSON bool
}

// Client is the abstraction over any multimodal generative model backend.
//
// Implementations must be safe for concurrent use and should propagate
// context cancellation promptly.
type Client interface {
	// Generate sends req to the model and returns the raw text of the
	// response. An empty response text is an error: callers rely on a
	// non-nil error to distinguish "model said nothing" from a usable reply.
	Generate(ctx context.Context, req Request) (string, error)
}

// Image is a generated picture and its MIME type, as returned by the model.
type Image struct {
	// Data is the raw encoded image. Never empty on a nil-error return.
	Data []byte

	// MIMEType describes Data (typically "image/png").
	MIMEType string
}

// ImageClient is the abstraction over image-capable generative backends.
// A model that returns no image part for a prompt is an error, not an
// empty Image.
//
// Implementations must be safe for concurrent use.
type ImageClient interface {
	// GenerateImage asks the model to draw prompt and returns the first
	// image in the response.
	GenerateImage(ctx context.Context, prompt string) (Image, error)
}
