// Package imagegen abstracts the AI image-generation provider consumed by
// the image tools. The provider's own model selection, safety filtering,
// and billing are outside this server.
package imagegen

import (
	"context"
	"errors"
)

// Request describes one generation call.
type Request struct {
	Prompt string
	// Profile selects a provider-side image profile (size, style). Empty
	// uses the provider default.
	Profile string
}

// Image is one generated image.
type Image struct {
	Data     []byte
	MimeType string
}

// Provider generates images from text prompts.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Image, error)
}

// Unconfigured is the Provider used when no generation endpoint is
// configured. Image tools fail with a clear message instead of at startup.
type Unconfigured struct{}

var _ Provider = Unconfigured{}

func (Unconfigured) Generate(context.Context, Request) (*Image, error) {
	return nil, errors.New("no image provider configured")
}
