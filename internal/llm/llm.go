package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client abstracts multimodal generation providers.
type Client interface {
	// AnalyzeImage sends one instruction plus one inline image and returns the first candidate text.
	AnalyzeImage(ctx context.Context, input ImageInput) (string, error)
	// Complete sends a text-only prompt.
	Complete(ctx context.Context, prompt string) (string, error)
}

// ImageInput captures the inputs needed for image analysis.
type ImageInput struct {
	Prompt    string
	MediaType string
	Data      []byte
}

var (
	// ErrNotImplemented is returned by the placeholder client.
	ErrNotImplemented = errors.New("LLM not implemented")
	// ErrEmptyResponse means the provider answered without usable candidate text.
	ErrEmptyResponse = errors.New("llm returned no candidate text")
)

// UpstreamError reports a non-2xx answer from the provider. Body is kept for
// server-side diagnostics and must not be echoed to clients.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm upstream status %d: %s", e.StatusCode, e.Body)
}

// PlaceholderClient is used when no provider is configured.
type PlaceholderClient struct{}

// AnalyzeImage returns ErrNotImplemented.
func (PlaceholderClient) AnalyzeImage(ctx context.Context, input ImageInput) (string, error) {
	_ = ctx
	_ = input
	return "", ErrNotImplemented
}

// Complete returns ErrNotImplemented.
func (PlaceholderClient) Complete(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	return "", ErrNotImplemented
}
