// Package llmclient hides the hosted model providers behind one small interface.
package llmclient

import (
	"context"
	"errors"
)

// GenerationOptions tunes a single generation.
type GenerationOptions struct {
	Temperature     float32
	MaxTokens       int
	ForceJSONFormat bool
}

// GenerationRequest is one prompt to the model.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Options      GenerationOptions
}

// Client produces a text completion for a request.
type Client interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// ErrEmptyResponse is returned when the provider answered without any text.
var ErrEmptyResponse = errors.New("model returned an empty response")
