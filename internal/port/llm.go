package port

//go:generate mockgen -source=llm.go -destination=mocks/mock_llm.go -package=mocks

import "context"

// GenerateRequest is one prompt for a language model.
type GenerateRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Generator represents a language model for text generation.
type Generator interface {
	// Generate returns the model's completion for the prompt.
	Generate(ctx context.Context, req GenerateRequest) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
