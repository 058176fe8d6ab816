package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/port"
)

// stop sequences of the chat templates served by vLLM for small instruct models
var defaultStop = []string{"</s>", "<end_of_turn>"}

// OpenAIGenerator talks to any OpenAI-compatible chat completions endpoint,
// normally a local vLLM server.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

func NewOpenAIGenerator(apiKeyEnv, model, baseURL string) (*OpenAIGenerator, error) {
	if model == "" {
		return nil, fmt.Errorf("%w: generation model is required", domain.ErrInvalidConfig)
	}

	key := os.Getenv(apiKeyEnv)
	if key == "" {
		key = "EMPTY"
	}

	cfg := openai.DefaultConfig(key)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req port.GenerateRequest) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		TopP:        0.9,
		Stop:        defaultStop,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", domain.ErrGenerationUnavailable)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (g *OpenAIGenerator) ModelName() string {
	return g.model
}

// isPermanent reports client errors that a retry cannot fix. Rate limits
// are not permanent.
func isPermanent(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return isClientStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return isClientStatus(reqErr.HTTPStatusCode)
	}
	return errors.Is(err, domain.ErrInvalidConfig)
}

func isClientStatus(code int) bool {
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout
}
