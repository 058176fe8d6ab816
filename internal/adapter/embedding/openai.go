package embedding

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	openai "github.com/sashabaranov/go-openai"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint: OpenAI
// itself, a vLLM server started with --task embed, or Ollama.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	batchSize int
	dimension atomic.Int64
}

func NewOpenAIEmbedder(apiKeyEnv, model, baseURL string, batchSize int) (*OpenAIEmbedder, error) {
	if model == "" {
		return nil, fmt.Errorf("%w: embedding model is required", domain.ErrInvalidConfig)
	}

	key := os.Getenv(apiKeyEnv)
	if key == "" {
		// local servers ignore the key but the client sends a header anyway
		key = "EMPTY"
	}

	cfg := openai.DefaultConfig(key)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	if batchSize <= 0 {
		batchSize = 64
	}

	e := &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		batchSize: batchSize,
	}
	e.dimension.Store(int64(knownDimension(model)))
	return e, nil
}

func knownDimension(model string) int {
	switch model {
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	case "text-embedding-3-large":
		return 3072
	case "nomic-embed-text":
		return 768
	case "mxbai-embed-large", "BAAI/bge-large-en-v1.5":
		return 1024
	case "all-minilm", "sentence-transformers/all-MiniLM-L6-v2", "BAAI/bge-small-en-v1.5":
		return 384
	}
	return 0
}

// Embed generates an embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in requests of at most batchSize inputs.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))

		vectors, err := e.embed(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}

	return all, nil
}

func (e *OpenAIEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if t == "" {
			return nil, fmt.Errorf("%w: cannot embed empty text", domain.ErrEmbeddingUnavailable)
		}
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrEmbeddingUnavailable, e.model, err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", domain.ErrEmbeddingUnavailable, len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", domain.ErrEmbeddingUnavailable, data.Index)
		}
		v := make([]float32, len(data.Embedding))
		for i, x := range data.Embedding {
			v[i] = float32(x)
		}
		Normalize(v)
		vectors[data.Index] = v
	}

	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("%w: missing embedding for input %d", domain.ErrEmbeddingUnavailable, i)
		}
		if err := e.checkDimension(len(v)); err != nil {
			return nil, err
		}
	}

	return vectors, nil
}

// checkDimension records the dimension of the first response for models not
// in the table and rejects responses that disagree with it afterwards.
func (e *OpenAIEmbedder) checkDimension(n int) error {
	if e.dimension.CompareAndSwap(0, int64(n)) {
		return nil
	}
	if want := e.dimension.Load(); int64(n) != want {
		return fmt.Errorf("%w: model %s returned %d dimensions, expected %d", domain.ErrEmbeddingUnavailable, e.model, n, want)
	}
	return nil
}

// Dimension returns the embedding dimension, or 0 while it is still unknown.
func (e *OpenAIEmbedder) Dimension() int {
	return int(e.dimension.Load())
}

func (e *OpenAIEmbedder) ModelVersion() string {
	return "openai:" + e.model
}
