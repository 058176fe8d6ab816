package embedding

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/adapter/analyzer"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

// HashingEmbedder is a local, deterministic bag-of-words embedder. Stemmed
// content tokens are hashed into signed buckets, so texts sharing vocabulary
// get a positive cosine similarity and unrelated texts score near zero. It
// needs no model server and is used offline and in tests.
type HashingEmbedder struct {
	dimension int
	tokenizer *analyzer.Tokenizer
}

func NewHashingEmbedder(dimension int) (*HashingEmbedder, error) {
	if dimension < 16 {
		return nil, fmt.Errorf("%w: hashing dimension must be at least 16, got %d", domain.ErrInvalidConfig, dimension)
	}
	return &HashingEmbedder{
		dimension: dimension,
		tokenizer: analyzer.NewTokenizer(true),
	}, nil
}

func (e *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.vector(text), nil
}

func (e *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.vector(text)
	}
	return vectors, nil
}

func (e *HashingEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dimension)
	for _, token := range e.tokenizer.Tokenize(text) {
		h := xxhash.Sum64String(token)
		idx := h % uint64(e.dimension)
		if h>>63 == 1 {
			v[idx]--
		} else {
			v[idx]++
		}
	}
	Normalize(v)
	return v
}

func (e *HashingEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashingEmbedder) ModelVersion() string {
	return fmt.Sprintf("hashing-v1:%d", e.dimension)
}
