package port

//go:generate mockgen -source=embedder.go -destination=mocks/mock_embedder.go -package=mocks

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed embeds a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts, returning one vector per input in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelVersion identifies the model; vectors from different versions
	// must never be compared.
	ModelVersion() string
}
