package port

import "github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"

// Packer defines the interface for packing retrieved chunks into prompt context.
type Packer interface {
	// Pack renders chunks in score order until the word budget is spent.
	Pack(result domain.RetrievalResult, budgetWords int) domain.PackedContext
}
