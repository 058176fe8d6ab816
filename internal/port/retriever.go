package port

import (
	"context"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

// Retriever returns the top-k chunks for an accepted query.
type Retriever interface {
	Retrieve(ctx context.Context, q domain.Query, k int) (domain.RetrievalResult, error)
}

// ScopeGuard decides whether a question is about the department.
type ScopeGuard interface {
	Check(ctx context.Context, q domain.Query) domain.ScopeDecision
}
