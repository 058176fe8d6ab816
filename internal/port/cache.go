package port

import (
	"context"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

// AnswerCache memoizes answers. Implementations swallow their own failures:
// a broken cache behaves like an empty one.
type AnswerCache interface {
	Get(ctx context.Context, key string) (domain.Answer, bool)

	Put(ctx context.Context, key string, answer domain.Answer)

	// Invalidate drops every entry, used after the index is swapped.
	Invalidate(ctx context.Context)
}
