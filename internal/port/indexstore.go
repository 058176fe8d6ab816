package port

import (
	"context"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

// IndexStore persists whole index snapshots. Save replaces the previous
// snapshot atomically; a failed Save leaves it untouched.
type IndexStore interface {
	Save(ctx context.Context, snap domain.IndexSnapshot) error

	Load(ctx context.Context) (domain.IndexSnapshot, error)

	Close() error
}
