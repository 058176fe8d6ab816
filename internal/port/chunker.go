package port

import "github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"

type Chunker interface {
	Chunk(docID, text string) ([]domain.Chunk, error)
}
